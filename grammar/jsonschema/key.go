package jsonschema

import (
	"bytes"
	"encoding/json"
)

// Key returns the canonical text of the normalized form of s. Two schemas
// with equal keys accept the same JSON values and compile to the same
// production. Keywords are sorted, while property order is kept because it
// fixes the order of keys in generated objects.
func (s *Schema) Key() string {
	b, err := json.Marshal(canonical(Normalize(s)))
	if err != nil {
		// canonical builds only maps, slices, strings and bools
		panic(err)
	}
	return string(b)
}

func canonical(s *Schema) map[string]any {
	m := map[string]any{}
	if s.Type != "" {
		m["type"] = s.Type
	}

	if s.Ref != "" {
		m["$ref"] = s.Ref
	}

	if s.Enum != nil {
		values := make([]string, len(s.Enum))
		for i, v := range s.Enum {
			values[i] = compact(v)
		}
		m["enum"] = values
	}

	if s.AnyOf != nil {
		m["anyOf"] = canonicalAll(s.AnyOf)
	}

	if s.AllOf != nil {
		m["allOf"] = canonicalAll(s.AllOf)
	}

	if s.PrefixItems != nil {
		m["prefixItems"] = canonicalAll(s.PrefixItems)
	}

	if s.Items != nil {
		m["items"] = canonical(s.Items)
	}

	if s.Properties != nil {
		props := make([]any, len(s.Properties))
		for i, p := range s.Properties {
			props[i] = []any{p.Name, canonical(p)}
		}
		m["properties"] = props
	}

	if s.AdditionalProperties != nil {
		m["additionalProperties"] = canonical(s.AdditionalProperties)
	}

	if s.Defs != nil {
		m["$defs"] = canonicalNamed(s.Defs)
	}

	if s.Definitions != nil {
		m["definitions"] = canonicalNamed(s.Definitions)
	}

	// only the presence of a default matters
	if s.Default != nil {
		m["default"] = true
	}

	return m
}

func canonicalAll(ss []*Schema) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = canonical(s)
	}
	return out
}

func canonicalNamed(ss []*Schema) map[string]any {
	out := make(map[string]any, len(ss))
	for _, s := range ss {
		out[s.Name] = canonical(s)
	}
	return out
}

func compact(v json.RawMessage) string {
	var str string
	if t := bytes.TrimSpace(v); len(t) > 0 && t[0] == '"' && json.Unmarshal(t, &str) == nil {
		b, _ := json.Marshal(str)
		return string(b)
	}

	var b bytes.Buffer
	if err := json.Compact(&b, v); err != nil {
		return string(v)
	}
	return b.String()
}
