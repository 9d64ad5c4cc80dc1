package jsonschema

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Normalize returns a copy of s reduced to the keywords that shape a
// grammar. Annotations and validation-only keywords such as title,
// description, format, minimum and minItems are dropped. Default survives
// only on property schemas, where it marks the property optional.
//
// Normalize also rewrites a few equivalent spellings so they compare equal:
// oneOf becomes anyOf, a list of types becomes an anyOf of single types, and
// an allOf with one clause is merged into its parent. The argument is never
// modified.
func Normalize(s *Schema) *Schema {
	return normalize(s, false)
}

func normalize(s *Schema, property bool) *Schema {
	if s == nil {
		return nil
	}

	if len(s.AllOf) == 1 {
		return normalize(mergeAllOf(s), property)
	}

	n := &Schema{
		Name: s.Name,
		Type: s.Type,
		Ref:  s.Ref,
	}

	if property && s.Default != nil {
		n.Default = bytes.Clone(s.Default)
	}

	if s.Enum != nil {
		n.Enum = make([]json.RawMessage, len(s.Enum))
		for i, v := range s.Enum {
			n.Enum[i] = bytes.Clone(v)
		}
	}

	anyOf := s.AnyOf
	if anyOf == nil {
		anyOf = s.OneOf
	}
	n.AnyOf = normalizeAll(anyOf)

	// a list of types is ignored next to enum, anyOf or $ref
	split := len(s.Types) > 0 && n.Enum == nil && n.AnyOf == nil && n.Ref == ""
	if split {
		n.AnyOf = splitTypes(s)
	}

	if len(s.AllOf) > 1 {
		n.AllOf = normalizeAll(s.AllOf)
	}

	if !split {
		n.PrefixItems = normalizeAll(s.PrefixItems)
		n.Items = normalize(s.Items, false)
		n.AdditionalProperties = normalize(s.AdditionalProperties, false)
		if s.Properties != nil {
			n.Properties = make([]*Schema, len(s.Properties))
			for i, p := range s.Properties {
				n.Properties[i] = normalize(p, true)
			}
		}
	}

	n.Defs = normalizeAll(s.Defs)
	n.Definitions = normalizeAll(s.Definitions)
	return n
}

func normalizeAll(ss []*Schema) []*Schema {
	if ss == nil {
		return nil
	}

	out := make([]*Schema, len(ss))
	for i, s := range ss {
		out[i] = normalize(s, false)
	}
	return out
}

// splitTypes turns {"type": ["a", "b"], ...} into one clause per type,
// each clause carrying only the keywords that apply to its type.
func splitTypes(s *Schema) []*Schema {
	var clauses []*Schema
	for _, t := range s.Types {
		c := &Schema{Type: t}
		switch t {
		case "object":
			c.Properties = s.Properties
			c.AdditionalProperties = s.AdditionalProperties
		case "array":
			c.PrefixItems = s.PrefixItems
			c.Items = s.Items
		}
		clauses = append(clauses, normalize(c, false))
	}
	return clauses
}

// mergeAllOf folds the single allOf clause of s into a copy of s. Keywords
// already present on s win.
func mergeAllOf(s *Schema) *Schema {
	m := *s
	c := s.AllOf[0]
	m.AllOf = c.AllOf

	if m.Type == "" && m.Types == nil {
		m.Type, m.Types = c.Type, c.Types
	}
	if m.Enum == nil {
		m.Enum = c.Enum
	}
	if m.AnyOf == nil && m.OneOf == nil {
		m.AnyOf, m.OneOf = c.AnyOf, c.OneOf
	}
	if m.PrefixItems == nil {
		m.PrefixItems = c.PrefixItems
	}
	if m.Items == nil {
		m.Items = c.Items
	}
	if m.Properties == nil {
		m.Properties = c.Properties
	}
	if m.AdditionalProperties == nil {
		m.AdditionalProperties = c.AdditionalProperties
	}
	if m.Ref == "" {
		m.Ref = c.Ref
	}
	if m.Default == nil {
		m.Default = c.Default
	}
	m.Defs = slices.Concat(s.Defs, c.Defs)
	m.Definitions = slices.Concat(s.Definitions, c.Definitions)
	return &m
}
