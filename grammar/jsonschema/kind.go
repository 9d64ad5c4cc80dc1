package jsonschema

import "fmt"

// Kind classifies a normalized schema by the shape of grammar it needs.
type Kind int

const (
	KindEmpty Kind = iota
	KindRef
	KindEnum
	KindUnion
	KindPrimitive
	KindArray
	KindObject
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRef:
		return "ref"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var primitiveTypes = map[string]bool{
	"null":    true,
	"boolean": true,
	"integer": true,
	"number":  true,
	"string":  true,
}

// IsPrimitiveType reports whether name is one of the JSON scalar types.
func IsPrimitiveType(name string) bool {
	return primitiveTypes[name]
}

// Kind returns the kind of s. The result is meaningful only for schemas
// returned by [Normalize]; $defs and definitions do not affect it.
func (s *Schema) Kind() Kind {
	if s.Ref != "" {
		if s.hasStructure() {
			return KindUnsupported
		}
		return KindRef
	}

	switch {
	case s.AnyOf != nil:
		if len(s.AnyOf) == 0 {
			return KindUnsupported
		}
		return KindUnion
	case s.Enum != nil:
		if len(s.Enum) == 0 {
			return KindUnsupported
		}
		return KindEnum
	case s.AllOf != nil:
		return KindUnsupported
	}

	switch t := s.EffectiveType(); {
	case t == "value":
		return KindEmpty
	case t == "object":
		return KindObject
	case t == "array":
		return KindArray
	case primitiveTypes[t]:
		return KindPrimitive
	default:
		return KindUnsupported
	}
}

func (s *Schema) hasStructure() bool {
	return s.Type != "" || s.Types != nil ||
		s.Enum != nil || s.AnyOf != nil || s.OneOf != nil || s.AllOf != nil ||
		s.PrefixItems != nil || s.Items != nil ||
		s.Properties != nil || s.AdditionalProperties != nil
}

// EffectiveType returns the type of the schema. If the Type field is
// not empty, it is returned as is. Otherwise the type is inferred: a schema
// with properties or additionalProperties is an "object", one with items or
// prefixItems is an "array", and anything else is "value", which accepts
// every JSON value.
func (s *Schema) EffectiveType() string {
	if s.Type == "" {
		if s.Properties != nil || s.AdditionalProperties != nil {
			return "object"
		}
		if s.PrefixItems != nil || s.Items != nil {
			return "array"
		}
		return "value"
	}
	return s.Type
}

// WithoutDefs returns a shallow copy of s with its definitions removed.
func (s *Schema) WithoutDefs() *Schema {
	c := *s
	c.Defs = nil
	c.Definitions = nil
	return &c
}

// Describe returns a short description of why s has the kind it has,
// for use in error messages.
func (s *Schema) Describe() string {
	switch {
	case s.Ref != "" && s.hasStructure():
		return fmt.Sprintf("$ref %q with sibling keywords", s.Ref)
	case s.AnyOf != nil && len(s.AnyOf) == 0:
		return "empty anyOf"
	case s.Enum != nil && len(s.Enum) == 0:
		return "empty enum"
	case s.AllOf != nil:
		return fmt.Sprintf("allOf with %d clauses", len(s.AllOf))
	case s.Type != "":
		return fmt.Sprintf("type %q", s.Type)
	default:
		return s.Kind().String()
	}
}
