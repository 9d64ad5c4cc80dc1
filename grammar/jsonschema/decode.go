package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Schema holds a JSON schema.
type Schema struct {
	// Name is the name of the property or definition. The root schema and
	// the clauses of a union have no name.
	Name string `json:"-"`

	// Type is the type of the property when "type" is a single string.
	Type string `json:"-"`

	// Types holds the listed types when "type" is an array of two or
	// more names. A one-element array is stored in Type instead.
	Types []string `json:"-"`

	Title       string
	Description string

	// Format and Pattern are recorded but not enforced.
	Format  string
	Pattern string

	// Minimum specifies the minimum value for numeric properties.
	Minimum float64

	// Maximum specifies the maximum value for numeric properties.
	Maximum float64

	// MinItems specifies the minimum number of items allowed in a list.
	MinItems int

	// MaxItems specifies the maximum number of items allowed in a list.
	MaxItems int

	// Enum is a list of valid values for the property.
	Enum []json.RawMessage

	AnyOf []*Schema
	OneOf []*Schema
	AllOf []*Schema

	// PrefixItems is a list of schemas for each item in a tuple. By
	// default, the tuple is "closed." unless Items is set to true or a
	// valid Schema.
	PrefixItems []*Schema

	// Items is the schema for each item in a list.
	//
	// If it is missing, or its JSON value is "null" or "false", it is nil.
	// If the JSON value is "true", it is set to the empty Schema. If the
	// JSON value is an object, it will be decoded as a Schema.
	Items *Schema `json:"-"`

	// Properties is the schema for each property of an object, in
	// declaration order. It is nil when "properties" is absent and empty
	// but non-nil for "properties": {}.
	Properties []*Schema `json:"-"`

	// AdditionalProperties follows the same rules as Items.
	AdditionalProperties *Schema `json:"-"`

	Ref string `json:"$ref"`

	// Defs and Definitions hold the named schemas of "$defs" and
	// "definitions", in declaration order.
	Defs        []*Schema `json:"-"`
	Definitions []*Schema `json:"-"`

	// Default is the raw "default" value. A default of null is kept as
	// the text "null" so its presence can still be detected.
	Default json.RawMessage `json:"-"`
}

// Decode parses a JSON schema document.
func Decode(data []byte) (*Schema, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, errors.New("schema must be an object or true")
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("true")) {
		*s = Schema{Name: s.Name}
		return nil
	}

	if len(data) == 0 || data[0] != '{' {
		return errors.New("schema must be an object or true")
	}

	type S Schema
	w := struct {
		Type                 types
		Properties           props
		Defs                 props `json:"$defs"`
		Definitions          props
		Items                items
		AdditionalProperties items
		Default              raw
		*S
	}{
		S: (*S)(s),
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch len(w.Type) {
	case 0:
	case 1:
		s.Type = w.Type[0]
	default:
		s.Types = w.Type
	}

	if w.Items.set {
		s.Items = &w.Items.Schema
	}
	if w.AdditionalProperties.set {
		s.AdditionalProperties = &w.AdditionalProperties.Schema
	}

	s.Properties = w.Properties
	s.Defs = w.Defs
	s.Definitions = w.Definitions
	s.Default = json.RawMessage(w.Default)
	return nil
}

type types []string

func (t *types) UnmarshalJSON(data []byte) error {
	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*t = types{name}
	case '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		if len(names) == 0 {
			return errors.New("type: expected at least one type name")
		}
		*t = names
	case 'n':
	default:
		return errors.New("type: expected a string or an array of strings")
	}
	return nil
}

type raw []byte

func (r *raw) UnmarshalJSON(data []byte) error {
	*r = bytes.Clone(data)
	return nil
}

type items struct {
	Schema
	set bool
}

func (s *items) UnmarshalJSON(data []byte) error {
	switch b := data[0]; b {
	case 't':
		*s = items{set: true}
	case '{':
		if err := s.Schema.UnmarshalJSON(data); err != nil {
			return err
		}
		s.set = true
	case 'n', 'f':
	default:
		return errors.New("invalid Items")
	}
	return nil
}

type props []*Schema

func (v *props) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '{' {
		return errors.New("expected object")
	}

	*v = props{}
	d := json.NewDecoder(bytes.NewReader(data))

	// Unknown keywords inside property schemas are ignored, as llama.cpp
	// does.

	t, err := d.Token()
	if err != nil {
		return err
	}
	if t != json.Delim('{') {
		return errors.New("expected object")
	}

	index := map[string]int{}
	for d.More() {
		t, err := d.Token()
		if err != nil {
			return err
		}
		name, ok := t.(string)
		if !ok {
			return fmt.Errorf("expected property name, got %v", t)
		}

		s := &Schema{Name: name}
		if err := d.Decode(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		// a repeated name keeps its first position and its last value
		if i, ok := index[name]; ok {
			(*v)[i] = s
			continue
		}
		index[name] = len(*v)
		*v = append(*v, s)
	}

	return nil
}
