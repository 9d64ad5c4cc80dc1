package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePropertyOrder(t *testing.T) {
	s, err := Decode([]byte(`{
		"type": "object",
		"properties": {
			"zeta": {"type": "string"},
			"alpha": {"type": "integer"},
			"mid": {"type": "boolean", "default": false}
		}
	}`))
	require.NoError(t, err)

	var names []string
	for _, p := range s.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, json.RawMessage("false"), s.Properties[2].Default)
}

func TestDecodeItems(t *testing.T) {
	cases := []struct {
		input string
		set   bool
		typ   string
	}{
		{`{"type": "array"}`, false, ""},
		{`{"type": "array", "items": true}`, true, ""},
		{`{"type": "array", "items": false}`, false, ""},
		{`{"type": "array", "items": null}`, false, ""},
		{`{"type": "array", "items": {"type": "string"}}`, true, "string"},
	}

	for _, tt := range cases {
		s, err := Decode([]byte(tt.input))
		require.NoError(t, err, tt.input)
		if !tt.set {
			assert.Nil(t, s.Items, tt.input)
			continue
		}
		require.NotNil(t, s.Items, tt.input)
		assert.Equal(t, tt.typ, s.Items.Type, tt.input)
	}
}

func TestDecodeAdditionalProperties(t *testing.T) {
	s, err := Decode([]byte(`{"additionalProperties": {"type": "number"}}`))
	require.NoError(t, err)
	require.NotNil(t, s.AdditionalProperties)
	assert.Equal(t, "number", s.AdditionalProperties.Type)

	s, err = Decode([]byte(`{"additionalProperties": false}`))
	require.NoError(t, err)
	assert.Nil(t, s.AdditionalProperties)

	s, err = Decode([]byte(`{"additionalProperties": true}`))
	require.NoError(t, err)
	require.NotNil(t, s.AdditionalProperties)
	assert.Equal(t, KindEmpty, s.AdditionalProperties.Kind())
}

func TestDecodeDefaultPresence(t *testing.T) {
	s, err := Decode([]byte(`{"properties": {"a": {"default": null}, "b": {}}}`))
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), s.Properties[0].Default)
	assert.Nil(t, s.Properties[1].Default)
}

func TestDecodeTypes(t *testing.T) {
	s, err := Decode([]byte(`{"type": ["string", "null"]}`))
	require.NoError(t, err)
	assert.Empty(t, s.Type)
	assert.Equal(t, []string{"string", "null"}, s.Types)

	s, err = Decode([]byte(`{"type": ["integer"]}`))
	require.NoError(t, err)
	assert.Equal(t, "integer", s.Type)
	assert.Nil(t, s.Types)
}

func TestDecodeDefs(t *testing.T) {
	s, err := Decode([]byte(`{
		"$defs": {"B": {"type": "string"}, "A": {"type": "integer"}},
		"definitions": {"C": {"$ref": "#/$defs/A"}},
		"$ref": "#/$defs/B"
	}`))
	require.NoError(t, err)
	require.Len(t, s.Defs, 2)
	assert.Equal(t, "B", s.Defs[0].Name)
	assert.Equal(t, "A", s.Defs[1].Name)
	require.Len(t, s.Definitions, 1)
	assert.Equal(t, "#/$defs/A", s.Definitions[0].Ref)
	assert.Equal(t, "#/$defs/B", s.Ref)
}

func TestDecodeEmptyProperties(t *testing.T) {
	s, err := Decode([]byte(`{"type": "object", "properties": {}}`))
	require.NoError(t, err)
	assert.NotNil(t, s.Properties)
	assert.Empty(t, s.Properties)

	s, err = Decode([]byte(`{"type": "object"}`))
	require.NoError(t, err)
	assert.Nil(t, s.Properties)
}

func TestDecodeTrue(t *testing.T) {
	s, err := Decode([]byte(`true`))
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, s.Kind())
}

func TestDecodeDuplicateProperty(t *testing.T) {
	s, err := Decode([]byte(`{"properties": {"a": {"type": "string"}, "b": {}, "a": {"type": "integer"}}}`))
	require.NoError(t, err)
	require.Len(t, s.Properties, 2)
	assert.Equal(t, "a", s.Properties[0].Name)
	assert.Equal(t, "integer", s.Properties[0].Type)
}

func TestDecodeErrors(t *testing.T) {
	for _, input := range []string{
		``,
		`[]`,
		`"object"`,
		`{"properties": []}`,
		`{"properties": {"a": 1}}`,
		`{"type": 7}`,
		`{"type": []}`,
		`{"items": "x"}`,
		`{"anyOf": {}}`,
		`{"minItems": "two"}`,
		`{"type": "object"`,
	} {
		_, err := Decode([]byte(input))
		assert.Error(t, err, input)
	}
}
