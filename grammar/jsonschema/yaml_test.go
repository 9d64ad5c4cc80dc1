package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromYAML(t *testing.T) {
	j, err := FromYAML([]byte(`
type: object
properties:
  zeta:
    type: string
    default: ~
  alpha:
    enum: [1, "two", true, 2.5]
`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"zeta":{"type":"string","default":null},"alpha":{"enum":[1,"two",true,2.5]}}}`, string(j))

	s, err := Decode(j)
	require.NoError(t, err)
	require.Len(t, s.Properties, 2)
	assert.Equal(t, "zeta", s.Properties[0].Name)
	assert.Equal(t, "alpha", s.Properties[1].Name)
}

func TestDecodeYAMLAnchors(t *testing.T) {
	s, err := DecodeYAML([]byte(`
$defs:
  Name: &name
    type: string
properties:
  first: *name
  last: *name
`))
	require.NoError(t, err)
	require.Len(t, s.Properties, 2)
	assert.Equal(t, s.Properties[0].Key(), s.Properties[1].Key())
	assert.Equal(t, "string", s.Properties[1].Type)
}

func TestFromYAMLErrors(t *testing.T) {
	_, err := FromYAML([]byte("a: [1, 2"))
	assert.Error(t, err)

	_, err = DecodeYAML([]byte(""))
	assert.Error(t, err)

	_, err = DecodeYAML([]byte("- type: string"))
	assert.Error(t, err)
}
