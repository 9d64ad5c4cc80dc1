// Package grammar compiles JSON schemas into GBNF grammars that constrain a
// llama.cpp sampler to emit JSON matching the schema.
//
// Every sub-schema becomes a named production. Sub-schemas that differ only
// in annotations share one production, $ref and $defs are resolved to the
// productions of their targets, and a small set of built-in productions
// (value, string, number and so on) is emitted only when referenced.
package grammar

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"

	"github.com/ai-den/jsongrammar/grammar/jsonschema"
)

// Grammar is a compiled grammar. The zero value is not usable.
type Grammar struct {
	root  string
	rules *linkedhashmap.Map[string, string]
}

// Root returns the name of the production for the root schema. The
// rendered grammar's "root" rule is this production with optional leading
// whitespace.
func (g *Grammar) Root() string {
	return g.root
}

// Len returns the number of productions, excluding "root".
func (g *Grammar) Len() int {
	return g.rules.Size()
}

// Rule returns the body of the named production.
func (g *Grammar) Rule(name string) (string, bool) {
	return g.rules.Get(name)
}

// Rules returns the productions in render order: the most recently
// completed schema production first and the built-ins last.
func (g *Grammar) Rules() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, name := range slices.Backward(g.rules.Keys()) {
			body, _ := g.rules.Get(name)
			if !yield(name, body) {
				return
			}
		}
	}
}

// Append appends the GBNF text of g to buf and returns the extended buffer.
func (g *Grammar) Append(buf []byte) []byte {
	buf = fmt.Appendf(buf, "%s ::= %s %s\n", ruleRoot, ruleSpace, g.root)
	for name, body := range g.Rules() {
		buf = fmt.Appendf(buf, "%s ::= %s\n", name, body)
	}
	return buf
}

func (g *Grammar) String() string {
	return string(g.Append(nil))
}

// Compile compiles s. It does not modify s.
//
// Enum values that are strings match as JSON strings. Other enum values
// (numbers, booleans, null, arrays, objects) match their compact JSON
// text, so {"enum": [1, "1"]} accepts both 1 and "1".
func Compile(s *jsonschema.Schema, opts ...Option) (*Grammar, error) {
	if s == nil {
		return nil, &SchemaError{Path: "#", Err: ErrMalformedSchema, Detail: "no schema"}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := newCompiler(o)
	root, err := c.compileRoot(jsonschema.Normalize(s))
	if err != nil {
		return nil, err
	}

	g, err := c.assemble(root)
	if err != nil {
		return nil, err
	}

	slog.Debug("compiled grammar", "root", root, "productions", g.Len(), "whitespace", o.whitespace)
	return g, nil
}

// FromSchema generates a grammar from a JSON schema and appends its text to
// buf.
func FromSchema(buf []byte, jsonSchema []byte, opts ...Option) ([]byte, error) {
	s, err := Parse(jsonSchema)
	if err != nil {
		return nil, err
	}

	g, err := Compile(s, opts...)
	if err != nil {
		return nil, err
	}
	return g.Append(buf), nil
}

// FromValue compiles a schema held as a Go value, such as the
// map[string]any produced by decoding a request body. Property order
// follows the JSON encoding of v, which sorts map keys.
func FromValue(v any, opts ...Option) (*Grammar, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, malformed(err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Compile(s, opts...)
}

// Parse decodes a JSON schema document, reporting failures as
// ErrMalformedSchema.
func Parse(jsonSchema []byte) (*jsonschema.Schema, error) {
	s, err := jsonschema.Decode(jsonSchema)
	if err != nil {
		return nil, malformed(err)
	}
	return s, nil
}

// ParseYAML decodes a JSON schema written as YAML.
func ParseYAML(yamlSchema []byte) (*jsonschema.Schema, error) {
	s, err := jsonschema.DecodeYAML(yamlSchema)
	if err != nil {
		return nil, malformed(err)
	}
	return s, nil
}
