// Package check compares what a compiled grammar accepts with what its
// schema validates.
package check

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	validator "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ai-den/jsongrammar/gbnf"
	"github.com/ai-den/jsongrammar/grammar"
)

const schemaURL = "schema.json"

// Checker holds a schema compiled both to a grammar and to a validator.
type Checker struct {
	Grammar *grammar.Grammar

	matcher *gbnf.Grammar
	schema  *validator.Schema
}

// Result describes one instance.
type Result struct {
	// Accepted is whether the grammar matches the instance text exactly.
	Accepted bool
	// Valid is whether the instance is JSON that validates against the schema.
	Valid bool
	// Err explains why the instance is not valid.
	Err error
}

// Sound reports whether the result is consistent with the grammar
// generating only valid instances.
func (r Result) Sound() bool {
	return !r.Accepted || r.Valid
}

// New compiles jsonSchema into a grammar with opts and into a validator.
func New(jsonSchema []byte, opts ...grammar.Option) (*Checker, error) {
	s, err := grammar.Parse(jsonSchema)
	if err != nil {
		return nil, err
	}

	g, err := grammar.Compile(s, opts...)
	if err != nil {
		return nil, err
	}

	m, err := gbnf.Parse(g.String())
	if err != nil {
		return nil, fmt.Errorf("compiled grammar does not parse: %w", err)
	}

	doc, err := validator.UnmarshalJSON(bytes.NewReader(jsonSchema))
	if err != nil {
		return nil, &grammar.SchemaError{Path: "#", Err: grammar.ErrMalformedSchema, Detail: err.Error()}
	}

	c := validator.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, &grammar.SchemaError{Path: "#", Err: grammar.ErrMalformedSchema, Detail: err.Error()}
	}

	vs, err := c.Compile(schemaURL)
	if err != nil {
		return nil, &grammar.SchemaError{Path: "#", Err: grammar.ErrMalformedSchema, Detail: err.Error()}
	}

	slog.Debug("check: compiled schema", "root", g.Root())
	return &Checker{Grammar: g, matcher: m, schema: vs}, nil
}

// Check matches instance against the grammar and validates it against the
// schema.
func (c *Checker) Check(instance string) Result {
	r := Result{Accepted: c.matcher.Match(instance)}

	v, err := validator.UnmarshalJSON(strings.NewReader(instance))
	if err != nil {
		r.Err = fmt.Errorf("invalid JSON: %w", err)
		return r
	}

	if err := c.schema.Validate(v); err != nil {
		r.Err = err
		return r
	}

	r.Valid = true
	return r
}
