package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedReference is returned when a $ref names no reachable
	// definition.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrUnsupportedSchema is returned for schema shapes that have no
	// grammar rendering, such as an allOf with several clauses.
	ErrUnsupportedSchema = errors.New("unsupported schema")

	// ErrMalformedSchema is returned when the input cannot be read as a
	// schema at all.
	ErrMalformedSchema = errors.New("malformed schema")
)

// SchemaError describes the sub-schema that stopped a compilation.
type SchemaError struct {
	// Path is a JSON pointer to the offending sub-schema. The root is "#".
	Path string

	// Err is one of ErrUnresolvedReference, ErrUnsupportedSchema or
	// ErrMalformedSchema.
	Err error

	Detail string
}

func (e *SchemaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Err, e.Detail)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func malformed(err error) error {
	return &SchemaError{Path: "#", Err: ErrMalformedSchema, Detail: err.Error()}
}
