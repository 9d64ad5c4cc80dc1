package api

import (
	"fmt"
)

// ErrorCode represents a standardized error code identifier
type ErrorCode string

const (
	ErrCodeMalformedSchema     ErrorCode = "malformed_schema"
	ErrCodeUnsupportedSchema   ErrorCode = "unsupported_schema"
	ErrCodeUnresolvedReference ErrorCode = "unresolved_reference"
	ErrCodeInvalidOptions      ErrorCode = "invalid_options"
	ErrCodeGeneral             ErrorCode = "general" // Generic fallback error code
)

// ErrorResponse implements a structured error interface
type ErrorResponse struct {
	Message string         `json:"error"` // Human-readable error message
	Code    ErrorCode      `json:"code"`  // Machine-readable error code for programmatic handling, not response code
	Data    map[string]any `json:"data,omitempty"`
}

func (e ErrorResponse) Error() string {
	return e.Message
}

// StatusError is an error with an HTTP status code and message,
// it is parsed on the client-side and not returned from the API
type StatusError struct {
	StatusCode   int       // e.g. 200
	Status       string    // e.g. "200 OK"
	ErrorMessage string    `json:"error"`
	Code         ErrorCode `json:"code"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the jsongrammar server logs for details"
	}
}
