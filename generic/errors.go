/*
errors.go - Centralized error types for the commission service

PURPOSE:
  All error types in one place for consistency and discoverability.
  Adapter packages (ingest, factory, store) wrap these errors with
  additional context so the HTTP layer can map them to status codes.

ERROR CATEGORIES:
  1. Lookup errors - Missing policy or upload
  2. Input errors - Malformed CSV, invalid policy documents, bad adjustments

NOTE:
  The commission engine itself has no error surface. It degrades to neutral
  defaults (zero rate, zero modifier, unpaid treatment) instead of failing.

USAGE:
    if errors.Is(err, generic.ErrMalformedInput) {
        // reject the upload with 400
    }

SEE ALSO:
  - ingest/csv.go: ParseError and MissingColumnsError
  - factory/policy.go: Validation errors
  - api/handlers.go: Status code mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when no policy has been saved under an ID.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrUploadNotFound is returned when a referenced upload doesn't exist.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrInvalidPolicy is returned when a policy document fails validation.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrInvalidAdjustment is returned when a manual adjustment is malformed.
	ErrInvalidAdjustment = errors.New("invalid adjustment")

	// ErrMalformedInput is returned when an uploaded sales file cannot be ingested.
	ErrMalformedInput = errors.New("malformed sales input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError describes one invalid field of a document.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates field errors for a document of a given kind.
type ValidationError struct {
	Kind   error // ErrInvalidPolicy or ErrInvalidAdjustment
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Kind.Error()
	}
	msg := e.Kind.Error() + ":"
	for i, f := range e.Fields {
		if i > 0 {
			msg += ";"
		}
		msg += fmt.Sprintf(" %s %s", f.Field, f.Message)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrMalformedInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrUploadNotFound)
}
