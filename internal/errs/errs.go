// Package errs contains the closed set of error kinds used across layers.
// Handlers classify errors with errors.Is/errors.As against these values and
// map each kind to a transport status exactly once.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation indicates malformed or out-of-range input. Raised before
	// any side effect occurs.
	ErrValidation = errors.New("validation error")

	// ErrUnauthenticated indicates a missing or invalid credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates the caller does not own the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSessionNotFound indicates a referenced generation session does not
	// exist or is not accessible to the caller.
	ErrSessionNotFound = errors.New("generation session not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g. email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrBusinessRule indicates input that is well-formed but violates a
	// domain rule (batch size, origin/session mismatch).
	ErrBusinessRule = errors.New("business rule violation")

	// ErrUpstream indicates the AI provider returned a failure.
	ErrUpstream = errors.New("upstream service error")

	// ErrUpstreamTimeout indicates the AI provider did not respond in time.
	ErrUpstreamTimeout = errors.New("upstream service timeout")

	// ErrPersistence indicates a datastore failure.
	ErrPersistence = errors.New("persistence error")
)

// FieldError carries machine-readable field-level detail for client display.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps ErrValidation with per-field detail.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a single-field ValidationError.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// BusinessRuleError wraps ErrBusinessRule with the offending item and field.
type BusinessRuleError struct {
	Index   int
	Field   string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Message)
}

func (e *BusinessRuleError) Unwrap() error { return ErrBusinessRule }

// UpstreamError wraps ErrUpstream with the provider's HTTP status and body.
type UpstreamError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream service error: %v", e.Cause)
	}
	return fmt.Sprintf("upstream http %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }
