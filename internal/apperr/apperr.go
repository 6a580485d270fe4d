// Package apperr defines the stable error kinds surfaced by stride's core
// operations. Handlers map kinds to HTTP statuses; internal causes stay wrapped.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrUnauthorized means the request carried no valid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers both "record absent" and "record not owned by the
	// caller" so that existence never leaks across users.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the operation is not valid for the record's
	// current lifecycle state, e.g. restoring a priority that was never
	// deleted or completing an already-completed task.
	ErrInvalidState = errors.New("invalid state")
)

// FieldViolation describes a single invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input, detected before any write.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Message: message}}}
}

// BatchError reports a multi-row operation that partially succeeded. Succeeded
// counts rows processed before or between failures; Err combines the per-row
// causes.
type BatchError struct {
	Succeeded int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch partially failed after %d row(s): %v", e.Succeeded, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Batch returns nil when errs contains no failures, otherwise a BatchError
// combining them.
func Batch(succeeded int, errs ...error) error {
	combined := multierr.Combine(errs...)
	if combined == nil {
		return nil
	}
	return &BatchError{Succeeded: succeeded, Err: combined}
}
