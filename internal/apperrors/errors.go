// Package apperrors defines the error taxonomy shared by services and handlers.
//
// Four kinds of failures cross the service boundary:
//   - not found: the id does not exist for any owner
//   - unauthorized: the row exists but belongs to another owner
//   - validation: malformed caller input (bad filter value, bad id)
//   - transient: the store failed in a way worth retrying
//
// Handlers translate these to HTTP statuses; everything else is a 500.
package apperrors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the referenced id does not exist.
	ErrNotFound = stderrors.New("not found")

	// ErrUnauthorized means the row exists but is owned by someone else.
	// Cross-owner access must surface this, never another owner's data.
	ErrUnauthorized = stderrors.New("unauthorized")
)

// ValidationError reports malformed input from the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a named input field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// TransientError wraps a store failure that did not abort the whole
// operation and may succeed on retry.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// NewTransient wraps cause as a TransientError for operation op.
func NewTransient(op string, cause error) error {
	return &TransientError{Op: op, Cause: errors.WithStack(cause)}
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return stderrors.As(err, &te)
}
