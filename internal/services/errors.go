package services

import (
	"errors"
	"fmt"
	"strings"

	"invtrack/internal/validate"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
	ErrBadCreds  = errors.New("invalid username or password")
)

// ValidationError lists every problem found in one input. It is always
// returned before any store access.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func invalid(errs validate.Errors) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// BackendError wraps a store or driver failure with the operation that hit it.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

func backend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

func notFound(entity string) error { return fmt.Errorf("%s %w", entity, ErrNotFound) }

func conflict(reason string) error { return fmt.Errorf("%w: %s", ErrConflict, reason) }

func forbidden(reason string) error { return fmt.Errorf("%w: %s", ErrForbidden, reason) }

// Reason returns the human message carried by a taxonomy error, without the
// sentinel prefix.
func Reason(err error) string {
	msg := err.Error()
	for _, p := range []string{ErrConflict.Error() + ": ", ErrForbidden.Error() + ": "} {
		if strings.HasPrefix(msg, p) {
			return strings.TrimPrefix(msg, p)
		}
	}
	return msg
}
