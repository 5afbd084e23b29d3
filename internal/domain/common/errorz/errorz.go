package errorz

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrReconcileFailed = errors.New("notification reconciliation incomplete")
)

// ValidationError is returned before any write when caller input is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a store failure (constraint violation, I/O).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err as a PersistenceError, keeping nil as nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotificationBackendError describes a failed call to the notification backend.
// It is recorded for diagnostics and never returned from user-facing operations.
type NotificationBackendError struct {
	Op  string
	Key string
	Err error
}

func (e *NotificationBackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("notification backend: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("notification backend: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *NotificationBackendError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
