package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Common reusable application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict: resource already exists")
	ErrInternal         = errors.New("internal server error")
	ErrRateLimited      = errors.New("too many requests")
	ErrSessionExpired   = errors.New("session expired or invalid")
	ErrBadRequest       = errors.New("bad request")
	ErrDuplicateEntry   = errors.New("duplicate entry")
	ErrPersistence      = errors.New("persistence failure")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// ValidationError reports malformed or missing input. Nothing is persisted
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// PersistenceError wraps a store read/write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// InvalidTimestampError is returned for zero or out-of-range times.
type InvalidTimestampError struct {
	Value string
}

func NewInvalidTimestampError(t time.Time) *InvalidTimestampError {
	if t.IsZero() {
		return &InvalidTimestampError{Value: "zero time"}
	}
	return &InvalidTimestampError{Value: t.Format(time.RFC3339Nano)}
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp: %s", e.Value)
}

func (e *InvalidTimestampError) Is(target error) bool {
	return target == ErrInvalidTimestamp
}

// AuthorizationError is returned when a caller touches data outside its
// account scope.
type AuthorizationError struct {
	AccountID string
	Resource  string
}

func NewAuthorizationError(accountID, resource string) *AuthorizationError {
	return &AuthorizationError{AccountID: accountID, Resource: resource}
}

func (e *AuthorizationError) Error() string {
	if e.AccountID == "" {
		return fmt.Sprintf("no account scope for %s", e.Resource)
	}
	return fmt.Sprintf("account %s may not access %s", e.AccountID, e.Resource)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrForbidden
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As re-exported so callers don't need both packages.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
