package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// ContextError annotates an error with the operation that produced it.
// The full chain of annotations is included in the error message, and the
// original error remains accessible via Unwrap.
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return fmt.Sprintf("%s: %s", err.Context, err.Err)
}

// Unwrap returns the wrapped error.
func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps err with a short description of the operation that
// failed. It returns nil if err is nil so that it can be used directly on
// return values.
func WithContext(err error, msg string) error {
	if err == nil {
		return nil
	}
	return ContextError{Context: msg, Err: err}
}

// FriendlyError is an error message that can be shown directly to users
// without any additional context on the internal failure.
type FriendlyError struct {
	Message string
}

// NewFriendlyError creates a new FriendlyError.
func NewFriendlyError(format string, args ...interface{}) FriendlyError {
	return FriendlyError{Message: fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.Message
}

// FriendlyMessage returns the user-facing message.
func (err FriendlyError) FriendlyMessage() string {
	return err.Message
}

type friendlier interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be shown to users.
// If any error in the chain has a friendly message, that message is used.
// Otherwise the raw error string is returned.
func GetPrintableMessage(err error) string {
	for curr := err; curr != nil; curr = goErrors.Unwrap(curr) {
		if friendly, ok := curr.(friendlier); ok {
			return friendly.FriendlyMessage()
		}
	}
	return err.Error()
}

// As is a convenience re-export of the standard library's errors.As so that
// callers don't need to import both error packages to match typed errors.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// Is re-exports the standard library's errors.Is.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}
