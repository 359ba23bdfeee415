package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used by the engine and its sinks.
const (
	// CodeRetryExhausted marks an item whose retries exceeded the
	// configured maximum; the underlying error is the item's original
	// failure.
	CodeRetryExhausted = "RETRY_EXHAUSTED"
)

// Error represents a structured engine error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new engine error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RetryExhausted wraps an item's original failure once its retry budget
// is spent. errors.Is/As reach the original through Unwrap.
func RetryExhausted(attempts int, cause error) *Error {
	return &Error{
		Code:    CodeRetryExhausted,
		Message: fmt.Sprintf("item retries exhausted after %d attempts", attempts),
		Err:     cause,
	}
}

// HasCode reports whether err carries the given engine error code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryExhausted checks if an error marks a spent retry budget
func IsRetryExhausted(err error) bool {
	return HasCode(err, CodeRetryExhausted)
}

// IsCanceled checks if an error stems from context cancellation or an
// expired deadline, however deeply wrapped.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
