package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a RuntimeError, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a structured error, preserve its properties
	var rtErr *Error
	if errors.As(err, &rtErr) {
		wrapped := &Error{
			code:        rtErr.code,
			category:    rtErr.category,
			message:     message,
			cause:       err,
			metadata:    rtErr.Metadata(),
			retryable:   rtErr.retryable,
			agentID:     rtErr.agentID,
			executionID: rtErr.executionID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsRuntimeError attempts to extract a RuntimeError from an error chain.
// Returns nil if none is found.
func AsRuntimeError(err error) RuntimeError {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.category == category
	}
	return false
}
