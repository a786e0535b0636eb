// Package errors provides structured errors with stable codes so callers
// can branch on failure category without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for categorizing failures.
const (
	ErrConfig     = "CONFIG"     // bad or missing configuration
	ErrNotFound   = "NOT_FOUND"  // unknown server, credential, or service
	ErrConnection = "CONNECTION" // remote auth, DNS, or network failure
	ErrTimeout    = "TIMEOUT"    // operation exceeded its deadline
	ErrCheck      = "CHECK"      // runner-internal failure
	ErrSession    = "SESSION"    // session proxy failure
)

// Error is a categorized error with an optional underlying cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// New creates a structured error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err is (or wraps) a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Code returns the code of a structured error, or empty for other errors.
func Code(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
