// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-session.

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode represents specific error conditions reported by the runtime and
// the harness. Codes double as event reasons.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfig
	ErrCodeResource
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeRefused
	ErrCodeRejected
	ErrCodeConnReset
	ErrCodeClosed
	ErrCodeFlushed
	ErrCodeBusy
	ErrCodePrecondition
	ErrCodeInternal
)

var errorStrings = map[ErrorCode]string{
	ErrCodeOK:                "Success",
	ErrCodeConfig:            "Invalid configuration",
	ErrCodeResource:          "Resource allocation failed",
	ErrCodeResourceExhausted: "Resource exhausted",
	ErrCodeTimeout:           "Operation timed out",
	ErrCodeRefused:           "Connection refused",
	ErrCodeRejected:          "Session rejected",
	ErrCodeConnReset:         "Connection reset by peer",
	ErrCodeClosed:            "Connection closed",
	ErrCodeFlushed:           "Message flushed",
	ErrCodeBusy:              "Resource busy",
	ErrCodePrecondition:      "Precondition violated",
	ErrCodeInternal:          "Internal error",
}

// StrError returns the human-readable description of an error code.
func StrError(code ErrorCode) string {
	if s, ok := errorStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown error %d", int(code))
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string { return StrError(c) }

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode carried by err, looking through wrapping done
// with github.com/pkg/errors or fmt.Errorf("%w"). Nil maps to ErrCodeOK and
// foreign errors to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool { return err != nil && CodeOf(err) == ErrCodeConfig }

// IsResourceError reports whether err is a ResourceError (allocation failure
// or exhaustion).
func IsResourceError(err error) bool {
	c := CodeOf(err)
	return err != nil && (c == ErrCodeResource || c == ErrCodeResourceExhausted)
}
