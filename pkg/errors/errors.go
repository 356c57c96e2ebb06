// Package errors provides the unified error type and factory functions used
// across the tariff dashboard.  Every layer (domain, application,
// infrastructure, interfaces) returns AppError so that HTTP responses, CLI
// output and logs render failures consistently.
package errors

import (
	"errors"
	"fmt"
)

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type of the module.  It supports
// errors.Is / errors.As through Unwrap.
//
// Usage:
//
//	return errors.New(errors.ErrCodeNodeNotFound, "node china/x not found")
//	return errors.Wrap(err, errors.ErrCodeReferenceLoad, "entries table unreadable")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the human-readable description returned to callers.
	Message string

	// Detail carries supplementary context (ids, file names).
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when empty.
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same code and message, so copies made
// by WithDetail and WithCause still match their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err in an AppError.  If err is nil, Wrap returns nil so it can be
// used directly in return statements.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// IsNotFound reports whether err carries a not-found style code.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound) || IsCode(err, ErrCodeNodeNotFound)
}

// IsLoadError reports whether err is a dataset LoadError.
func IsLoadError(err error) bool {
	return ModuleForCode(GetCode(err)) == "LOAD"
}

// GetCode returns the code of the outermost AppError in err's chain, or
// ErrCodeInternal for foreign errors.  A nil error yields the empty code.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience constructors
// ─────────────────────────────────────────────────────────────────────────────

// NotFound is a shorthand for New(ErrCodeNotFound, message).
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// InvalidParam is a shorthand for New(ErrCodeBadRequest, message).
func InvalidParam(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

// Unauthorized is a shorthand for New(ErrCodeUnauthorized, message).
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// Internal is a shorthand for New(ErrCodeInternal, message).
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Unavailable is a shorthand for New(ErrCodeServiceUnavailable, message).
func Unavailable(message string) *AppError {
	return New(ErrCodeServiceUnavailable, message)
}
