// Package errors provides structured error types for peerguard.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the engine
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes describe the failure kind rather than a concrete type:
//   - REGISTRY_FAILURE: a registry answered with a non-retryable status, or the
//     retry budget was exhausted
//   - UNAUTHORIZED / FORBIDDEN: credentials rejected by the registry
//   - CACHE_UNAVAILABLE: no cache backend could be opened or written
//   - OFFLINE_CACHE_MISS: offline mode was requested and a package had no
//     cache entry at all
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeRegistry, cause, "resolve %s", name)
//	if errors.Is(err, errors.ErrCodeUnauthorized) {
//	    // credentials invalid
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPolicy Code = "INVALID_POLICY"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Registry errors
	ErrCodeRegistry    Code = "REGISTRY_FAILURE"
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Authentication errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"

	// Cache errors
	ErrCodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
	ErrCodeOfflineMiss      Code = "OFFLINE_CACHE_MISS"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Status  int    // HTTP status observed from a registry, 0 if none
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// WithStatus records the HTTP status that produced the error and returns e.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Is reports whether any *Error in err's chain has the given code.
// A registry failure caused by an auth failure matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetStatus returns the first non-zero registry status in err's chain.
func GetStatus(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Status != 0 {
			return e.Status
		}
		err = e.Cause
	}
	return 0
}

// IsAuth reports whether err was caused by rejected registry credentials.
func IsAuth(err error) bool {
	return Is(err, ErrCodeUnauthorized) || Is(err, ErrCodeForbidden)
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if IsAuth(err) {
			return e.Message + ": registry credentials invalid"
		}
		return e.Message
	}
	return err.Error()
}
