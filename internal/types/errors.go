package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Savo framework errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Schema registry error codes
const (
	SCHEMA_LOAD_FAILED  ErrorCode = "SCHEMA_LOAD_FAILED"
	SCHEMA_PARSE_FAILED ErrorCode = "SCHEMA_PARSE_FAILED"
	SCHEMA_NOT_FOUND    ErrorCode = "SCHEMA_NOT_FOUND"
)

// Task registry error codes
const (
	TASK_LOAD_FAILED      ErrorCode = "TASK_LOAD_FAILED"
	TASK_PARSE_FAILED     ErrorCode = "TASK_PARSE_FAILED"
	TASK_NOT_FOUND        ErrorCode = "TASK_NOT_FOUND"
	TASK_BINDING_FAILED   ErrorCode = "TASK_BINDING_FAILED"
	TASK_TEMPLATE_INVALID ErrorCode = "TASK_TEMPLATE_INVALID"
)

// SavoError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type SavoError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *SavoError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *SavoError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a SavoError with the same Code.
func (e *SavoError) Is(target error) bool {
	var savoErr *SavoError
	if errors.As(target, &savoErr) {
		return e.Code == savoErr.Code
	}
	return false
}

// NewError creates a new non-retryable SavoError with the given code and message.
func NewError(code ErrorCode, message string) *SavoError {
	return &SavoError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable SavoError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *SavoError {
	return &SavoError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable SavoError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *SavoError {
	return &SavoError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns the empty string if the chain contains no SavoError.
func CodeOf(err error) ErrorCode {
	var savoErr *SavoError
	if errors.As(err, &savoErr) {
		return savoErr.Code
	}
	return ""
}
