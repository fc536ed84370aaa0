package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code for Papertrail errors.
type ErrorCode string

// Workflow definition and engine error codes
const (
	DEFINITION_INVALID      ErrorCode = "DEFINITION_INVALID"
	DEFINITION_NOT_FOUND    ErrorCode = "DEFINITION_NOT_FOUND"
	INSTANCE_NOT_FOUND      ErrorCode = "INSTANCE_NOT_FOUND"
	INSTANCE_TERMINAL       ErrorCode = "INSTANCE_TERMINAL"
	CONCURRENT_MODIFICATION ErrorCode = "CONCURRENT_MODIFICATION"
)

// Action dispatch error codes
const (
	ACTION_DISPATCH_FAILED ErrorCode = "ACTION_DISPATCH_FAILED"
	DELIVERY_FAILED        ErrorCode = "DELIVERY_FAILED"
	REPORT_FAILED          ErrorCode = "REPORT_FAILED"
)

// Verification error codes
const (
	VERIFICATION_UNAVAILABLE ErrorCode = "VERIFICATION_UNAVAILABLE"
	SIGNATURE_INVALID        ErrorCode = "SIGNATURE_INVALID"
	TRUST_STORE_INVALID      ErrorCode = "TRUST_STORE_INVALID"
)

// Audit trail error codes
const (
	CHAIN_CORRUPTED     ErrorCode = "CHAIN_CORRUPTED"
	AUDIT_APPEND_FAILED ErrorCode = "AUDIT_APPEND_FAILED"
)

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// PapertrailError is a structured error carrying an error code, message, a
// retryability hint, and an optional cause. It supports errors.Is/errors.As
// matching by code.
type PapertrailError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error returns "[CODE] message" or "[CODE] message: cause".
func (e *PapertrailError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping chains.
func (e *PapertrailError) Unwrap() error {
	return e.Cause
}

// Is matches target by error code.
func (e *PapertrailError) Is(target error) bool {
	var pe *PapertrailError
	if errors.As(target, &pe) {
		return e.Code == pe.Code
	}
	return false
}

// NewError creates a non-retryable PapertrailError.
func NewError(code ErrorCode, message string) *PapertrailError {
	return &PapertrailError{Code: code, Message: message}
}

// NewErrorf creates a non-retryable PapertrailError with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *PapertrailError {
	return &PapertrailError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a PapertrailError wrapping a cause.
func WrapError(code ErrorCode, message string, cause error) *PapertrailError {
	return &PapertrailError{Code: code, Message: message, Cause: cause}
}

// NewRetryableError creates a PapertrailError marked as retryable.
func NewRetryableError(code ErrorCode, message string, cause error) *PapertrailError {
	return &PapertrailError{Code: code, Message: message, Retryable: true, Cause: cause}
}

// IsRetryable reports whether err (or any error in its chain) is a
// PapertrailError marked retryable.
func IsRetryable(err error) bool {
	var pe *PapertrailError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CodeOf returns the error code of err if it is a PapertrailError, or an
// empty code otherwise.
func CodeOf(err error) ErrorCode {
	var pe *PapertrailError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
