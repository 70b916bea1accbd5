package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a standardized error code
type ErrorCode string

// Error codes organized by category
const (
	// Storage errors
	ErrCodeStorageConnection     ErrorCode = "STORAGE_CONNECTION"
	ErrCodeStorageTransaction    ErrorCode = "STORAGE_TRANSACTION"
	ErrCodeStorageConstraint     ErrorCode = "STORAGE_CONSTRAINT"
	ErrCodeStorageInvalidQuery   ErrorCode = "STORAGE_INVALID_QUERY"
	ErrCodeStorageInitialization ErrorCode = "STORAGE_INITIALIZATION"

	// Validation errors
	ErrCodeValidationRequired ErrorCode = "VALIDATION_REQUIRED"
	ErrCodeValidationInvalid  ErrorCode = "VALIDATION_INVALID"
	ErrCodeValidationFormat   ErrorCode = "VALIDATION_FORMAT"
	ErrCodeValidationRange    ErrorCode = "VALIDATION_RANGE"

	// Business logic errors
	ErrCodeEntityNotFound      ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeEntityAlreadyExists ErrorCode = "ENTITY_ALREADY_EXISTS"
	ErrCodeInsufficientCatalog ErrorCode = "INSUFFICIENT_CATALOG"
	ErrCodeStaleSelection      ErrorCode = "STALE_SELECTION"
	ErrCodeInvalidOperation    ErrorCode = "INVALID_OPERATION"

	// Authorization errors
	ErrCodeAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// Transport errors
	ErrCodeTransportSend   ErrorCode = "TRANSPORT_SEND"
	ErrCodeTransportDecode ErrorCode = "TRANSPORT_DECODE"

	// Session errors
	ErrCodeSessionUnavailable ErrorCode = "SESSION_UNAVAILABLE"
	ErrCodeSessionCorrupt     ErrorCode = "SESSION_CORRUPT"

	// System errors
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	ErrCodeContextTimeout  ErrorCode = "CONTEXT_TIMEOUT"
	ErrCodePanic           ErrorCode = "PANIC_RECOVERED"
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION_ERROR"
)

// AppError carries a code, a message that is safe to show in chat and the
// underlying cause.
type AppError struct {
	Code     ErrorCode
	Message  string
	Internal error // not shown to chat users
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is checks if the outermost AppError in err's chain has the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ErrCodeInternal
	}
	return appErr.Code
}

// GetMessage returns a message safe to show to a chat user
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return "An internal error occurred"
	}
	return appErr.Message
}

// GetInternal returns the internal error for logging
func GetInternal(err error) error {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return err
	}
	if appErr.Internal != nil {
		return appErr.Internal
	}
	return appErr
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return Newf(ErrCodeEntityNotFound, "%s not found", resource)
}

// AlreadyExists creates an already exists error
func AlreadyExists(resource string) *AppError {
	return Newf(ErrCodeEntityAlreadyExists, "%s already exists", resource)
}

// ValidationRequired creates a validation required error
func ValidationRequired(field string) *AppError {
	return Newf(ErrCodeValidationRequired, "%s is required", field)
}

// ValidationInvalid creates a validation invalid error
func ValidationInvalid(field, reason string) *AppError {
	return Newf(ErrCodeValidationInvalid, "%s is invalid: %s", field, reason)
}

// Forbidden creates a permission error for the given action
func Forbidden(action string) *AppError {
	return Newf(ErrCodeAuthForbidden, "%s is not allowed", action)
}

// Internal creates an internal error with a safe message
func Internal(internalErr error) *AppError {
	return Wrap(internalErr, ErrCodeInternal, "An internal error occurred")
}

// FromContext maps context cancellation errors onto their codes
func FromContext(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeContextTimeout, "operation timed out")
	default:
		return Wrap(err, ErrCodeContextCanceled, "operation canceled")
	}
}
