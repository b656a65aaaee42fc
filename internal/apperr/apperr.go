package apperr

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Authentication
	ErrCodeAuth ErrorCode = "AUTH_ERROR"

	// Storage
	ErrCodeStorage        ErrorCode = "STORAGE_ERROR"
	ErrCodeStorageCorrupt ErrorCode = "STORAGE_CORRUPT"

	// Backend fetch
	ErrCodeFetch    ErrorCode = "FETCH_ERROR"
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error carried across package boundaries
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func Auth(message string) *AppError {
	return New(ErrCodeAuth, message)
}

// AuthUnreachable covers connection failures and malformed responses during
// login or register. They travel the same channel as a server rejection,
// differing only in message text.
func AuthUnreachable(cause error) *AppError {
	return Wrap(ErrCodeAuth, "Authentication service unreachable", cause)
}

func Storage(operation string, cause error) *AppError {
	return Wrap(ErrCodeStorage, fmt.Sprintf("Storage %s failed", operation), cause)
}

func StorageCorrupt(key string, cause error) *AppError {
	return Wrap(ErrCodeStorageCorrupt, fmt.Sprintf("Stored value for %q is unreadable", key), cause)
}

func Fetch(resource string, cause error) *AppError {
	return Wrap(ErrCodeFetch, fmt.Sprintf("Failed to fetch %s", resource), cause)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// UserMessage returns the message suitable for display, falling back to a
// generic line for non-AppError values.
func UserMessage(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Message
	}
	return "An unexpected error occurred"
}
