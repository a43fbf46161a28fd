package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeDeviceOpen        ErrorType = "DEVICE_OPEN"
	ErrTypeRead              ErrorType = "READ"
	ErrTypeWrite             ErrorType = "WRITE"
	ErrTypeChecksumMismatch  ErrorType = "CHECKSUM_MISMATCH"
	ErrTypeLicensesExhausted ErrorType = "LICENSES_EXHAUSTED"
	ErrTypeInvalidArgument   ErrorType = "INVALID_ARGUMENT"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// Sentinels matched by errors.Is against any AppError of the same type.
var (
	ErrDeviceOpen        = errors.New("device open failed")
	ErrRead              = errors.New("license block read failed")
	ErrWrite             = errors.New("license block write failed")
	ErrChecksumMismatch  = errors.New("license checksum validation failed")
	ErrLicensesExhausted = errors.New("no licenses available to decrement")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrConfig            = errors.New("invalid configuration")
)

var sentinels = map[ErrorType]error{
	ErrTypeDeviceOpen:        ErrDeviceOpen,
	ErrTypeRead:              ErrRead,
	ErrTypeWrite:             ErrWrite,
	ErrTypeChecksumMismatch:  ErrChecksumMismatch,
	ErrTypeLicensesExhausted: ErrLicensesExhausted,
	ErrTypeInvalidArgument:   ErrInvalidArgument,
	ErrTypeConfig:            ErrConfig,
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's type.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewDeviceOpenError reports a device that could not be opened or located.
func NewDeviceOpenError(path string, cause error) *AppError {
	return NewAppError(ErrTypeDeviceOpen, fmt.Sprintf("could not open device at %s", path), cause).
		WithContext("device", path)
}

// NewReadError reports a failed or short read of the license block.
func NewReadError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRead, message, cause)
}

// NewWriteError reports a failed or short write of the license block.
func NewWriteError(message string, cause error) *AppError {
	return NewAppError(ErrTypeWrite, message, cause)
}

// NewLicensesExhaustedError reports a decrement against a zero count.
func NewLicensesExhaustedError() *AppError {
	return NewAppError(ErrTypeLicensesExhausted, "no licenses available to decrement", nil)
}

// NewInvalidArgumentError creates a validation error for caller input
func NewInvalidArgumentError(message string) *AppError {
	return NewAppError(ErrTypeInvalidArgument, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}
