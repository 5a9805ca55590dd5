// Package apperr provides error code definitions shared across the edlsync core.
package apperr

import (
	"errors"
	"fmt"
)

// Code represents a stable, machine-readable error code.
type Code string

const (
	// General errors
	ErrInternal   Code = "INTERNAL_ERROR"
	ErrInvalid    Code = "INVALID_INPUT"
	ErrNotFound   Code = "NOT_FOUND"
	ErrValidation Code = "VALIDATION_ERROR"

	// Store errors
	ErrStore     Code = "STORE_ERROR"
	ErrMigration Code = "MIGRATION_FAILED"

	// Record errors
	ErrEDLNotFound        Code = "EDL_NOT_FOUND"
	ErrInspectionNotFound Code = "INSPECTION_NOT_FOUND"

	// Remote errors
	ErrRemoteUnavailable Code = "REMOTE_UNAVAILABLE"
	ErrRemoteTimeout     Code = "REMOTE_TIMEOUT"
	ErrRemoteStatus      Code = "REMOTE_STATUS"
	ErrAuthFailed        Code = "AUTH_FAILED"

	// Sync errors
	ErrSyncFailed    Code = "SYNC_FAILED"
	ErrSyncAbandoned Code = "SYNC_ABANDONED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var appErr *AppError
	for errors.As(err, &appErr) {
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
		appErr = nil
	}
	return false
}

// IsNotFound reports whether err is any of the not-found codes.
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound) || Is(err, ErrEDLNotFound) || Is(err, ErrInspectionNotFound)
}
