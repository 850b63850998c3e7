package errors

import (
	"fmt"
)

// ErrorType classifies pipeline failures so callers can branch on the
// failing stage without string matching.
type ErrorType string

const (
	ErrTypeLoad        ErrorType = "LOAD"
	ErrTypeSchema      ErrorType = "SCHEMA"
	ErrTypeJoin        ErrorType = "JOIN"
	ErrTypeReshape     ErrorType = "RESHAPE"
	ErrTypeAggregation ErrorType = "AGGREGATION"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
)

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

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// Helper functions for the pipeline error kinds

// NewLoadError creates an error for a missing, unreadable, or malformed
// CSV source.
func NewLoadError(message string, cause error) *AppError {
	return NewAppError(ErrTypeLoad, message, cause)
}

// NewSchemaError creates an error for column rename collisions or
// unexpected table shape.
func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

// NewJoinError creates an error for unresolvable join keys.
func NewJoinError(message string, cause error) *AppError {
	return NewAppError(ErrTypeJoin, message, cause)
}

// NewReshapeError creates an error for a pivot that would produce no rows.
func NewReshapeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeReshape, message, cause)
}

// NewAggregationError creates an error for malformed statistics input.
func NewAggregationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeAggregation, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
