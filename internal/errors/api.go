package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates a new APIError with the given parameters
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// statusFor maps pipeline error types onto HTTP status codes. Precondition
// and schema problems are client errors; storage is the server's fault.
func statusFor(errType ErrorType) int {
	switch errType {
	case ErrTypeLoad, ErrTypeSchema, ErrTypeJoin, ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeReshape, ErrTypeAggregation:
		return http.StatusUnprocessableEntity
	case ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToAPIError converts any error into a renderable APIError. AppError types
// keep their classification; everything else becomes a 500.
func ToAPIError(err error) *APIError {
	if appErr, ok := err.(*AppError); ok {
		return &APIError{
			StatusCode: statusFor(appErr.Type),
			ErrorCode:  string(appErr.Type),
			Message:    appErr.Message,
			Details:    appErr.Context,
		}
	}
	return NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
