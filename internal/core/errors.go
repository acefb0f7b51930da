package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a client error (400)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeNotFound indicates a missing form or submission (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeConflict indicates a uniqueness violation such as a duplicate
	// form name or email (400, matching the original API surface)
	ErrorTypeConflict ErrorType = "conflict_error"
	// ErrorTypeValidation indicates the payload failed schema validation (422).
	// This is a normal, expected outcome, not a system fault.
	ErrorTypeValidation ErrorType = "validation_error"
)

// APIError is the base error type for all request-level errors.
type APIError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Errors holds the per-field validation messages for validation errors.
	Errors []string `json:"errors,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeInvalidRequest, ErrorTypeConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to its response body. Validation errors carry
// the structured message list; everything else uses the detail shape.
func (e *APIError) ToJSON() map[string]interface{} {
	if e.Type == ErrorTypeValidation {
		return map[string]interface{}{
			"message": e.Message,
			"errors":  e.Errors,
		}
	}
	return map[string]interface{}{
		"detail": e.Message,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error. The original API reports
// duplicate names and emails as 400, so that status is kept.
func NewConflictError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewValidationError creates a new validation error (422) carrying the
// per-field messages produced by the validation engine.
func NewValidationError(errs []string) *APIError {
	return &APIError{
		Type:       ErrorTypeValidation,
		Message:    "Validation failed",
		StatusCode: http.StatusUnprocessableEntity,
		Errors:     errs,
	}
}
