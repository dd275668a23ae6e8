package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeDashboardError = "DASHBOARD_ERROR"
	CodeAPIError       = "API_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStorage        = "STORAGE_ERROR"
)

type DashboardError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

func NewDashboardError(message, code string, statusCode int, context map[string]any) *DashboardError {
	return &DashboardError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *DashboardError) WithCause(cause error) *DashboardError {
	e.Cause = cause
	return e
}

// APIError covers transport failures, non-2xx responses and bodies reporting success=false.
type APIError struct {
	*DashboardError
	Operation string
}

func NewAPIError(message, operation string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		DashboardError: NewDashboardError(message, CodeAPIError, statusCode, context),
		Operation:      operation,
	}
}

func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

// ValidationError is a local precondition failure; no request was issued.
type ValidationError struct {
	*DashboardError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		DashboardError: &DashboardError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type StorageError struct {
	*DashboardError
	Operation string
	Key       string
}

func NewStorageError(message, operation, key string, cause error) *StorageError {
	return &StorageError{
		DashboardError: &DashboardError{
			Message:    message,
			Code:       CodeStorage,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

// Message returns the human-readable text surfaced in store state. Typed errors
// yield their own message without the wrapped cause; anything else falls back
// to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.DashboardError != nil {
		return apiErr.Message
	}
	var valErr *ValidationError
	if stderrors.As(err, &valErr) && valErr.DashboardError != nil {
		return valErr.Message
	}
	var stErr *StorageError
	if stderrors.As(err, &stErr) && stErr.DashboardError != nil {
		return stErr.Message
	}
	var de *DashboardError
	if stderrors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// IsValidation reports whether err is a local precondition failure.
func IsValidation(err error) bool {
	var valErr *ValidationError
	return stderrors.As(err, &valErr)
}

// StatusCode extracts the HTTP status carried by a typed error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.DashboardError != nil {
		return apiErr.StatusCode
	}
	var de *DashboardError
	if stderrors.As(err, &de) {
		return de.StatusCode
	}
	return 0
}
