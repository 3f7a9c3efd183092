package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainStructuralError indicates a malformed screen document
	DomainStructuralError DomainErrorType = "STRUCTURAL_ERROR"

	// DomainStateError indicates an illegal state transition
	DomainStateError DomainErrorType = "STATE_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError, DomainStructuralError:
		return http.StatusBadRequest
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainConflictError, DomainStateError:
		return http.StatusConflict
	case DomainInfrastructureError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationErrors accumulates field-level failures so a malformed screen is
// reported once, with everything that is wrong with it
type ValidationErrors struct {
	errors []*DomainError
}

// NewValidationErrors creates an empty validation error collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{errors: []*DomainError{}}
}

// Add records a field failure
func (v *ValidationErrors) Add(field, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_INVALID", message)
	err.WithDetail("field", field)
	v.errors = append(v.errors, err)
}

// AddError records an existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.errors = append(v.errors, err)
}

// HasErrors reports whether any failure was recorded
func (v *ValidationErrors) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the recorded failures
func (v *ValidationErrors) Errors() []*DomainError {
	return v.errors
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.errors) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(v.errors))
	for _, e := range v.errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// AsError returns the collection as an error, or nil when empty
func (v *ValidationErrors) AsError() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
