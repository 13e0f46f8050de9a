package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBudget     ErrorType = "budget"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeRouting    ErrorType = "routing"
	ErrorTypeInternal   ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors
	ErrInvalidTranscript = NewDomainError(ErrorTypeValidation, "transcript is empty or malformed", nil)

	// Budget errors
	ErrBudgetExceeded = NewDomainError(ErrorTypeBudget, "budget exceeded", nil)

	// Routing errors
	ErrProviderNotRegistered = NewDomainError(ErrorTypeRouting, "provider not registered", nil)
	ErrProviderUnavailable   = NewDomainError(ErrorTypeRouting, "provider unavailable", nil)
	ErrAllProvidersFailed    = NewDomainError(ErrorTypeRouting, "all providers failed", nil)

	// External provider errors
	ErrProviderExecution = NewDomainError(ErrorTypeExternal, "provider execution failed", nil)
)

// IsBudgetError checks if an error is a budget error
func IsBudgetError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeBudget
	}
	return false
}

// IsRoutingError checks if an error is a routing error
func IsRoutingError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeRouting
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}
