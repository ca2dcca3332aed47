// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "cluster", "vector", "classification"
	Op      string // Operation that failed, e.g., "Save", "Classify"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Cluster domain errors
var (
	ErrClusterNotFound    = NewDomainError("cluster", "Find", ErrNotFound, "cluster not found")
	ErrClusterNameEmpty   = NewDomainError("cluster", "Validate", ErrEmptyValue, "cluster name is required")
	ErrClusterRangeBounds = NewDomainError("cluster", "Validate", ErrValueOutOfRange, "dimension lower bound above upper bound")
)

// Vector domain errors
var (
	ErrVectorNotFound = NewDomainError("vector", "Find", ErrNotFound, "student vector not found")
	ErrEmptyStudentID = NewDomainError("vector", "Validate", ErrInvalidID, "student ID is required")
)

// Classification domain errors
var (
	ErrClassificationNotFound = NewDomainError("classification", "Find", ErrNotFound, "classification not found")
	ErrNegativeMaxDistance    = NewDomainError("classification", "Validate", ErrValueOutOfRange, "max distance cannot be negative")
)

// Statistics domain errors
var (
	ErrStatisticsNotFound = NewDomainError("stats", "Find", ErrNotFound, "statistics not found")
)

// Pipeline errors
var (
	ErrPipelineRunning     = NewDomainError("pipeline", "Run", ErrInvalidState, "a pipeline run is already in progress")
	ErrEmptyCourseID       = NewDomainError("pipeline", "Validate", ErrInvalidInput, "course ID is required")
	ErrNoDimensionsDefined = NewDomainError("pipeline", "Run", ErrInvalidState, "course structure yielded no dimensions")
)
