// Package services provides the project and conversation use cases behind the HTTP API
// and the CLI.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/session"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrEmptyOwnerID     = errors.New("owner ID cannot be empty")
	ErrProjectNil       = errors.New("project cannot be nil")
	ErrWorkflowNil      = errors.New("workflow cannot be nil")
	ErrEmptyMessage     = errors.New("message cannot be empty")

	// Not Found (404).
	ErrProjectNotFound = persistence.ErrProjectNotFound
	ErrSessionNotFound = session.ErrSessionNotFound

	// Business Logic Conflicts (409 Conflict).
	ErrSessionExists = errors.New("session already exists")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrProjectNil) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrEmptyMessage)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionExists)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
