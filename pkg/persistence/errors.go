package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound indicates a project was not found by the given identifier.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidProjectID rejects ids that are empty or cannot be used as a storage key.
	ErrInvalidProjectID = errors.New("invalid project id")

	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// ProjectError wraps project storage errors with the operation and project id.
type ProjectError struct {
	Op        string // GetByID, Save, Delete, List
	ProjectID string
	Err       error
}

func (e *ProjectError) Error() string {
	if e.ProjectID == "" {
		return fmt.Sprintf("%s operation failed for projects: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for project %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}

func (e *ProjectError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewProjectError(op, projectID string, err error) *ProjectError {
	return &ProjectError{Op: op, ProjectID: projectID, Err: err}
}

// IsProjectNotFound checks if an error indicates a project was not found.
func IsProjectNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}
