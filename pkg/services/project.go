package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/metrics"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Project struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewProject creates the project service. publisher may be nil.
func NewProject(p persistence.Persistence, publisher eventbus.EventPublisher, m *metrics.Metrics) *Project {
	if publisher == nil {
		publisher = eventbus.Discard
	}

	return &Project{
		persistence: p,
		publisher:   publisher,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		metrics:     m,
		logger:      log.WithModule("project_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Project) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListProjectsRequest contains options for listing projects.
type ListProjectsRequest struct {
	Limit     int
	Offset    int
	OwnerID   string
	SortBy    string
	SortOrder string
}

type ListProjectsResponse struct {
	Projects    []*models.Project `json:"projects"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

// List retrieves projects with filtering, sorting, and pagination.
func (s *Project) List(ctx context.Context, req ListProjectsRequest) (*ListProjectsResponse, error) {
	opts, err := persistence.ListProjectsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		OwnerID:   strings.TrimSpace(req.OwnerID),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}.Normalize()

	switch {
	case errors.Is(err, persistence.ErrInvalidSortField):
		return nil, NewValidationError("List", "INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, name", req.SortBy), ErrInvalidSortField)
	case errors.Is(err, persistence.ErrInvalidSortOrder):
		return nil, NewValidationError("List", "INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder), ErrInvalidSortOrder)
	case err != nil:
		return nil, err
	}

	if req.OwnerID != "" && opts.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	result, err := s.persistence.Projects(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return &ListProjectsResponse{
		Projects:    result.Projects,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// FetchByID retrieves a project by its ID.
func (s *Project) FetchByID(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.persistence.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return nil, persistence.NewProjectError("FetchByID", id, ErrProjectNotFound)
	}

	return project, nil
}

func (s *Project) validateProject(op string, project *models.Project) error {
	if err := s.validate.Struct(project); err != nil {
		return NewValidationError(op, "INVALID_PROJECT", err.Error(), ErrInvalidRequest)
	}

	return nil
}

// Create stores a new project under a fresh id. A project without a workflow gets the
// default one.
func (s *Project) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project == nil {
		return nil, ErrProjectNil
	}

	if err := s.validateProject("Create", project); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project.ID = uuid.New().String()
	project.CreatedAt = now
	project.UpdatedAt = now

	if project.Workflow == nil {
		project.Workflow = models.NewDefaultWorkflow()
	}

	if err := s.persistence.SaveProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.InfoContext(ctx, "Project created", "project_id", project.ID, "owner", project.Owner)

	return project, nil
}

// ProjectPatch lists the fields Update may change. Nil fields are left alone.
type ProjectPatch struct {
	Name         *string         `json:"name,omitempty"`
	Description  *string         `json:"description,omitempty"`
	WebsiteURL   *string         `json:"website_url,omitempty"`
	APIWhitelist []string        `json:"api_whitelist,omitempty"`
	Persona      *models.Persona `json:"persona,omitempty"`
}

// Update applies patch to an existing project.
func (s *Project) Update(ctx context.Context, id string, patch ProjectPatch) (*models.Project, error) {
	project, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		project.Name = *patch.Name
	}

	if patch.Description != nil {
		project.Description = *patch.Description
	}

	if patch.WebsiteURL != nil {
		project.WebsiteURL = *patch.WebsiteURL
	}

	if patch.APIWhitelist != nil {
		project.APIWhitelist = patch.APIWhitelist
	}

	if patch.Persona != nil {
		project.Persona = patch.Persona
	}

	if err := s.validateProject("Update", project); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// Delete removes a project by its ID.
func (s *Project) Delete(ctx context.Context, id string) error {
	if _, err := s.FetchByID(ctx, id); err != nil {
		return err
	}

	if err := s.persistence.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// UpdateWorkflow replaces the project's workflow. The definition is saved even when
// it has validation errors, so the editor can keep a draft; the report is returned
// alongside.
func (s *Project) UpdateWorkflow(ctx context.Context, id string, definition *models.WorkflowDefinition) (*models.Project, workflow.ValidationResult, error) {
	if definition == nil {
		return nil, workflow.ValidationResult{}, ErrWorkflowNil
	}

	project, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, workflow.ValidationResult{}, err
	}

	report := workflow.Validate(definition)
	s.metrics.RecordValidation(report.Valid)

	project.Workflow = definition

	if err := s.persistence.SaveProject(ctx, project); err != nil {
		return nil, report, fmt.Errorf("failed to update workflow: %w", err)
	}

	event := events.NewWorkflowUpdated(project.ID, report.Valid, len(report.Errors()), len(report.Warnings()), len(definition.Nodes))
	if err := s.publisher.Publish(ctx, project.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish workflow updated event", "project_id", project.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "Workflow updated", "project_id", project.ID, "valid", report.Valid)

	return project, report, nil
}

// Validate runs the validator on the project's stored workflow.
func (s *Project) Validate(ctx context.Context, id string) (workflow.ValidationResult, error) {
	project, err := s.FetchByID(ctx, id)
	if err != nil {
		return workflow.ValidationResult{}, err
	}

	report := workflow.Validate(project.Workflow)
	s.metrics.RecordValidation(report.Valid)

	return report, nil
}
