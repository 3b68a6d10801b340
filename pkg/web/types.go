// Package web provides HTTP request and response types for the chatflow API.
package web

import (
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/services"
	"github.com/dukex/chatflow/pkg/workflow"
)

// CreateProjectRequest represents the request body for creating a new project.
type CreateProjectRequest struct {
	Name         string                     `json:"name"                    validate:"required,min=3"`
	Description  string                     `json:"description"`
	Owner        string                     `json:"owner"                   validate:"required"`
	WebsiteURL   string                     `json:"website_url,omitempty"   validate:"omitempty,url"`
	APIWhitelist []string                   `json:"api_whitelist,omitempty"`
	Persona      *models.Persona            `json:"persona,omitempty"`
	Workflow     *models.WorkflowDefinition `json:"workflow,omitempty"`
}

// Project converts the request to the model handed to the project service.
func (r CreateProjectRequest) Project() *models.Project {
	return &models.Project{
		Name:         r.Name,
		Description:  r.Description,
		Owner:        r.Owner,
		WebsiteURL:   r.WebsiteURL,
		APIWhitelist: r.APIWhitelist,
		Persona:      r.Persona,
		Workflow:     r.Workflow,
	}
}

// UpdateProjectRequest represents the request body for updating an existing project.
// All fields are optional to support partial updates.
type UpdateProjectRequest struct {
	Name         *string         `json:"name,omitempty"          validate:"omitempty,min=3"`
	Description  *string         `json:"description,omitempty"`
	WebsiteURL   *string         `json:"website_url,omitempty"   validate:"omitempty,url"`
	APIWhitelist []string        `json:"api_whitelist,omitempty"`
	Persona      *models.Persona `json:"persona,omitempty"`
}

func (r UpdateProjectRequest) Patch() services.ProjectPatch {
	return services.ProjectPatch{
		Name:         r.Name,
		Description:  r.Description,
		WebsiteURL:   r.WebsiteURL,
		APIWhitelist: r.APIWhitelist,
		Persona:      r.Persona,
	}
}

// StartSessionRequest optionally names the session to open.
type StartSessionRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// WorkflowResponse is returned by the workflow update endpoint.
type WorkflowResponse struct {
	Project    *models.Project           `json:"project"`
	Validation workflow.ValidationResult `json:"validation"`
}
