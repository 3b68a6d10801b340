package models

import "time"

// Project is a configured chat widget. Its workflow, when present, drives every
// conversation started for the project.
type Project struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"                    validate:"required,min=3"`
	Description  string              `json:"description,omitempty"`
	Owner        string              `json:"owner"                   validate:"required"`
	WebsiteURL   string              `json:"website_url,omitempty"   validate:"omitempty,url"`
	APIWhitelist []string            `json:"api_whitelist,omitempty"`
	Persona      *Persona            `json:"persona,omitempty"`
	Workflow     *WorkflowDefinition `json:"workflow,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Persona shapes the system prompt of the project's AI agent.
type Persona struct {
	Tone               string `json:"tone,omitempty"                validate:"omitempty,oneof=friendly professional casual empathetic enthusiastic concise"`
	AgentType          string `json:"agent_type,omitempty"          validate:"omitempty,oneof=general support sales technical tutor"`
	ResponseLength     string `json:"response_length,omitempty"     validate:"omitempty,oneof=short medium detailed"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}
