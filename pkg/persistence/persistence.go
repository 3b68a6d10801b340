// Package persistence provides the storage abstraction for projects and the workflows
// they embed.
package persistence

import (
	"context"

	"github.com/dukex/chatflow/pkg/models"
)

type Persistence interface {
	Projects(ctx context.Context, opts ListProjectsOptions) (*ProjectListResult, error)
	SaveProject(ctx context.Context, project *models.Project) error
	// ProjectByID returns nil, nil when the project does not exist.
	ProjectByID(ctx context.Context, id string) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListProjectsOptions filters, sorts and paginates project listings.
type ListProjectsOptions struct {
	OwnerID   string
	SortBy    string // created_at, updated_at or name
	SortOrder string // asc or desc
	Limit     int
	Offset    int
}

type ProjectListResult struct {
	Projects    []*models.Project `json:"projects"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

var sortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// Normalize fills defaults and rejects sort parameters outside the allowlist, so
// implementations may interpolate SortBy and SortOrder into queries.
func (o ListProjectsOptions) Normalize() (ListProjectsOptions, error) {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	if !sortFields[o.SortBy] {
		return o, ErrInvalidSortField
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return o, ErrInvalidSortOrder
	}

	return o, nil
}
