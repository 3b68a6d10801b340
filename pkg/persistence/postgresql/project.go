package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

const projectColumns = `
			id
		  , name
		  , description
		  , owner
		  , website_url
		  , api_whitelist
		  , persona
		  , workflow
		  , created_at
		  , updated_at`

// ProjectRepository handles project database operations.
type ProjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProjectRepository(db *sql.DB, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		project      models.Project
		whitelistRaw []byte
		personaRaw   []byte
		workflowRaw  []byte
	)

	err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.Owner,
		&project.WebsiteURL,
		&whitelistRaw,
		&personaRaw,
		&workflowRaw,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(whitelistRaw) > 0 {
		if err := json.Unmarshal(whitelistRaw, &project.APIWhitelist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal api whitelist: %w", err)
		}
	}

	if len(personaRaw) > 0 {
		if err := json.Unmarshal(personaRaw, &project.Persona); err != nil {
			return nil, fmt.Errorf("failed to unmarshal persona: %w", err)
		}
	}

	if len(workflowRaw) > 0 {
		if err := json.Unmarshal(workflowRaw, &project.Workflow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}
	}

	return &project, nil
}

// List returns filtered, sorted and paginated projects.
func (r *ProjectRepository) List(ctx context.Context, opts persistence.ListProjectsOptions) (*persistence.ProjectListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, persistence.NewProjectError("List", "", err)
	}

	where := "WHERE deleted_at IS NULL"
	args := []any{}

	if opts.OwnerID != "" {
		where += " AND owner = $1"

		args = append(args, opts.OwnerID)
	}

	var total int64

	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	// SortBy and SortOrder are allowlisted by Normalize.
	query := fmt.Sprintf(`SELECT %s FROM projects %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		projectColumns, where, opts.SortBy, opts.SortOrder, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	projects := make([]*models.Project, 0)

	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return &persistence.ProjectListResult{
		Projects:    projects,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(projects)) < total,
	}, nil
}

// GetByID returns the project or nil, nil when it does not exist or was deleted.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL`

	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewProjectError("GetByID", id, err)
	}

	return project, nil
}

// Save upserts the project. Saving a soft deleted id brings it back.
func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		return persistence.NewProjectError("Save", "", persistence.ErrInvalidProjectID)
	}

	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now

	whitelist := project.APIWhitelist
	if whitelist == nil {
		whitelist = []string{}
	}

	whitelistJSON, err := json.Marshal(whitelist)
	if err != nil {
		return fmt.Errorf("failed to marshal api whitelist: %w", err)
	}

	personaJSON, err := nullableJSON(project.Persona)
	if err != nil {
		return fmt.Errorf("failed to marshal persona: %w", err)
	}

	workflowJSON, err := nullableJSON(project.Workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	query := `
		INSERT INTO projects (id, name, description, owner, website_url, api_whitelist,
persona, workflow, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			owner = EXCLUDED.owner,
			website_url = EXCLUDED.website_url,
			api_whitelist = EXCLUDED.api_whitelist,
			persona = EXCLUDED.persona,
			workflow = EXCLUDED.workflow,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Owner,
		project.WebsiteURL,
		whitelistJSON,
		personaJSON,
		workflowJSON,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return persistence.NewProjectError("Save", project.ID, err)
	}

	return nil
}

// nullableJSON encodes v, mapping a nil pointer to SQL NULL.
func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}

	return json.Marshal(v)
}

// Delete soft deletes a project. Deleting a missing project is not an error.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE projects SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewProjectError("Delete", id, err)
	}

	return nil
}
