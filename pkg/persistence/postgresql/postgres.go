// Package postgresql provides the PostgreSQL persistence implementation for projects.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	projectRepo *ProjectRepository
}

// NewPersistence opens the database, checks the connection and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		projectRepo: NewProjectRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Projects(ctx context.Context, opts persistence.ListProjectsOptions) (*persistence.ProjectListResult, error) {
	return p.projectRepo.List(ctx, opts)
}

func (p *Persistence) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	return p.projectRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveProject(ctx context.Context, project *models.Project) error {
	return p.projectRepo.Save(ctx, project)
}

// DeleteProject soft deletes a project by setting its deleted_at timestamp.
func (p *Persistence) DeleteProject(ctx context.Context, id string) error {
	return p.projectRepo.Delete(ctx, id)
}
