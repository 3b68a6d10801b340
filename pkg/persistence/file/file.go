// Package file provides a file-based persistence implementation: one JSON document per
// project under <root>/projects.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	projectRepo *ProjectRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		projectRepo: NewProjectRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Projects(ctx context.Context, opts persistence.ListProjectsOptions) (*persistence.ProjectListResult, error) {
	return fp.projectRepo.List(ctx, opts)
}

func (fp *Persistence) SaveProject(ctx context.Context, project *models.Project) error {
	return fp.projectRepo.Save(ctx, project)
}

func (fp *Persistence) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	return fp.projectRepo.GetByID(ctx, id)
}

func (fp *Persistence) DeleteProject(ctx context.Context, id string) error {
	return fp.projectRepo.Delete(ctx, id)
}
