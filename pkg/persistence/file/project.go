package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
)

const projectsDir = "projects"

// ProjectRepository handles project file operations.
type ProjectRepository struct {
	root string
	mu   sync.RWMutex
}

func NewProjectRepository(root string) *ProjectRepository {
	return &ProjectRepository{root: root}
}

func (pr *ProjectRepository) dir() string {
	return filepath.Join(pr.root, projectsDir)
}

func (pr *ProjectRepository) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", persistence.NewProjectError("Path", id, persistence.ErrInvalidProjectID)
	}

	return filepath.Join(pr.dir(), id+".json"), nil
}

// List returns filtered, sorted and paginated projects. Everything is done in memory.
func (pr *ProjectRepository) List(ctx context.Context, opts persistence.ListProjectsOptions) (*persistence.ProjectListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, persistence.NewProjectError("List", "", err)
	}

	jsonFiles, err := fs.Glob(os.DirFS(pr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}

	filtered := make([]*models.Project, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		project, err := pr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if project == nil {
			continue
		}

		if opts.OwnerID != "" && project.Owner != opts.OwnerID {
			continue
		}

		filtered = append(filtered, project)
	}

	sortProjects(filtered, opts.SortBy, opts.SortOrder)

	total := len(filtered)
	result := &persistence.ProjectListResult{
		Projects:   make([]*models.Project, 0),
		TotalCount: int64(total),
	}

	if opts.Offset >= total {
		return result, nil
	}

	end := min(opts.Offset+opts.Limit, total)
	result.Projects = filtered[opts.Offset:end]
	result.HasNextPage = end < total

	return result, nil
}

func sortProjects(projects []*models.Project, sortBy, sortOrder string) {
	sort.SliceStable(projects, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = projects[i].UpdatedAt.Before(projects[j].UpdatedAt)
		case "name":
			less = projects[i].Name < projects[j].Name
		default:
			less = projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID retrieves a project by its ID. A missing project is nil, nil.
func (pr *ProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	filePath, err := pr.path(id)
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	pr.mu.RLock()
	body, err := os.ReadFile(filePath)
	pr.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewProjectError("GetByID", id, err)
	}

	var project models.Project

	if err := json.Unmarshal(body, &project); err != nil {
		return nil, persistence.NewProjectError("GetByID", id, fmt.Errorf("failed to unmarshal project: %w", err))
	}

	return &project, nil
}

// Save writes the project, stamping CreatedAt on first save and UpdatedAt always.
func (pr *ProjectRepository) Save(_ context.Context, project *models.Project) error {
	filePath, err := pr.path(project.ID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(pr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create projects directory: %w", err)
	}

	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return persistence.NewProjectError("Save", project.ID, fmt.Errorf("failed to marshal project: %w", err))
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewProjectError("Save", project.ID, err)
	}

	return nil
}

// Delete removes a project. Deleting a missing project is not an error.
func (pr *ProjectRepository) Delete(_ context.Context, id string) error {
	filePath, err := pr.path(id)
	if err != nil {
		return nil //nolint:nilerr
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewProjectError("Delete", id, err)
	}

	return nil
}
