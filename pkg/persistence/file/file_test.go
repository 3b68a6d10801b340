package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.ErrorIs(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestPersistence_SaveAndFetchProject(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)

	project := &models.Project{
		ID:           "support-widget",
		Name:         "Support Widget",
		Owner:        "owner-1",
		WebsiteURL:   "https://example.com",
		APIWhitelist: []string{"api.example.com", "*.internal.example.com"},
		Persona:      &models.Persona{Tone: "professional", AgentType: "support"},
		Workflow:     models.NewDefaultWorkflow(),
	}

	require.NoError(t, p.SaveProject(t.Context(), project))
	assert.False(t, project.CreatedAt.IsZero())
	assert.Equal(t, project.CreatedAt, project.UpdatedAt)

	_, err := os.Stat(filepath.Join(testDir, "projects", "support-widget.json"))
	require.NoError(t, err)

	loaded, err := p.ProjectByID(t.Context(), "support-widget")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, project.Name, loaded.Name)
	assert.Equal(t, project.APIWhitelist, loaded.APIWhitelist)
	assert.Equal(t, project.Persona, loaded.Persona)
	require.NotNil(t, loaded.Workflow)
	assert.Equal(t, project.Workflow.Nodes, loaded.Workflow.Nodes)
	assert.Equal(t, project.Workflow.Edges, loaded.Workflow.Edges)

	createdAt := loaded.CreatedAt
	loaded.Name = "Renamed"

	time.Sleep(time.Millisecond)
	require.NoError(t, p.SaveProject(t.Context(), loaded))

	again, err := p.ProjectByID(t.Context(), "support-widget")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.True(t, again.CreatedAt.Equal(createdAt))
	assert.True(t, again.UpdatedAt.After(createdAt))
}

func TestPersistence_ProjectByID_Missing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	project, err := p.ProjectByID(t.Context(), "nope")
	require.NoError(t, err)
	assert.Nil(t, project)

	project, err = p.ProjectByID(t.Context(), "../escape")
	require.NoError(t, err)
	assert.Nil(t, project)
}

func TestPersistence_SaveProject_InvalidID(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.SaveProject(t.Context(), &models.Project{ID: "a/b", Name: "Bad"})
	require.ErrorIs(t, err, persistence.ErrInvalidProjectID)

	err = p.SaveProject(t.Context(), &models.Project{Name: "No id"})
	require.ErrorIs(t, err, persistence.ErrInvalidProjectID)
}

func TestPersistence_DeleteProject(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveProject(t.Context(), &models.Project{ID: "gone", Name: "Gone", Owner: "o"}))
	require.NoError(t, p.DeleteProject(t.Context(), "gone"))

	project, err := p.ProjectByID(t.Context(), "gone")
	require.NoError(t, err)
	assert.Nil(t, project)

	assert.NoError(t, p.DeleteProject(t.Context(), "gone"))
}
