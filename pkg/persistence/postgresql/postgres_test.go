//go:build integration
// +build integration

package postgresql_test

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = testcontainers.TerminateContainer(postgresContainer)
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"projects", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("chatflow_test"),
			postgres.WithUsername("chatflow"),
			postgres.WithPassword("chatflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func newProject(name, owner string) *models.Project {
	return &models.Project{
		ID:           uuid.NewString(),
		Name:         name,
		Owner:        owner,
		WebsiteURL:   "https://shop.example.com",
		APIWhitelist: []string{"*.example.com"},
		Persona:      &models.Persona{Tone: "casual", AgentType: "sales", ResponseLength: "short"},
		Workflow:     models.NewDefaultWorkflow(),
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'projects')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "projects table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_MigrationsAreIdempotent(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPersistence_SaveAndRetrieveProject(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	project := newProject("Storefront", "owner-1")
	require.NoError(t, p.SaveProject(ctx, project))

	loaded, err := p.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, project.Name, loaded.Name)
	assert.Equal(t, project.Owner, loaded.Owner)
	assert.Equal(t, project.WebsiteURL, loaded.WebsiteURL)
	assert.Equal(t, project.APIWhitelist, loaded.APIWhitelist)
	assert.Equal(t, project.Persona, loaded.Persona)
	require.NotNil(t, loaded.Workflow)
	assert.Equal(t, project.Workflow.Nodes, loaded.Workflow.Nodes)
	assert.Equal(t, project.Workflow.Edges, loaded.Workflow.Edges)

	loaded.Name = "Storefront v2"
	loaded.Persona = nil
	require.NoError(t, p.SaveProject(ctx, loaded))

	updated, err := p.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Storefront v2", updated.Name)
	assert.Nil(t, updated.Persona)
}

func TestPersistence_ProjectByID_Missing(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	project, err := p.ProjectByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, project)
}

func TestPersistence_DeleteProject(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	project := newProject("Doomed", "owner-1")
	require.NoError(t, p.SaveProject(ctx, project))
	require.NoError(t, p.DeleteProject(ctx, project.ID))

	loaded, err := p.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	assert.NoError(t, p.DeleteProject(ctx, project.ID))
}

func TestPersistence_Projects(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	for i := range 5 {
		owner := "owner-a"
		if i%2 == 1 {
			owner = "owner-b"
		}

		require.NoError(t, p.SaveProject(ctx, newProject(fmt.Sprintf("project-%d", i), owner)))
	}

	all, err := p.Projects(ctx, persistence.ListProjectsOptions{SortBy: "name", SortOrder: "asc", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.TotalCount)
	assert.True(t, all.HasNextPage)
	require.Len(t, all.Projects, 2)
	assert.Equal(t, "project-0", all.Projects[0].Name)

	owned, err := p.Projects(ctx, persistence.ListProjectsOptions{OwnerID: "owner-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), owned.TotalCount)
	assert.False(t, owned.HasNextPage)

	_, err = p.Projects(ctx, persistence.ListProjectsOptions{SortBy: "owner; --"})
	require.ErrorIs(t, err, persistence.ErrInvalidSortField)
}
