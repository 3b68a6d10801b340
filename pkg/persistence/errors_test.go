package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectError(t *testing.T) {
	t.Parallel()

	t.Run("unwraps to the sentinel", func(t *testing.T) {
		err := fmt.Errorf("service: %w", persistence.NewProjectError("GetByID", "project-123", persistence.ErrProjectNotFound))

		assert.True(t, persistence.IsProjectNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrProjectNotFound))
	})

	t.Run("message carries context", func(t *testing.T) {
		err := persistence.NewProjectError("Save", "project-123", errors.New("disk full"))

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "project-123")
		assert.Contains(t, err.Error(), "disk full")
		assert.False(t, persistence.IsProjectNotFound(err))
	})

	t.Run("list error without project id", func(t *testing.T) {
		err := persistence.NewProjectError("List", "", persistence.ErrInvalidSortField)

		assert.Equal(t, "List operation failed for projects: invalid sort field", err.Error())
	})
}

func TestListProjectsOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    persistence.ListProjectsOptions
		want    persistence.ListProjectsOptions
		wantErr error
	}{
		{
			name: "defaults",
			opts: persistence.ListProjectsOptions{},
			want: persistence.ListProjectsOptions{SortBy: "created_at", SortOrder: "desc", Limit: 20},
		},
		{
			name: "limit above maximum falls back to default",
			opts: persistence.ListProjectsOptions{Limit: 500, Offset: -3, SortBy: "name", SortOrder: "asc"},
			want: persistence.ListProjectsOptions{SortBy: "name", SortOrder: "asc", Limit: 20},
		},
		{
			name:    "sql injection attempt in sort field",
			opts:    persistence.ListProjectsOptions{SortBy: "name; DROP TABLE projects; --"},
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "unknown sort order",
			opts:    persistence.ListProjectsOptions{SortOrder: "sideways"},
			wantErr: persistence.ErrInvalidSortOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Normalize()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
