package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskpilot/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/taskpilot/internal/adapters/storage/storetest"
	"github.com/PabloGalante/taskpilot/internal/domain"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.TaskStore {
		s, err := sqlite.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStoreReopensFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "persist me", Tags: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are already applied, so reopening must not fail.
	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist me", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Nil(t, got.DueDate)
}
