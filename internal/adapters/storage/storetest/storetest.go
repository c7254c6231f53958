// Package storetest holds the behaviour every domain.TaskStore must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// Run exercises store. newStore must return an empty store on each call.
func Run(t *testing.T, newStore func(t *testing.T) domain.TaskStore) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("ListOpenNewestFirst", func(t *testing.T) { testListOpen(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("UpdateStatus", func(t *testing.T) { testUpdateStatus(t, newStore(t)) })
	t.Run("ListSince", func(t *testing.T) { testListSince(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, s domain.TaskStore) {
	ctx := context.Background()
	due := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	created, err := s.CreateTask(ctx, "u1", domain.TaskDraft{
		Title:     "workout",
		DueDate:   &due,
		StartTime: "06:00",
		Priority:  domain.PriorityHigh,
		Tags:      []string{"health"},
	})
	require.NoError(t, err)
	require.Len(t, string(created.ID), 36)
	assert.Equal(t, domain.StatusTodo, created.Status)

	got, err := s.GetTask(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "workout", got.Title)
	assert.Equal(t, "06:00", got.StartTime)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"health"}, got.Tags)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-10-16", got.DueDate.Format(domain.DateLayout))

	_, err = s.GetTask(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func testListOpen(t *testing.T, s domain.TaskStore) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}
	_, err := s.CreateTask(ctx, "u2", domain.TaskDraft{Title: "other user"})
	require.NoError(t, err)

	all, err := s.ListOpenTasks(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "task 4", all[0].Title)
	assert.Equal(t, "task 0", all[4].Title)

	limited, err := s.ListOpenTasks(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "task 4", limited[0].Title)

	none, err := s.ListOpenTasks(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, s domain.TaskStore) {
	ctx := context.Background()
	task, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "gym"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteTask(ctx, "u2", task.ID), domain.ErrTaskNotFound)
	require.NoError(t, s.DeleteTask(ctx, "u1", task.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, "u1", task.ID), domain.ErrTaskNotFound)

	open, err := s.ListOpenTasks(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func testUpdateStatus(t *testing.T, s domain.TaskStore) {
	ctx := context.Background()
	a, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "a"})
	require.NoError(t, err)
	b, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "b"})
	require.NoError(t, err)

	done, err := s.UpdateTaskStatus(ctx, "u1", a.ID, domain.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = s.UpdateTaskStatus(ctx, "u1", b.ID, domain.StatusCancelled)
	require.NoError(t, err)

	open, err := s.ListOpenTasks(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	reopened, err := s.UpdateTaskStatus(ctx, "u1", a.ID, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	_, err = s.UpdateTaskStatus(ctx, "u1", "00000000-0000-0000-0000-000000000000", domain.StatusDone)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func testListSince(t *testing.T, s domain.TaskStore) {
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)

	_, err := s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "first"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, "u1", domain.TaskDraft{Title: "second"})
	require.NoError(t, err)

	got, err := s.ListTasksSince(ctx, "u1", before)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)

	future, err := s.ListTasksSince(ctx, "u1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, future)
}
