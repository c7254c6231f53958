package tasks

import (
	"context"
	"fmt"

	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// Service holds the read and status-update side of tasks that does not go
// through the chat interpreter.
type Service struct {
	store domain.TaskStore
}

// NewService creates a task service from a TaskStore
func NewService(store domain.TaskStore) *Service {
	return &Service{
		store: store,
	}
}

// ListOpen returns the last `limit` open tasks for a user.
// If limit <= 0, a reasonable default value is used.
func (s *Service) ListOpen(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListOpenTasks(ctx, userID, limit)
}

func (s *Service) Get(ctx context.Context, userID domain.UserID, id domain.TaskID) (*domain.Task, error) {
	return s.store.GetTask(ctx, userID, id)
}

// SetStatus moves a task to a new status, e.g. marking it done so it
// shows up in weekly reports.
func (s *Service) SetStatus(ctx context.Context, userID domain.UserID, id domain.TaskID, status string) (*domain.Task, error) {
	st, ok := domain.ParseTaskStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID, "task_id", id, "status", st)

	task, err := s.store.UpdateTaskStatus(ctx, userID, id, st)
	if err != nil {
		log.Error("failed to update task status", "error", err)
		return nil, err
	}

	log.Info("task status updated")
	return task, nil
}
