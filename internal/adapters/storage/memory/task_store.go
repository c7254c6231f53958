package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// TaskStore is a simple in-memory implementation of domain.TaskStore.
// It is NOT persistent and is only suitable for development / local mode.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[domain.TaskID]*domain.Task
	byUserID map[domain.UserID][]domain.TaskID
	now      func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:    make(map[domain.TaskID]*domain.Task),
		byUserID: make(map[domain.UserID][]domain.TaskID),
		now:      time.Now,
	}
}

func (s *TaskStore) CreateTask(ctx context.Context, userID domain.UserID, draft domain.TaskDraft) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := domain.NewTask(domain.TaskID(uuid.NewString()), userID, draft, s.now())
	s.tasks[task.ID] = task
	s.byUserID[userID] = append(s.byUserID[userID], task.ID)

	return clone(task), nil
}

// DeleteTask removes a task. Deleting a missing task returns
// domain.ErrTaskNotFound.
func (s *TaskStore) DeleteTask(ctx context.Context, userID domain.UserID, id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, id)

	ids := s.byUserID[userID]
	for i, v := range ids {
		if v == id {
			s.byUserID[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, userID domain.UserID, id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return clone(t), nil
}

func (s *TaskStore) UpdateTaskStatus(ctx context.Context, userID domain.UserID, id domain.TaskID, status domain.TaskStatus) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}

	now := s.now()
	t.Status = status
	t.UpdatedAt = now
	if status == domain.StatusDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	return clone(t), nil
}

// ListOpenTasks returns the last `limit` open tasks for a user, most recent
// first. If limit <= 0, returns all.
func (s *TaskStore) ListOpenTasks(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Task{}
	ids := s.byUserID[userID]
	for i := len(ids) - 1; i >= 0; i-- {
		t := s.tasks[ids[i]]
		if t == nil || t.Status.Terminal() {
			continue
		}
		out = append(out, clone(t))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *TaskStore) ListTasksSince(ctx context.Context, userID domain.UserID, since time.Time) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Task{}
	for _, id := range s.byUserID[userID] {
		t := s.tasks[id]
		if t == nil || t.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, clone(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clone(t *domain.Task) *domain.Task {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	return &c
}
