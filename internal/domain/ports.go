package domain

import (
	"context"
	"time"
)

// Completer is the text-completion collaborator. Replies are untrusted text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TaskService is the task-mutation collaborator consumed by the chat
// interpreter.
type TaskService interface {
	CreateTask(ctx context.Context, userID UserID, draft TaskDraft) (*Task, error)
	DeleteTask(ctx context.Context, userID UserID, id TaskID) error
	// ListOpenTasks returns non-terminal tasks, most recent first.
	ListOpenTasks(ctx context.Context, userID UserID, limit int) ([]*Task, error)
	// ListTasksSince returns every task created or updated at or after since.
	ListTasksSince(ctx context.Context, userID UserID, since time.Time) ([]*Task, error)
}

// TaskStore is the full persistence surface. Stores implement it; the chat
// interpreter only sees the TaskService subset.
type TaskStore interface {
	TaskService
	GetTask(ctx context.Context, userID UserID, id TaskID) (*Task, error)
	UpdateTaskStatus(ctx context.Context, userID UserID, id TaskID, status TaskStatus) (*Task, error)
}
