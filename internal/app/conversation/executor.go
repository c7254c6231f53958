package conversation

import (
	"context"

	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// Executor hands fully resolved actions to the task service. Each call
// reaches the collaborator exactly once and is never retried.
type Executor struct {
	tasks domain.TaskService
}

func NewExecutor(tasks domain.TaskService) *Executor {
	return &Executor{tasks: tasks}
}

func (e *Executor) Create(ctx context.Context, userID domain.UserID, d domain.TaskDraft) Reply {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	task, err := e.tasks.CreateTask(ctx, userID, d)
	if err != nil {
		log.Error("create task failed", "error", err)
		return composeActionFailed("create the task", err)
	}

	log.Info("task created", "task_id", task.ID)
	return composeCreated(task)
}

func (e *Executor) Delete(ctx context.Context, userID domain.UserID, id domain.TaskID, title string) Reply {
	log := observability.LoggerFromContext(ctx).With("user_id", userID, "task_id", id)

	if err := e.tasks.DeleteTask(ctx, userID, id); err != nil {
		log.Error("delete task failed", "error", err)
		return composeActionFailed("delete the task", err)
	}

	log.Info("task deleted")
	return composeDeleted(id, title)
}
