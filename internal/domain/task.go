package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

// DateLayout is the calendar-date format used for due dates everywhere.
const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps loose user or model text onto a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "critical", "asap":
		return PriorityHigh, true
	case "medium", "normal", "med":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	default:
		return PriorityMedium, false
	}
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the task is finished one way or another.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTodo:
		return StatusTodo, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusDone:
		return StatusDone, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Task is a persisted task owned by a user.
type Task struct {
	ID          TaskID     `json:"id"`
	UserID      UserID     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	StartTime   string     `json:"start_time,omitempty"`
	EndTime     string     `json:"end_time,omitempty"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskDraft is the structured form of a creation request. It lives for a
// single turn and is only persisted through TaskService.CreateTask.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	StartTime   string     `json:"startTime,omitempty"`
	EndTime     string     `json:"endTime,omitempty"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`

	// PriorityExplicit is set when the request named a priority rather
	// than falling back to the medium default.
	PriorityExplicit bool `json:"priorityExplicit,omitempty"`
}

// NewTask materialises a draft into a todo task.
func NewTask(id TaskID, userID UserID, d TaskDraft, now time.Time) *Task {
	p := d.Priority
	if p == "" {
		p = PriorityMedium
	}
	t := &Task{
		ID:          id,
		UserID:      userID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Priority:    p,
		Tags:        append([]string(nil), d.Tags...),
		Status:      StatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.DueDate != nil {
		due := *d.DueDate
		t.DueDate = &due
		t.StartTime = d.StartTime
		t.EndTime = d.EndTime
	}
	return t
}
