package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// Store is a domain.TaskStore backed by a local SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and runs migrations. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const taskColumns = `id, user_id, title, description, due_date, start_time, end_time,
	priority, tags, status, created_at, updated_at, completed_at`

func (s *Store) CreateTask(ctx context.Context, userID domain.UserID, draft domain.TaskDraft) (*domain.Task, error) {
	task := domain.NewTask(domain.TaskID(uuid.NewString()), userID, draft, s.now())

	tags, err := json.Marshal(nonNil(task.Tags))
	if err != nil {
		return nil, fmt.Errorf("sqlite CreateTask encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(task.ID), string(task.UserID), task.Title, task.Description,
		formatDate(task.DueDate), task.StartTime, task.EndTime,
		string(task.Priority), string(tags), string(task.Status),
		task.CreatedAt.UnixNano(), task.UpdatedAt.UnixNano(), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite CreateTask: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID domain.UserID, id domain.TaskID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, string(id), string(userID))
	if err != nil {
		return fmt.Errorf("sqlite DeleteTask: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite DeleteTask: %w", err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, userID domain.UserID, id domain.TaskID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetTask: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, userID domain.UserID, id domain.TaskID, status domain.TaskStatus) (*domain.Task, error) {
	now := s.now()
	var completed any
	if status == domain.StatusDone {
		completed = now.UnixNano()
	}

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND user_id = ?`,
		string(status), now.UnixNano(), completed, string(id), string(userID))
	if err != nil {
		return nil, fmt.Errorf("sqlite UpdateTaskStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return s.GetTask(ctx, userID, id)
}

func (s *Store) ListOpenTasks(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND status NOT IN (?, ?)
		ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(userID), string(domain.StatusDone), string(domain.StatusCancelled), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListOpenTasks: %w", err)
	}
	return collect(rows)
}

func (s *Store) ListTasksSince(ctx context.Context, userID domain.UserID, since time.Time) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND updated_at >= ?
		ORDER BY created_at ASC, rowid ASC`,
		string(userID), since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite ListTasksSince: %w", err)
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*domain.Task, error) {
	var (
		t                      domain.Task
		id, userID             string
		dueDate                sql.NullString
		priority, status, tags string
		created, updated       int64
		completed              sql.NullInt64
	)
	err := sc.Scan(&id, &userID, &t.Title, &t.Description, &dueDate, &t.StartTime, &t.EndTime,
		&priority, &tags, &status, &created, &updated, &completed)
	if err != nil {
		return nil, err
	}

	t.ID = domain.TaskID(id)
	t.UserID = domain.UserID(userID)
	t.Priority = domain.Priority(priority)
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	if completed.Valid {
		c := time.Unix(0, completed.Int64)
		t.CompletedAt = &c
	}
	if dueDate.Valid && dueDate.String != "" {
		if d, err := time.Parse(domain.DateLayout, dueDate.String); err == nil {
			t.DueDate = &d
		}
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return &t, nil
}

func collect(rows *sql.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	out := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
