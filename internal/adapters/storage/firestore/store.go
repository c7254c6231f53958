package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (TASKPILOT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) tasksCol(userID domain.UserID) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(string(userID)).Collection("tasks")
}

func (s *Store) taskDoc(userID domain.UserID, id domain.TaskID) *firestore.DocumentRef {
	return s.tasksCol(userID).Doc(string(id))
}

var openStatuses = []string{string(domain.StatusTodo), string(domain.StatusInProgress)}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type taskDoc struct {
	Title       string     `firestore:"title"`
	Description string     `firestore:"description"`
	DueDate     string     `firestore:"due_date"`
	StartTime   string     `firestore:"start_time"`
	EndTime     string     `firestore:"end_time"`
	Priority    string     `firestore:"priority"`
	Tags        []string   `firestore:"tags"`
	Status      string     `firestore:"status"`
	CreatedAt   time.Time  `firestore:"created_at"`
	UpdatedAt   time.Time  `firestore:"updated_at"`
	CompletedAt *time.Time `firestore:"completed_at"`
}

func toDoc(t *domain.Task) taskDoc {
	doc := taskDoc{
		Title:       t.Title,
		Description: t.Description,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.DueDate != nil {
		doc.DueDate = t.DueDate.Format(domain.DateLayout)
	}
	return doc
}

func fromSnapshot(userID domain.UserID, snap *firestore.DocumentSnapshot) (*domain.Task, error) {
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode taskDoc: %w", err)
	}

	t := &domain.Task{
		ID:          domain.TaskID(snap.Ref.ID),
		UserID:      userID,
		Title:       doc.Title,
		Description: doc.Description,
		StartTime:   doc.StartTime,
		EndTime:     doc.EndTime,
		Priority:    domain.Priority(doc.Priority),
		Tags:        doc.Tags,
		Status:      domain.TaskStatus(doc.Status),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		CompletedAt: doc.CompletedAt,
	}
	if doc.DueDate != "" {
		if d, err := time.Parse(domain.DateLayout, doc.DueDate); err == nil {
			t.DueDate = &d
		}
	}
	return t, nil
}

// ─────────────────────────────────────────
// TaskStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateTask(ctx context.Context, userID domain.UserID, draft domain.TaskDraft) (*domain.Task, error) {
	task := domain.NewTask(domain.TaskID(uuid.NewString()), userID, draft, s.now())

	if _, err := s.taskDoc(userID, task.ID).Create(ctx, toDoc(task)); err != nil {
		return nil, fmt.Errorf("firestore CreateTask: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID domain.UserID, id domain.TaskID) error {
	_, err := s.taskDoc(userID, id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("firestore DeleteTask: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, userID domain.UserID, id domain.TaskID) (*domain.Task, error) {
	snap, err := s.taskDoc(userID, id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("firestore GetTask: %w", err)
	}
	return fromSnapshot(userID, snap)
}

func (s *Store) UpdateTaskStatus(ctx context.Context, userID domain.UserID, id domain.TaskID, st domain.TaskStatus) (*domain.Task, error) {
	now := s.now()
	var completed *time.Time
	if st == domain.StatusDone {
		completed = &now
	}

	_, err := s.taskDoc(userID, id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updated_at", Value: now},
		{Path: "completed_at", Value: completed},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("firestore UpdateTaskStatus: %w", err)
	}
	return s.GetTask(ctx, userID, id)
}

func (s *Store) ListOpenTasks(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Task, error) {
	q := s.tasksCol(userID).Where("status", "in", openStatuses).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.collect(userID, q.Documents(ctx), "ListOpenTasks")
}

func (s *Store) ListTasksSince(ctx context.Context, userID domain.UserID, since time.Time) ([]*domain.Task, error) {
	q := s.tasksCol(userID).Where("updated_at", ">=", since).OrderBy("updated_at", firestore.Asc)
	return s.collect(userID, q.Documents(ctx), "ListTasksSince")
}

func (s *Store) collect(userID domain.UserID, iter *firestore.DocumentIterator, op string) ([]*domain.Task, error) {
	defer iter.Stop()

	out := []*domain.Task{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore %s: %w", op, err)
		}

		t, err := fromSnapshot(userID, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
