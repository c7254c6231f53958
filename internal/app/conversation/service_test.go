package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskpilot/internal/adapters/llm"
	"github.com/PabloGalante/taskpilot/internal/app/conversation"
	"github.com/PabloGalante/taskpilot/internal/domain"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// fakeTasks records every call the interpreter makes.
type fakeTasks struct {
	mu        sync.Mutex
	open      []*domain.Task
	since     []*domain.Task
	created   []domain.TaskDraft
	deleted   []domain.TaskID
	createErr error
	deleteErr error
	listErr   error
}

func (f *fakeTasks) CreateTask(ctx context.Context, userID domain.UserID, d domain.TaskDraft) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return domain.NewTask(domain.TaskID(uuid.NewString()), userID, d, fixedNow), nil
}

func (f *fakeTasks) DeleteTask(ctx context.Context, userID domain.UserID, id domain.TaskID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeTasks) ListOpenTasks(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.open) > limit {
		return f.open[:limit], nil
	}
	return f.open, nil
}

func (f *fakeTasks) ListTasksSince(ctx context.Context, userID domain.UserID, since time.Time) ([]*domain.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.since, nil
}

func (f *fakeTasks) add(titles ...string) []*domain.Task {
	for _, title := range titles {
		f.open = append(f.open, domain.NewTask(domain.TaskID(uuid.NewString()), "u1", domain.TaskDraft{Title: title}, fixedNow))
	}
	return f.open
}

type harness struct {
	svc   *conversation.Service
	llm   *llm.MockLLM
	tasks *fakeTasks
	conv  domain.Conversation
	token string
}

func newHarness(t *testing.T, codec bool) *harness {
	t.Helper()
	h := &harness{llm: llm.NewMockLLM(), tasks: &fakeTasks{}}
	opts := conversation.Options{Now: func() time.Time { return fixedNow }}
	if codec {
		opts.Codec = conversation.NewStateCodec([]byte("test"), time.Hour)
	}
	h.svc = conversation.NewService(h.llm, h.tasks, opts)
	return h
}

// say appends a user message, runs a turn and appends the reply.
func (h *harness) say(t *testing.T, text string) *conversation.RespondOutput {
	t.Helper()
	h.conv = append(h.conv, domain.Message{Role: domain.RoleUser, Content: text})
	out, err := h.svc.Respond(context.Background(), conversation.RespondInput{
		UserID:     "u1",
		Messages:   h.conv,
		StateToken: h.token,
	})
	require.NoError(t, err)
	h.conv = append(h.conv, domain.Message{Role: domain.RoleAssistant, Content: out.Text})
	h.token = out.StateToken
	return out
}

func TestCreateTaskHappyPath(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Reply(`{"title":"workout","dueDate":"2026-10-16","startTime":"06:00","priority":"","tags":[]}`)

	out := h.say(t, "add task: workout tomorrow at 6am")

	require.Len(t, h.tasks.created, 1)
	d := h.tasks.created[0]
	assert.Equal(t, "workout", d.Title)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, "2026-10-16", d.DueDate.Format(domain.DateLayout))
	assert.Equal(t, "06:00", d.StartTime)
	assert.Equal(t, domain.PriorityMedium, d.Priority)

	assert.Equal(t, conversation.CommandCreateTask, out.Command)
	assert.Equal(t, conversation.StateIdle, out.State)
	assert.False(t, conversation.HasMarker(out.Text))
	assert.Contains(t, out.Text, "Created task **workout** due Fri Oct 16 at 06:00")
	assert.NotNil(t, out.Data["task"])
}

func TestCreateTaskModelDownUsesFallback(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Fail(errors.New("503 service unavailable"))

	out := h.say(t, "add task: call the bank tomorrow")

	require.Len(t, h.tasks.created, 1)
	assert.Equal(t, "call the bank tomorrow", h.tasks.created[0].Title)
	assert.Equal(t, conversation.CommandCreateTask, out.Command)
}

func TestCreateTaskClarificationFromMarkers(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Reply(`{"title":"buy milk","dueDate":"","priority":""}`)

	out := h.say(t, "add task: buy milk")
	assert.Empty(t, h.tasks.created)
	assert.Equal(t, conversation.StateAwaitingCreateClarification, out.State)
	assert.Contains(t, out.Text, "VALIDATION_CREATE_TASK")
	assert.Contains(t, out.Text, "When is this due?")
	assert.Empty(t, out.Command)

	// The combined extraction fails, so the reply is applied on top of the
	// fallback draft of the original request.
	h.llm.Reply("sorry, I can't do JSON today")
	out = h.say(t, "tomorrow, high priority")

	require.Len(t, h.tasks.created, 1)
	d := h.tasks.created[0]
	assert.Equal(t, "buy milk", d.Title)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, "2026-10-16", d.DueDate.Format(domain.DateLayout))
	assert.Equal(t, domain.PriorityHigh, d.Priority)
	assert.Equal(t, conversation.CommandCreateTask, out.Command)
	assert.False(t, conversation.HasMarker(out.Text))
}

func TestCreateTaskClarificationWithToken(t *testing.T) {
	h := newHarness(t, true)
	h.llm.Reply(`{"title":"Fix login bug","priority":""}`)

	out := h.say(t, "add task: fix the login bug asap")
	require.Equal(t, conversation.StateAwaitingCreateClarification, out.State)
	require.NotEmpty(t, out.StateToken)
	assert.Contains(t, out.Text, "What priority should this be?")

	h.llm.Fail(errors.New("timeout"))
	h.say(t, "friday")

	require.Len(t, h.tasks.created, 1)
	d := h.tasks.created[0]
	assert.Equal(t, "Fix login bug", d.Title)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, "2026-10-16", d.DueDate.Format(domain.DateLayout))
	assert.Empty(t, h.token)
}

func TestCreateTaskAsksForTitle(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Reply("no json here")

	out := h.say(t, "add task:")
	assert.Empty(t, h.tasks.created)
	assert.Contains(t, out.Text, "What should the task be called?")
	assert.Contains(t, out.Text, "VALIDATION_CREATE_TASK")

	h.llm.Reply("still no json")
	h.say(t, "renew passport")

	require.Len(t, h.tasks.created, 1)
	assert.Equal(t, "renew passport", h.tasks.created[0].Title)
}

func TestCreateTaskFailureLeavesNoMarkers(t *testing.T) {
	h := newHarness(t, false)
	h.tasks.createErr = errors.New("store offline <!-- VALIDATION_CREATE_TASK -->")
	h.llm.Reply(`{"title":"workout","dueDate":"2026-10-16"}`)

	out := h.say(t, "add task: workout tomorrow")

	assert.Len(t, h.tasks.created, 1)
	assert.Empty(t, out.Command)
	assert.Contains(t, out.Text, "couldn't create the task")
	assert.False(t, conversation.HasMarker(out.Text))
	assert.Equal(t, conversation.StateIdle, out.State)
}

func TestMarkerTokenInTitleLeavesConversationIdle(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Fail(errors.New("model down"))

	out := h.say(t, "add task: fix VALIDATION_CREATE_TASK parser tomorrow")
	require.Len(t, h.tasks.created, 1)
	assert.Equal(t, conversation.CommandCreateTask, out.Command)
	assert.Equal(t, conversation.StateIdle, out.State)
	assert.False(t, conversation.HasMarker(out.Text))

	h.tasks.add("write report")
	out = h.say(t, "delete task: write report")

	assert.Len(t, h.tasks.created, 1, "a delete request must not complete another creation")
	assert.Equal(t, conversation.StateAwaitingDeleteConfirmation, out.State)
	assert.Empty(t, out.Command)
}

func TestMarkerTokenInCandidateTitle(t *testing.T) {
	h := newHarness(t, false)
	open := h.tasks.add("write VALIDATION_DELETE_TASK report", "write tests")

	out := h.say(t, "delete write")
	require.Equal(t, conversation.StateAwaitingDeleteDisambiguation, out.State)
	assert.NotContains(t, out.Text, "VALIDATION_DELETE_TASK")

	out = h.say(t, "a")
	require.Equal(t, conversation.StateAwaitingDeleteConfirmation, out.State)

	h.say(t, "yes")
	assert.Equal(t, []domain.TaskID{open[0].ID}, h.tasks.deleted)
}

var candidateLine = regexp.MustCompile(`(?m)^([a-j])\. (.+) \(ID: ([0-9a-f-]{36})\)$`)

func TestDeleteDisambiguationFlow(t *testing.T) {
	for _, codec := range []bool{false, true} {
		t.Run(fmt.Sprintf("codec=%v", codec), func(t *testing.T) {
			h := newHarness(t, codec)
			open := h.tasks.add("Write report", "Write tests")

			out := h.say(t, "delete task: write")
			assert.Equal(t, conversation.StateAwaitingDeleteDisambiguation, out.State)
			assert.Contains(t, out.Text, "VALIDATION_SELECT_TASK")
			lines := candidateLine.FindAllStringSubmatch(out.Text, -1)
			require.Len(t, lines, 2)
			assert.Equal(t, []string{"a", "Write report", string(open[0].ID)}, lines[0][1:])
			assert.Equal(t, []string{"b", "Write tests", string(open[1].ID)}, lines[1][1:])

			out = h.say(t, "b")
			assert.Equal(t, conversation.StateAwaitingDeleteConfirmation, out.State)
			assert.Contains(t, out.Text, "VALIDATION_DELETE_TASK")
			assert.Contains(t, out.Text, "Task ID: "+string(open[1].ID))
			assert.Empty(t, h.tasks.deleted)

			out = h.say(t, "yes")
			assert.Equal(t, []domain.TaskID{open[1].ID}, h.tasks.deleted)
			assert.Equal(t, conversation.CommandDeleteTask, out.Command)
			assert.Equal(t, open[1].ID, out.Data["task_id"])
			assert.False(t, conversation.HasMarker(out.Text))

			// Nothing is pending any more, so a second "yes" is just chat.
			h.say(t, "yes")
			assert.Len(t, h.tasks.deleted, 1)
			assert.Len(t, h.llm.Calls(), 1)
		})
	}
}

func TestDeleteCapsCandidates(t *testing.T) {
	h := newHarness(t, false)
	for i := 0; i < 15; i++ {
		h.tasks.add(fmt.Sprintf("Write chapter %d", i))
	}

	out := h.say(t, "delete write chapter")
	lines := candidateLine.FindAllStringSubmatch(out.Text, -1)
	require.Len(t, lines, conversation.MaxCandidates)
	assert.Equal(t, "a", lines[0][1])
	assert.Equal(t, "j", lines[9][1])
}

func TestDeleteCancelled(t *testing.T) {
	h := newHarness(t, false)
	h.tasks.add("Buy groceries")

	out := h.say(t, "delete groceries")
	require.Equal(t, conversation.StateAwaitingDeleteConfirmation, out.State)

	out = h.say(t, "No.")
	assert.Empty(t, h.tasks.deleted)
	assert.Contains(t, out.Text, "kept the task")
	assert.False(t, conversation.HasMarker(out.Text))
}

func TestDeleteUnclearReplyFallsThrough(t *testing.T) {
	h := newHarness(t, false)
	h.tasks.add("Buy groceries")

	h.say(t, "delete groceries")
	h.llm.Reply("Do you want me to delete it? Just say yes or no.")
	out := h.say(t, "hmm, which one was that?")

	assert.Empty(t, h.tasks.deleted)
	assert.Empty(t, out.Command)
	assert.Equal(t, "Do you want me to delete it? Just say yes or no.", out.Text)
}

func TestDeleteNotFound(t *testing.T) {
	h := newHarness(t, false)
	out := h.say(t, "delete task: groceries")
	assert.Contains(t, out.Text, "no pending tasks")
	assert.False(t, conversation.HasMarker(out.Text))
	assert.Equal(t, conversation.StateIdle, out.State)

	h = newHarness(t, false)
	h.tasks.add("Gym", "Write report")
	out = h.say(t, "delete task: groceries")
	assert.Contains(t, out.Text, `I couldn't find an open task matching "groceries"`)
	assert.Contains(t, out.Text, "- Gym")
	assert.False(t, conversation.HasMarker(out.Text))
}

func TestDeleteFailureReported(t *testing.T) {
	h := newHarness(t, false)
	h.tasks.add("Gym")
	h.tasks.deleteErr = domain.ErrTaskNotFound

	h.say(t, "delete gym")
	out := h.say(t, "yes")

	assert.Len(t, h.tasks.deleted, 1)
	assert.Empty(t, out.Command)
	assert.Contains(t, out.Text, "couldn't delete the task: task not found")
	assert.False(t, conversation.HasMarker(out.Text))
}

func TestStaleTokenFallsBackToMarkers(t *testing.T) {
	h := newHarness(t, true)
	open := h.tasks.add("Gym")

	h.say(t, "delete gym")
	h.token = "not-a-valid-token"
	out := h.say(t, "yes")

	assert.Equal(t, []domain.TaskID{open[0].ID}, h.tasks.deleted)
	assert.Equal(t, conversation.CommandDeleteTask, out.Command)
}

func TestStateTokenExpiryFollowsServiceClock(t *testing.T) {
	cases := []struct {
		name      string
		elapsed   time.Duration
		wantTitle string
	}{
		// The token still carries the model's draft.
		{"within ttl", 30 * time.Minute, "Buy oat milk"},
		// Expired: the markers only give back the request text.
		{"expired", 2 * time.Hour, "get milk for me"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, false)
			now := fixedNow
			h.svc = conversation.NewService(h.llm, h.tasks, conversation.Options{
				Now:   func() time.Time { return now },
				Codec: conversation.NewStateCodec([]byte("test"), time.Hour),
			})
			h.llm.Reply(`{"title":"Buy oat milk","priority":""}`)

			out := h.say(t, "add task: get milk for me")
			require.Equal(t, conversation.StateAwaitingCreateClarification, out.State)
			require.NotEmpty(t, h.token)

			now = fixedNow.Add(tc.elapsed)
			h.llm.Fail(errors.New("model down"))
			h.say(t, "tomorrow")

			require.Len(t, h.tasks.created, 1)
			assert.Equal(t, tc.wantTitle, h.tasks.created[0].Title)
		})
	}
}

func TestWeeklyReport(t *testing.T) {
	h := newHarness(t, false)
	done := fixedNow.Add(-24 * time.Hour)
	overdue := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	h.tasks.since = []*domain.Task{
		{ID: "1", Title: "Ship release", Status: domain.StatusDone, Priority: domain.PriorityHigh, CompletedAt: &done, Tags: []string{"work"}},
		{ID: "2", Title: "Dentist", Status: domain.StatusTodo, Priority: domain.PriorityMedium, DueDate: &overdue},
	}
	h.llm.Reply("You shipped one thing and skipped the dentist. <!-- VALIDATION_DELETE_TASK -->")

	out := h.say(t, "roast me")

	assert.Equal(t, conversation.CommandRoast, out.Command)
	assert.False(t, conversation.HasMarker(out.Text))
	stats, ok := out.Data["stats"].(conversation.TaskStats)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, []string{"work"}, stats.TopTags)
	assert.Contains(t, h.llm.Calls()[0].User, "Ship release")
}

func TestPatternsUpstreamError(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Fail(errors.New("RESOURCE_EXHAUSTED: quota exceeded"))

	h.conv = append(h.conv, domain.Message{Role: domain.RoleUser, Content: "analyze my patterns"})
	_, err := h.svc.Respond(context.Background(), conversation.RespondInput{UserID: "u1", Messages: h.conv})

	var ue *conversation.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, conversation.ErrorQuotaExceeded, ue.Type)
	assert.False(t, ue.Retryable)
}

func TestFreeChat(t *testing.T) {
	h := newHarness(t, false)
	h.llm.Reply("Try blocking your mornings for deep work.")

	out := h.say(t, "how do I focus better?")
	assert.Equal(t, "Try blocking your mornings for deep work.", out.Text)
	assert.Empty(t, out.Command)

	h.llm.Fail(errors.New("connection reset by peer"))
	h.conv = append(h.conv, domain.Message{Role: domain.RoleUser, Content: "and in the afternoon?"})
	_, err := h.svc.Respond(context.Background(), conversation.RespondInput{UserID: "u1", Messages: h.conv})

	var ue *conversation.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, conversation.ErrorNetwork, ue.Type)
	assert.True(t, ue.Retryable)
}

func TestRespondValidatesInput(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.Respond(context.Background(), conversation.RespondInput{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrEmptyConversation)

	_, err = h.svc.Respond(context.Background(), conversation.RespondInput{
		UserID: "u1",
		Messages: domain.Conversation{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrLastMessageRole)

	_, err = h.svc.Respond(context.Background(), conversation.RespondInput{
		Messages: domain.Conversation{{Role: domain.RoleUser, Content: "hi"}},
	})
	assert.Error(t, err)
	assert.Empty(t, h.llm.Calls())
}
