package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// Options tunes a Service. The zero value is usable.
type Options struct {
	// Location resolves "today" for relative dates. Defaults to UTC.
	Location *time.Location
	// Codec, when set, issues and accepts signed state tokens alongside
	// the transcript markers.
	Codec *StateCodec
	// Now defaults to time.Now. It also drives token expiry.
	Now func() time.Time
}

// Service answers one chat turn. It keeps no state between requests: every
// pending flow is re-derived from the transcript (or a state token).
type Service struct {
	completer domain.Completer
	tasks     domain.TaskService
	extractor *DraftExtractor
	executor  *Executor
	codec     *StateCodec
	location  *time.Location
	now       func() time.Time
}

func NewService(completer domain.Completer, tasks domain.TaskService, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Codec != nil {
		opts.Codec = opts.Codec.WithClock(opts.Now)
	}
	return &Service{
		completer: completer,
		tasks:     tasks,
		extractor: NewDraftExtractor(completer),
		executor:  NewExecutor(tasks),
		codec:     opts.Codec,
		location:  opts.Location,
		now:       opts.Now,
	}
}

type RespondInput struct {
	UserID         domain.UserID
	ConversationID domain.ConversationID
	Messages       domain.Conversation
	// StateToken is the token returned with the previous reply, if any.
	StateToken string
}

type RespondOutput struct {
	Text       string
	Command    Command
	Data       map[string]any
	State      StateKind
	StateToken string
}

// Respond runs a single turn: a pending flow is continued first, then a
// fresh command is classified, then the message falls through to free chat.
func (s *Service) Respond(ctx context.Context, in RespondInput) (*RespondOutput, error) {
	if err := in.Messages.Validate(); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"conversation_id", in.ConversationID,
		"messages", len(in.Messages),
	)
	ctx = observability.WithLogger(ctx, log)

	today := s.now().In(s.location)

	state := s.pendingState(ctx, in)
	res := Resolve(state, in.Messages)
	log.Info("turn started", "pending_state", state.Kind(), "resolution", res.Kind)

	var (
		reply Reply
		err   error
	)
	switch res.Kind {
	case ResolveCreateClarification:
		reply = s.finishCreate(ctx, in.UserID, res, today)
	case ResolveDeleteConfirmed:
		reply = s.executor.Delete(ctx, in.UserID, res.TaskID, res.Title)
	case ResolveDeleteCancelled:
		reply = composeDeleteCancelled()
	case ResolveCandidateSelected:
		reply = composeDeleteConfirmation(res.TaskID, res.Title)
	default:
		reply, err = s.freshTurn(ctx, in, today)
	}
	if err != nil {
		return nil, err
	}

	out := &RespondOutput{
		Text:    reply.Text,
		Command: reply.Command,
		Data:    reply.Data,
		State:   StateIdle,
	}
	if reply.State != nil {
		out.State = reply.State.Kind()
	}
	if s.codec != nil {
		token, err := s.codec.Encode(reply.State, reply.Text)
		if err != nil {
			log.Error("failed to issue state token", "error", err)
		}
		out.StateToken = token
	}

	log.Info("turn completed", "state", out.State, "command", out.Command)
	return out, nil
}

// pendingState prefers a valid state token and falls back to the markers
// in the previous assistant reply.
func (s *Service) pendingState(ctx context.Context, in RespondInput) DialogueState {
	if s.codec != nil && in.StateToken != "" {
		if prev, ok := in.Messages.Previous(); ok && prev.Role == domain.RoleAssistant {
			st, err := s.codec.Decode(in.StateToken, prev.Content)
			if err == nil {
				return st
			}
			observability.LoggerFromContext(ctx).Warn("ignoring state token", "error", err)
		}
	}
	return PendingState(in.Messages)
}

func (s *Service) freshTurn(ctx context.Context, in RespondInput, today time.Time) (Reply, error) {
	text := in.Messages.Latest().Content
	intent := ClassifyIntent(text)
	observability.LoggerFromContext(ctx).Info("intent classified", "intent", intent)

	switch intent {
	case IntentReport, IntentPatterns:
		reply, err := s.runReport(ctx, in.UserID, intent)
		if err != nil {
			return Reply{}, ClassifyUpstreamError(err)
		}
		return reply, nil
	case IntentCreateTask:
		return s.startCreate(ctx, in.UserID, text, today), nil
	case IntentDeleteTask:
		return s.startDelete(ctx, in.UserID, text)
	default:
		return s.freeChat(ctx, in.Messages)
	}
}

func (s *Service) startCreate(ctx context.Context, userID domain.UserID, text string, today time.Time) Reply {
	draft, source := s.extractor.Extract(ctx, text, today)
	observability.LoggerFromContext(ctx).Info("draft extracted", "source", source, "has_due_date", draft.DueDate != nil)

	if draft.Title == "" {
		return composeClarification(draft, text, []ClarificationQuestion{titleQuestion})
	}
	if qs := MissingFields(draft, text); len(qs) > 0 {
		return composeClarification(draft, text, qs)
	}
	return s.executor.Create(ctx, userID, draft)
}

// finishCreate merges the clarification reply into the original request and
// executes without asking again. Only a still-missing title re-asks.
func (s *Service) finishCreate(ctx context.Context, userID domain.UserID, res Resolution, today time.Time) Reply {
	combined := res.Request + "\n\nAdditional details from the user: " + res.Reply
	draft, ok := s.extractor.FromModel(ctx, combined, today)
	if !ok {
		draft = res.Draft
	}
	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = res.Draft.Title
	}
	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = FallbackDraft(res.Request).Title
	}
	draft = applyClarification(draft, res.Reply, today)

	if draft.Title == "" {
		return composeClarification(draft, res.Request, []ClarificationQuestion{titleQuestion})
	}
	return s.executor.Create(ctx, userID, draft)
}

// applyClarification fills the gaps a reply answers deterministically, so a
// degraded model reply still picks up "tomorrow" or "high".
func applyClarification(d domain.TaskDraft, reply string, today time.Time) domain.TaskDraft {
	reply = strings.TrimSpace(reply)
	if d.Title == "" {
		d.Title = FallbackDraft(reply).Title
		return d
	}
	if d.DueDate == nil {
		d.DueDate = resolveRelativeDate(reply, today)
	}
	if !d.PriorityExplicit {
		if p, ok := priorityFromText(reply); ok {
			d.Priority, d.PriorityExplicit = p, true
		}
	}
	if d.Priority == "" {
		d.Priority = domain.PriorityMedium
	}
	return d
}

func priorityFromText(text string) (domain.Priority, bool) {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if p, ok := domain.ParsePriority(strings.Trim(w, ".,!?")); ok {
			return p, true
		}
	}
	return domain.PriorityMedium, false
}

func (s *Service) startDelete(ctx context.Context, userID domain.UserID, text string) (Reply, error) {
	open, err := s.tasks.ListOpenTasks(ctx, userID, OpenTaskLimit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("list open tasks failed", "error", err)
		return composeActionFailed("look up your tasks", err), nil
	}

	m := ResolveCandidates(text, open)
	observability.LoggerFromContext(ctx).Info("deletion candidates resolved",
		"outcome", m.Outcome, "candidates", len(m.Candidates), "truncated", m.Truncated)

	switch m.Outcome {
	case MatchConfirm:
		c := m.Candidates[0]
		return composeDeleteConfirmation(c.TaskID, c.Title), nil
	case MatchDisambiguate:
		return composeDisambiguation(m), nil
	default:
		return composeNotFound(m), nil
	}
}

func (s *Service) freeChat(ctx context.Context, conv domain.Conversation) (Reply, error) {
	system, user := buildChatPrompt(conv)
	text, err := s.completer.Complete(ctx, system, user)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("free chat completion failed", "error", err)
		return Reply{}, ClassifyUpstreamError(err)
	}
	return Reply{Text: cleanForPrompt(text), State: Idle{}}, nil
}
