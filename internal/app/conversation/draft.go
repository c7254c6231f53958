package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

// DraftSource records which tier produced a draft.
type DraftSource string

const (
	DraftFromModel    DraftSource = "model"
	DraftFromFallback DraftSource = "fallback"
)

// commandPrefix strips leading command phrases from a creation request.
var commandPrefix = regexp.MustCompile(`(?i)^\s*(please\s+)?(` +
	`(add|create|new|make)(\s+a)?(\s+new)?\s+(task|todo|reminder)\s*:?` +
	`|(task|todo)\s*:` +
	`|remind\s+me\s+to` +
	`|(add|create)\b\s*:?` +
	`)\s*`)

// FallbackDraft builds a draft from the literal request by stripping
// command phrases. The result has an empty title only when the request
// consisted of nothing but command keywords.
func FallbackDraft(text string) domain.TaskDraft {
	title := strings.TrimSpace(text)
	if loc := commandPrefix.FindStringIndex(title); loc != nil {
		title = strings.TrimSpace(title[loc[1]:])
	}
	return domain.TaskDraft{
		Title:    title,
		Priority: domain.PriorityMedium,
	}
}

// DraftExtractor turns a free-text request into a TaskDraft, first with the
// model and then with FallbackDraft when the model reply is unusable.
type DraftExtractor struct {
	completer domain.Completer
}

func NewDraftExtractor(completer domain.Completer) *DraftExtractor {
	return &DraftExtractor{completer: completer}
}

// Extract never fails: model errors and malformed replies degrade to the
// fallback draft.
func (e *DraftExtractor) Extract(ctx context.Context, text string, today time.Time) (domain.TaskDraft, DraftSource) {
	draft, ok := e.FromModel(ctx, text, today)
	if !ok {
		return FallbackDraft(text), DraftFromFallback
	}
	if draft.Title == "" {
		draft.Title = FallbackDraft(text).Title
	}
	return draft, DraftFromModel
}

// FromModel is the model tier alone. ok is false when there is no model,
// the call failed or the reply held no parseable JSON object.
func (e *DraftExtractor) FromModel(ctx context.Context, text string, today time.Time) (domain.TaskDraft, bool) {
	if e.completer == nil {
		return domain.TaskDraft{}, false
	}
	log := observability.LoggerFromContext(ctx)

	reply, err := e.completer.Complete(ctx, extractionSystemPrompt(today), text)
	if err != nil {
		log.Warn("draft extraction call failed, using fallback", "error", err)
		return domain.TaskDraft{}, false
	}
	draft, ok := parseDraftJSON(reply, today)
	if !ok {
		log.Warn("draft extraction reply not parseable, using fallback")
	}
	return draft, ok
}

type extractedDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// parseDraftJSON pulls the first JSON object out of a model reply, which
// may be wrapped in prose or code fences.
func parseDraftJSON(reply string, today time.Time) (domain.TaskDraft, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return domain.TaskDraft{}, false
	}

	var raw extractedDraft
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return domain.TaskDraft{}, false
	}

	d := domain.TaskDraft{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		DueDate:     parseDate(raw.DueDate, today),
		Tags:        normalizeTags(raw.Tags),
	}
	d.Priority, d.PriorityExplicit = domain.ParsePriority(raw.Priority)
	if d.DueDate != nil {
		d.StartTime = normalizeClock(raw.StartTime)
		d.EndTime = normalizeClock(raw.EndTime)
	}
	return d, true
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func extractionSystemPrompt(today time.Time) string {
	return fmt.Sprintf(`You convert a task request into JSON.

Today is %s (%s). Resolve relative dates such as "today", "tomorrow",
"next week" or weekday names against today.

Reply with ONLY a JSON object, no prose and no code fences:
{
  "title": "short imperative title without dates, times or command words",
  "description": "extra details or empty string",
  "dueDate": "YYYY-MM-DD or empty string",
  "startTime": "HH:MM 24h or empty string",
  "endTime": "HH:MM 24h or empty string",
  "priority": "high | medium | low, or empty string if the request does not say",
  "tags": ["lowercase", "tags"]
}`, today.Format(domain.DateLayout), today.Weekday())
}
