package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PabloGalante/taskpilot/internal/domain"
	"github.com/PabloGalante/taskpilot/internal/observability"
)

const (
	reportWindow   = 7 * 24 * time.Hour
	patternsWindow = 30 * 24 * time.Hour
)

// TaskStats summarises tasks for the report commands.
type TaskStats struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Open       int            `json:"open"`
	Overdue    int            `json:"overdue"`
	Cancelled  int            `json:"cancelled"`
	ByPriority map[string]int `json:"by_priority"`
	ByWeekday  map[string]int `json:"completed_by_weekday,omitempty"`
	TopTags    []string       `json:"top_tags,omitempty"`
}

func computeStats(tasks []*domain.Task, today time.Time) TaskStats {
	s := TaskStats{
		ByPriority: map[string]int{},
		ByWeekday:  map[string]int{},
	}
	tagCount := map[string]int{}
	for _, t := range tasks {
		s.Total++
		s.ByPriority[string(t.Priority)]++
		switch t.Status {
		case domain.StatusDone:
			s.Completed++
			if t.CompletedAt != nil {
				s.ByWeekday[t.CompletedAt.In(today.Location()).Weekday().String()]++
			}
		case domain.StatusCancelled:
			s.Cancelled++
		default:
			s.Open++
			if t.DueDate != nil && t.DueDate.Format(domain.DateLayout) < today.Format(domain.DateLayout) {
				s.Overdue++
			}
		}
		for _, tag := range t.Tags {
			tagCount[tag]++
		}
	}

	for tag := range tagCount {
		s.TopTags = append(s.TopTags, tag)
	}
	sort.Slice(s.TopTags, func(i, j int) bool {
		a, b := s.TopTags[i], s.TopTags[j]
		if tagCount[a] != tagCount[b] {
			return tagCount[a] > tagCount[b]
		}
		return a < b
	})
	if len(s.TopTags) > 5 {
		s.TopTags = s.TopTags[:5]
	}
	return s
}

func describeTasks(tasks []*domain.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s (priority %s", t.Status, singleLine(t.Title), t.Priority)
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", t.DueDate.Format(domain.DateLayout))
		}
		if t.CompletedAt != nil {
			fmt.Fprintf(&b, ", completed %s", t.CompletedAt.Format(time.RFC3339))
		}
		b.WriteString(")\n")
	}
	if b.Len() == 0 {
		return "(no tasks)\n"
	}
	return b.String()
}

const roastSystemPrompt = `You write a short weekly productivity report for the user.
Be candid and funny, like a friend roasting them, but end with two concrete
suggestions for next week. Use markdown, at most 200 words. Base every claim
on the task data you are given.`

const patternsSystemPrompt = `You analyse a user's task history for productivity patterns.
Point out when they finish work, what they postpone, how priorities are used
and which tags dominate. Use markdown bullet points, at most 200 words. Base
every claim on the task data you are given.`

func (s *Service) runReport(ctx context.Context, userID domain.UserID, intent Intent) (Reply, error) {
	now := s.now().In(s.location)

	window, system, cmd := reportWindow, roastSystemPrompt, CommandRoast
	if intent == IntentPatterns {
		window, system, cmd = patternsWindow, patternsSystemPrompt, CommandPatterns
	}

	tasks, err := s.tasks.ListTasksSince(ctx, userID, now.Add(-window))
	if err != nil {
		observability.LoggerFromContext(ctx).Error("list tasks for report failed", "command", cmd, "error", err)
		return composeActionFailed("load your tasks", err), nil
	}
	stats := computeStats(tasks, now)

	prompt := fmt.Sprintf("Today is %s.\nTasks from the last %d days:\n%s\nTotals: %d tasks, %d completed, %d open, %d overdue, %d cancelled.",
		now.Format(domain.DateLayout), int(window.Hours()/24), describeTasks(tasks),
		stats.Total, stats.Completed, stats.Open, stats.Overdue, stats.Cancelled)

	text, err := s.completer.Complete(ctx, system, prompt)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:    stripMarkers(strings.TrimSpace(text)),
		State:   Idle{},
		Command: cmd,
		Data:    map[string]any{"stats": stats},
	}, nil
}
