package conversation

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// Command names an action the turn executed.
type Command string

const (
	CommandNone       Command = ""
	CommandCreateTask Command = "create_task"
	CommandDeleteTask Command = "delete_task"
	CommandRoast      Command = "roast"
	CommandPatterns   Command = "patterns"
)

// Reply is a composed assistant turn. Text already contains the marker
// block for State, so the transcript alone is enough to resume.
type Reply struct {
	Text    string
	State   DialogueState
	Command Command
	Data    map[string]any
}

// withState appends the marker block for st to body.
func withState(body string, st DialogueState) Reply {
	text := strings.TrimRight(body, "\n")
	if block := EncodeState(st); block != "" {
		text += "\n\n" + block
	}
	return Reply{Text: text, State: st}
}

func composeClarification(d domain.TaskDraft, request string, qs []ClarificationQuestion) Reply {
	var b strings.Builder
	if d.Title != "" {
		fmt.Fprintf(&b, "Almost ready to add **%s**. ", displayText(d.Title))
	} else {
		b.WriteString("I'd like to add that task for you. ")
	}
	if len(qs) == 1 {
		b.WriteString("One quick question:\n\n")
	} else {
		b.WriteString("A couple of quick questions:\n\n")
	}
	for _, q := range qs {
		fmt.Fprintf(&b, "- %s\n", q.Prompt)
	}

	r := withState(b.String(), AwaitingCreateClarification{Request: request, Draft: d})
	r.Data = map[string]any{"questions": qs}
	return r
}

func composeDeleteConfirmation(id domain.TaskID, title string) Reply {
	body := fmt.Sprintf("Delete **%s**? Reply **yes** to confirm or **no** to keep it.", displayText(title))
	if title == "" {
		body = "Delete this task? Reply **yes** to confirm or **no** to keep it."
	}
	return withState(body, AwaitingDeleteConfirmation{TaskID: id, Title: title})
}

func composeDisambiguation(m CandidateMatch) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d tasks matching \"%s\". ", len(m.Candidates), displayText(m.SearchTerm))
	if m.Truncated {
		fmt.Fprintf(&b, "Showing the first %d. ", MaxCandidates)
	}
	b.WriteString("Reply with the letter of the one to delete:")
	return withState(b.String(), AwaitingDeleteDisambiguation{Candidates: m.Candidates})
}

func composeNotFound(m CandidateMatch) Reply {
	if len(m.Hint) == 0 {
		return Reply{Text: "You have no pending tasks, so there is nothing to delete.", State: Idle{}}
	}

	var b strings.Builder
	if m.SearchTerm == "" {
		b.WriteString("Which task should I delete? Your open tasks:\n\n")
	} else {
		fmt.Fprintf(&b, "I couldn't find an open task matching \"%s\". Your open tasks:\n\n", displayText(m.SearchTerm))
	}
	for _, title := range m.Hint {
		fmt.Fprintf(&b, "- %s\n", displayText(title))
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n"), State: Idle{}}
}

func composeDeleteCancelled() Reply {
	return Reply{Text: "Okay, I kept the task.", State: Idle{}}
}

func composeCreated(t *domain.Task) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "Created task **%s**", displayText(t.Title))
	if t.DueDate != nil {
		fmt.Fprintf(&b, " due %s", t.DueDate.Format("Mon Jan 2"))
		if t.StartTime != "" {
			fmt.Fprintf(&b, " at %s", t.StartTime)
			if t.EndTime != "" {
				fmt.Fprintf(&b, "-%s", t.EndTime)
			}
		}
	}
	fmt.Fprintf(&b, " (%s priority).", t.Priority)
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, " Tags: %s.", displayText(strings.Join(t.Tags, ", ")))
	}
	return Reply{
		Text:    b.String(),
		State:   Idle{},
		Command: CommandCreateTask,
		Data:    map[string]any{"task": t},
	}
}

func composeDeleted(id domain.TaskID, title string) Reply {
	text := fmt.Sprintf("Deleted task **%s**.", displayText(title))
	if title == "" {
		text = "Deleted the task."
	}
	return Reply{
		Text:    text,
		State:   Idle{},
		Command: CommandDeleteTask,
		Data:    map[string]any{"task_id": id, "title": title},
	}
}

func composeActionFailed(action string, err error) Reply {
	return Reply{
		Text:  fmt.Sprintf("Sorry, I couldn't %s: %s", action, stripMarkers(err.Error())),
		State: Idle{},
		Data:  map[string]any{"error": err.Error()},
	}
}

// stripMarkers keeps collaborator error text from smuggling a marker into
// a reply that must leave the conversation idle.
func stripMarkers(s string) string {
	for _, tok := range markerTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	return s
}
