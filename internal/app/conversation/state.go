package conversation

import "github.com/PabloGalante/taskpilot/internal/domain"

// MaxCandidates bounds a disambiguation list to the letters a..j.
const MaxCandidates = 10

// Candidate is one lettered entry offered when a deletion request matches
// several open tasks.
type Candidate struct {
	Letter string        `json:"letter"`
	Title  string        `json:"title"`
	TaskID domain.TaskID `json:"task_id"`
}

// DialogueState is where the previous turn left the conversation. It is
// never stored server side: each request re-derives it from the transcript
// or from an echoed state token.
type DialogueState interface {
	Kind() StateKind
}

type StateKind string

const (
	StateIdle                         StateKind = "idle"
	StateAwaitingCreateClarification  StateKind = "awaiting_create_clarification"
	StateAwaitingDeleteConfirmation   StateKind = "awaiting_delete_confirmation"
	StateAwaitingDeleteDisambiguation StateKind = "awaiting_delete_disambiguation"
)

type Idle struct{}

// AwaitingCreateClarification carries the creation request the pending
// questions were asked about. Request is empty when the state was decoded
// from a transcript marker; the orchestrator then recovers it by scanning
// the transcript.
type AwaitingCreateClarification struct {
	Request string           `json:"request,omitempty"`
	Draft   domain.TaskDraft `json:"draft"`
}

type AwaitingDeleteConfirmation struct {
	TaskID domain.TaskID `json:"task_id"`
	Title  string        `json:"title,omitempty"`
}

type AwaitingDeleteDisambiguation struct {
	Candidates []Candidate `json:"candidates"`
}

func (Idle) Kind() StateKind                         { return StateIdle }
func (AwaitingCreateClarification) Kind() StateKind  { return StateAwaitingCreateClarification }
func (AwaitingDeleteConfirmation) Kind() StateKind   { return StateAwaitingDeleteConfirmation }
func (AwaitingDeleteDisambiguation) Kind() StateKind { return StateAwaitingDeleteDisambiguation }

// letterFor returns the selector for the i-th candidate.
func letterFor(i int) string {
	return string(rune('a' + i))
}

func (s AwaitingDeleteDisambiguation) find(letter string) (Candidate, bool) {
	for _, c := range s.Candidates {
		if c.Letter == letter {
			return c, true
		}
	}
	return Candidate{}, false
}
