package conversation

import (
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// ResolutionKind is what the latest user reply means given the pending state.
type ResolutionKind string

const (
	// ResolveNone means no flow is pending or the reply did not settle it;
	// the turn is handled as a fresh command.
	ResolveNone                ResolutionKind = "none"
	ResolveCreateClarification ResolutionKind = "create_clarification"
	ResolveDeleteConfirmed     ResolutionKind = "delete_confirmed"
	ResolveDeleteCancelled     ResolutionKind = "delete_cancelled"
	ResolveCandidateSelected   ResolutionKind = "candidate_selected"
)

// Resolution is the output of reconstruction.
type Resolution struct {
	Kind ResolutionKind

	// Create clarification.
	Request string
	Reply   string
	Draft   domain.TaskDraft

	// Deletion.
	TaskID domain.TaskID
	Title  string
}

var (
	affirmativeReplies = map[string]bool{"yes": true, "y": true, "confirm": true}
	negativeReplies    = map[string]bool{"no": true, "n": true, "cancel": true}
)

// PendingState decodes the state left by the previous assistant turn.
// Conversations shorter than two messages, or whose second-to-last message
// is not an assistant reply, have nothing pending.
func PendingState(conv domain.Conversation) DialogueState {
	prev, ok := conv.Previous()
	if !ok || prev.Role != domain.RoleAssistant || conv.Latest().Role != domain.RoleUser {
		return Idle{}
	}
	return DecodeState(prev.Content)
}

// Reconstruct derives the pending state from the transcript and interprets
// the latest user reply against it. It has no side effects.
func Reconstruct(conv domain.Conversation) Resolution {
	return Resolve(PendingState(conv), conv)
}

// Resolve interprets the latest user reply against an already decoded state.
func Resolve(state DialogueState, conv domain.Conversation) Resolution {
	if len(conv) < 2 {
		return Resolution{Kind: ResolveNone}
	}
	reply := conv.Latest().Content

	switch st := state.(type) {
	case AwaitingCreateClarification:
		request := st.Request
		if request == "" {
			request = findCreateRequest(conv[:len(conv)-1])
		}
		if request == "" {
			return Resolution{Kind: ResolveNone}
		}
		return Resolution{
			Kind:    ResolveCreateClarification,
			Request: request,
			Reply:   reply,
			Draft:   st.Draft,
		}

	case AwaitingDeleteConfirmation:
		switch token := normalizeReply(reply); {
		case affirmativeReplies[token]:
			return Resolution{Kind: ResolveDeleteConfirmed, TaskID: st.TaskID, Title: st.Title}
		case negativeReplies[token]:
			return Resolution{Kind: ResolveDeleteCancelled}
		}

	case AwaitingDeleteDisambiguation:
		letter := strings.TrimSpace(reply)
		if len(letter) == 1 && letter[0] >= 'a' && letter[0] <= 'z' {
			if c, ok := st.find(letter); ok {
				return Resolution{Kind: ResolveCandidateSelected, TaskID: c.TaskID, Title: c.Title}
			}
		}
	}
	return Resolution{Kind: ResolveNone}
}

// findCreateRequest scans backwards for the most recent user message that
// classifies as a creation command.
func findCreateRequest(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == domain.RoleUser && ClassifyIntent(m.Content) == IntentCreateTask {
			return m.Content
		}
	}
	return ""
}

func normalizeReply(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), ".!")
}
