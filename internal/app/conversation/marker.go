package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

// Marker is one of the tags embedded in assistant replies so that the next
// turn can resume a pending flow from the transcript alone.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerCreateTask
	MarkerDeleteTask
	MarkerSelectTask
)

var markerTokens = map[Marker]string{
	MarkerCreateTask: "VALIDATION_CREATE_TASK",
	MarkerDeleteTask: "VALIDATION_DELETE_TASK",
	MarkerSelectTask: "VALIDATION_SELECT_TASK",
}

func (m Marker) String() string {
	if tok, ok := markerTokens[m]; ok {
		return tok
	}
	return "NONE"
}

var (
	taskIDLine    = regexp.MustCompile(`(?m)^Task ID: ([0-9A-Za-z-]{36})\s*$`)
	taskTitleLine = regexp.MustCompile(`(?m)^Task: (.+?)\s*$`)
	candidateLine = regexp.MustCompile(`(?m)^([a-j])\. (.+) \(ID: ([0-9A-Za-z-]{36})\)\s*$`)
)

// EncodeState renders the marker block for a pending state. Idle encodes to
// the empty string so replies that finish a flow carry no markers.
//
// The disambiguation list doubles as the visible choice list, so callers
// must not render candidates a second time.
func EncodeState(s DialogueState) string {
	var b strings.Builder
	switch st := s.(type) {
	case AwaitingCreateClarification:
		fmt.Fprintf(&b, "<!-- %s -->", MarkerCreateTask)
	case AwaitingDeleteConfirmation:
		fmt.Fprintf(&b, "<!-- %s\n", MarkerDeleteTask)
		fmt.Fprintf(&b, "Task ID: %s\n", st.TaskID)
		if title := displayText(st.Title); title != "" {
			fmt.Fprintf(&b, "Task: %s\n", title)
		}
		b.WriteString("-->")
	case AwaitingDeleteDisambiguation:
		for _, c := range st.Candidates {
			fmt.Fprintf(&b, "%s. %s (ID: %s)\n", c.Letter, displayText(c.Title), c.TaskID)
		}
		fmt.Fprintf(&b, "<!-- %s -->", MarkerSelectTask)
	}
	return b.String()
}

// DecodeState recovers the pending state from an assistant reply. Text
// without a complete marker decodes to Idle.
func DecodeState(text string) DialogueState {
	switch {
	case strings.Contains(text, MarkerDeleteTask.String()):
		m := taskIDLine.FindStringSubmatch(text)
		if m == nil {
			return Idle{}
		}
		st := AwaitingDeleteConfirmation{TaskID: domain.TaskID(m[1])}
		if t := taskTitleLine.FindStringSubmatch(text); t != nil {
			st.Title = t[1]
		}
		return st

	case strings.Contains(text, MarkerSelectTask.String()):
		var st AwaitingDeleteDisambiguation
		for _, m := range candidateLine.FindAllStringSubmatch(text, MaxCandidates) {
			st.Candidates = append(st.Candidates, Candidate{
				Letter: m[1],
				Title:  m[2],
				TaskID: domain.TaskID(m[3]),
			})
		}
		if len(st.Candidates) == 0 {
			return Idle{}
		}
		return st

	case strings.Contains(text, MarkerCreateTask.String()):
		return AwaitingCreateClarification{}
	}
	return Idle{}
}

// HasMarker reports whether text carries any dialogue marker.
func HasMarker(text string) bool {
	for _, tok := range markerTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// displayText renders user-supplied text (titles, search terms) inside a
// reply. It can neither carry a marker token nor start a line of its own.
func displayText(s string) string {
	return singleLine(stripMarkers(s))
}
