package conversation

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

const (
	FieldTitle    = "title"
	FieldDueDate  = "dueDate"
	FieldPriority = "priority"
)

// ClarificationQuestion asks the user for one missing field.
type ClarificationQuestion struct {
	Field  string `json:"field"`
	Prompt string `json:"prompt"`
}

var (
	timeSensitive = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|today|deadline|due|next week)\b`)
	urgency       = regexp.MustCompile(`\b(urgent|asap|critical|emergency)\b`)
)

// MissingFields decides which fields must be clarified before a draft is
// safe to create. Description and tags are never asked about. The keyword
// checks look at both the extracted title and the original request, since
// extraction usually strips the date words out of the title.
func MissingFields(d domain.TaskDraft, request string) []ClarificationQuestion {
	text := strings.ToLower(d.Title + " " + request)

	var qs []ClarificationQuestion
	if d.DueDate == nil && !timeSensitive.MatchString(text) {
		qs = append(qs, ClarificationQuestion{Field: FieldDueDate, Prompt: "When is this due?"})
	}
	if !d.PriorityExplicit && d.Priority == domain.PriorityMedium && urgency.MatchString(text) {
		qs = append(qs, ClarificationQuestion{Field: FieldPriority, Prompt: "What priority should this be?"})
	}
	return qs
}

// titleQuestion is asked when extraction and fallback both produced no title.
var titleQuestion = ClarificationQuestion{Field: FieldTitle, Prompt: "What should the task be called?"}
