package conversation

import (
	"regexp"
	"strings"
)

// Intent is the command a fresh user message asks for.
type Intent string

const (
	IntentNone       Intent = "none"
	IntentReport     Intent = "report"
	IntentPatterns   Intent = "patterns"
	IntentCreateTask Intent = "create_task"
	IntentDeleteTask Intent = "delete_task"
)

var reportPhrases = []string{
	"roast me",
	"roast my week",
	"weekly report",
	"week report",
	"generate report",
	"generate a report",
	"how did i do this week",
	"review my week",
	"week in review",
}

var patternPhrases = []string{
	"analyze my patterns",
	"analyse my patterns",
	"analyze patterns",
	"analyse patterns",
	"pattern analysis",
	"show my patterns",
	"my patterns",
	"productivity patterns",
}

// Command phrases anchored at the start of the message win over phrases
// found anywhere, so "add task: remove old files" stays a creation.
var (
	createPrefix = regexp.MustCompile(`^(please\s+)?((add|create|new|make)(\s+a)?(\s+new)?\s+(task|todo|reminder)\b|(task|todo)\s*:)`)
	deletePrefix = regexp.MustCompile(`^(please\s+)?((delete|remove)\b|cancel\s+(the\s+|my\s+)?task\b)`)

	deleteAnywhere = regexp.MustCompile(`\b(delete|remove)\s+(the\s+|my\s+)?task\b|\b(delete|remove)\s*:`)
	createAnywhere = regexp.MustCompile(`\bremind me to\b|\badd\s+(a\s+)?(task|todo)\b|\bcreate\s+(a\s+)?task\b`)
)

// ClassifyIntent maps the latest user message onto a command. Report and
// pattern phrases are checked before task commands.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return IntentNone
	}

	if containsAny(lower, reportPhrases) {
		return IntentReport
	}
	if containsAny(lower, patternPhrases) {
		return IntentPatterns
	}

	switch {
	case createPrefix.MatchString(lower):
		return IntentCreateTask
	case deletePrefix.MatchString(lower):
		return IntentDeleteTask
	case deleteAnywhere.MatchString(lower):
		return IntentDeleteTask
	case createAnywhere.MatchString(lower):
		return IntentCreateTask
	}
	return IntentNone
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
