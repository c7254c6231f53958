package conversation

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

const chatSystemPrompt = `
You are "Pilot", the assistant inside a personal productivity app that
tracks tasks, goals and calendars.

Your role:
- Help the user plan, prioritise and reflect on their work.
- Be concise: a few short paragraphs or bullet points.
- Answer in the SAME LANGUAGE as the user.

Commands the app handles for you (mention them when they would help):
- "add task: ..." or "remind me to ..." creates a task.
- "delete task: ..." removes a task.
- "weekly report" or "roast me" reviews the last week.
- "analyze my patterns" looks for productivity patterns.

Never claim you created, changed or deleted a task yourself.
`

// historyWindow caps how many earlier messages are sent for free chat.
const historyWindow = 20

var htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

// buildChatPrompt renders the transcript for free-form chat. Marker blocks
// are removed so the model never sees or repeats them.
func buildChatPrompt(conv domain.Conversation) (system, user string) {
	history := conv[:len(conv)-1]
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var parts []string
	for _, m := range history {
		parts = append(parts, string(m.Role)+": "+cleanForPrompt(m.Content))
	}

	var b strings.Builder
	if len(parts) > 0 {
		b.WriteString("Conversation so far:\n")
		b.WriteString(strings.Join(parts, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("New user message:\n")
	b.WriteString(conv.Latest().Content)

	return chatSystemPrompt, b.String()
}

func cleanForPrompt(s string) string {
	return strings.TrimSpace(stripMarkers(htmlComment.ReplaceAllString(s, "")))
}
