package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

var (
	isoDate   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	clockTime = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	weekdays  = []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
)

// dateOnly truncates t to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseDate accepts a YYYY-MM-DD date in today's location.
func parseDate(s string, today time.Time) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, s, today.Location())
	if err != nil {
		return nil
	}
	return &t
}

// resolveRelativeDate finds a due date in free text: an ISO date, "today",
// "tomorrow", "next week" or a weekday name (its next occurrence).
func resolveRelativeDate(text string, today time.Time) *time.Time {
	today = dateOnly(today)
	lower := strings.ToLower(text)

	if m := isoDate.FindStringSubmatch(lower); m != nil {
		return parseDate(m[1], today)
	}

	var d time.Time
	switch {
	case containsWord(lower, "today"), containsWord(lower, "tonight"):
		d = today
	case containsWord(lower, "tomorrow"):
		d = today.AddDate(0, 0, 1)
	case strings.Contains(lower, "next week"):
		d = today.AddDate(0, 0, 7)
	default:
		found := false
		for _, wd := range weekdays {
			if containsWord(lower, strings.ToLower(wd.String())) {
				diff := (int(wd) - int(today.Weekday()) + 7) % 7
				if diff == 0 {
					diff = 7
				}
				d = today.AddDate(0, 0, diff)
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return &d
}

// normalizeClock turns "6am", "6:30 pm" or "18:00" into HH:MM. Unparseable
// values yield "".
func normalizeClock(s string) string {
	m := clockTime.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return ""
	}
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

func containsWord(s, word string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`).MatchString(s)
}
