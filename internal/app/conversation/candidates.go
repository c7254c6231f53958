package conversation

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/taskpilot/internal/domain"
)

const (
	// OpenTaskLimit caps how many open tasks are searched for a deletion.
	OpenTaskLimit = 20
	// hintLimit caps the titles listed when nothing matched.
	hintLimit = 10
)

type MatchOutcome string

const (
	MatchNotFound     MatchOutcome = "not_found"
	MatchConfirm      MatchOutcome = "confirm"
	MatchDisambiguate MatchOutcome = "disambiguate"
)

// CandidateMatch is the classified result of a deletion search.
type CandidateMatch struct {
	Outcome    MatchOutcome
	SearchTerm string
	Candidates []Candidate
	// Hint lists open task titles when nothing matched.
	Hint []string
	// Truncated is set when more than MaxCandidates tasks matched.
	Truncated bool
}

var deletePhrase = regexp.MustCompile(`(?i)^\s*(please\s+)?(delete|remove|cancel)\b(\s+(the|my))?(\s+task\b)?\s*:?\s*`)

// SearchTerm strips deletion command phrases and lower-cases the rest.
func SearchTerm(request string) string {
	term := strings.TrimSpace(request)
	if loc := deletePhrase.FindStringIndex(term); loc != nil {
		term = term[loc[1]:]
	}
	return strings.ToLower(strings.TrimSpace(term))
}

// ResolveCandidates matches a deletion request against open tasks. A task
// matches when its title contains the search term or the search term
// contains its title. At most MaxCandidates are lettered.
func ResolveCandidates(request string, open []*domain.Task) CandidateMatch {
	if len(open) > OpenTaskLimit {
		open = open[:OpenTaskLimit]
	}

	res := CandidateMatch{SearchTerm: SearchTerm(request)}

	var matched []*domain.Task
	if res.SearchTerm != "" {
		for _, t := range open {
			title := strings.ToLower(strings.TrimSpace(t.Title))
			if title == "" {
				continue
			}
			if strings.Contains(title, res.SearchTerm) || strings.Contains(res.SearchTerm, title) {
				matched = append(matched, t)
			}
		}
	}

	switch {
	case len(matched) == 0:
		res.Outcome = MatchNotFound
		for i, t := range open {
			if i == hintLimit {
				break
			}
			res.Hint = append(res.Hint, t.Title)
		}
	case len(matched) == 1:
		res.Outcome = MatchConfirm
		res.Candidates = []Candidate{{Letter: letterFor(0), Title: matched[0].Title, TaskID: matched[0].ID}}
	default:
		res.Outcome = MatchDisambiguate
		if len(matched) > MaxCandidates {
			matched = matched[:MaxCandidates]
			res.Truncated = true
		}
		for i, t := range matched {
			res.Candidates = append(res.Candidates, Candidate{Letter: letterFor(i), Title: t.Title, TaskID: t.ID})
		}
	}
	return res
}
