package ivr

import (
	"strings"
	"unicode"

	"hvac-backoffice/internal/booking"
)

// Keyword matching is deliberately simple: lower-cased substring match, except that
// keywords of two characters or fewer must match a whole word ("ac" must not match "back").

var issueKeywords = map[booking.IssueType][]string{
	booking.IssueNoHeat:      {"no heat", "heat", "heating", "heater", "furnace", "boiler", "freezing", "warm up"},
	booking.IssueNoCool:      {"no cool", "cool", "cooling", "ac", "a/c", "air condition", "blowing cold", "blowing warm", "blowing hot"},
	booking.IssueMaintenance: {"maintenance", "tune up", "tune-up", "tuneup", "check up", "checkup", "inspection", "service", "filter"},
	booking.IssuePlumbing:    {"plumb", "leak", "pipe", "drain", "toilet", "sink", "water"},
}

// windowKeywords are indexed by window position in the day.
var windowKeywords = [][]string{
	{"morning", "8", "eight", "eleven"},
	{"afternoon", "12", "noon", "twelve"},
	{"evening", "3", "later", "three"},
}

var humanKeywords = []string{"agent", "representative", "operator", "human", "real person", "speak to someone", "talk to someone"}

// MatchIssue resolves text to an issue type by the first match in booking.IssuePriority.
func MatchIssue(text string) (booking.IssueType, bool) {
	norm, words := normalize(text)
	if norm == "" {
		return "", false
	}
	for _, t := range booking.IssuePriority {
		if containsAny(norm, words, issueKeywords[t]) {
			return t, true
		}
	}
	return "", false
}

// MatchWindowPosition resolves text to a window position (0-based). When several
// buckets match, the earliest window wins.
func MatchWindowPosition(text string) (int, bool) {
	norm, words := normalize(text)
	if norm == "" {
		return 0, false
	}
	for i, kws := range windowKeywords {
		if containsAny(norm, words, kws) {
			return i, true
		}
	}
	return 0, false
}

// WantsHuman reports whether the caller asked for a person.
func WantsHuman(text string) bool {
	norm, words := normalize(text)
	return norm != "" && containsAny(norm, words, humanKeywords)
}

// normalize lower-cases text and splits it into words. Digit runs are split from
// letters so "8am" yields "8" and "am".
func normalize(text string) (string, map[string]bool) {
	norm := strings.ToLower(strings.TrimSpace(text))
	words := map[string]bool{}
	start := -1
	prevDigit := false
	flush := func(end int) {
		if start >= 0 {
			words[norm[start:end]] = true
			start = -1
		}
	}
	for i, r := range norm {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		digit := unicode.IsDigit(r)
		if start >= 0 && digit != prevDigit {
			flush(i)
		}
		if start < 0 {
			start = i
		}
		prevDigit = digit
	}
	flush(len(norm))
	return norm, words
}

func containsAny(norm string, words map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if len(kw) <= 2 {
			if words[kw] {
				return true
			}
			continue
		}
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}
