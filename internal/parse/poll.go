package parse

import "strings"

// PollDraft is a poll definition extracted from free text.
type PollDraft struct {
	Question string
	Options  []string
}

// Valid reports whether the draft has a question and at least two
// options, the minimum for a meaningful poll.
func (d PollDraft) Valid() bool {
	return d.Question != "" && len(d.Options) >= 2
}

// Poll scans text for a "question: ..." line and "option: ..." lines
// (numbered variants like "option1:" also match). Options keep their
// order of appearance; a repeated question line wins last.
func Poll(text string) PollDraft {
	var draft PollDraft
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitKeyValue(line)
		if !ok || value == "" {
			continue
		}
		switch {
		case key == "question":
			draft.Question = value
		case isOptionKey(key):
			draft.Options = append(draft.Options, value)
		}
	}
	return draft
}

// HasPollKey reports whether text contains a question line, used by
// the router to route free text to the poll creation path.
func HasPollKey(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if key, _, ok := splitKeyValue(line); ok && key == "question" {
			return true
		}
	}
	return false
}

func isOptionKey(key string) bool {
	rest, found := strings.CutPrefix(key, "option")
	if !found {
		return false
	}
	if rest == "" {
		return true
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
