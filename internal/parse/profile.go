// Package parse turns free-form message text into structured updates:
// profile field changes and poll drafts.
package parse

import "strings"

// ProfileUpdate is a partial profile change extracted from free text.
// Nil fields were not mentioned and must be left untouched.
type ProfileUpdate struct {
	Email *string
	Phone *string
}

// Empty reports whether no recognized field was found. Callers must
// treat this as "nothing to update" and reply with a format error
// rather than silently succeeding.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.Phone == nil
}

// Profile scans text line by line for "email: value" and
// "phone: value" pairs. Keys match case-insensitively with surrounding
// whitespace trimmed on both key and value; the last occurrence of a
// repeated key wins; unrecognized lines are ignored.
func Profile(text string) ProfileUpdate {
	var update ProfileUpdate
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch key {
		case "email":
			v := value
			update.Email = &v
		case "phone":
			v := value
			update.Phone = &v
		}
	}
	return update
}

// HasProfileKeys reports whether text contains at least one line the
// profile parser would recognize. The router uses this to route free
// text to the profile update path.
func HasProfileKeys(text string) bool {
	return !Profile(text).Empty()
}

func splitKeyValue(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}
