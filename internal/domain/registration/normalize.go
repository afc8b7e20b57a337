package registration

import (
	"strings"
	"unicode"
)

// NormalizePhone strips all whitespace and rewrites a leading "+36" to "06",
// so "+36 30 123 4567" and "06301234567" compare equal.
func NormalizePhone(raw string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if rest, ok := strings.CutPrefix(compact, "+36"); ok {
		return "06" + rest
	}
	return compact
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
