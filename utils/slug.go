package utils

import (
	"strings"
	"unicode"
)

// Slugify lowercases s and joins runs of letters and digits with single hyphens.
// Non-ASCII letters are kept so translated titles still produce readable slugs.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	out := []rune(b.String())
	if len(out) > 200 {
		out = out[:200]
	}
	return strings.TrimRight(string(out), "-")
}
