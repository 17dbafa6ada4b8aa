package audit

import (
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	// Phone numbers with at least seven digits, allowing separators and
	// an international prefix.
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{5,}\d`)
)

const redactedMark = "[redacted]"

// Redact replaces personally identifying substrings (email addresses,
// phone numbers) in free-text detail with a placeholder.
func Redact(detail string) string {
	if detail == "" {
		return detail
	}
	out := emailPattern.ReplaceAllString(detail, redactedMark)
	out = phonePattern.ReplaceAllString(out, redactedMark)
	return out
}
