package tts

import (
	"regexp"
	"strings"
)

var (
	headerMarks = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis    = regexp.MustCompile(`[*_]+`)
	backticks   = regexp.MustCompile("`+")
)

// Sanitize strips markdown formatting so it is never read aloud:
// heading markers, bold/italic asterisks and underscores, backticks.
func Sanitize(text string) string {
	text = headerMarks.ReplaceAllString(text, "")
	text = emphasis.ReplaceAllString(text, "")
	text = backticks.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
