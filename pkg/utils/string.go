package utils

import "strings"

// Truncate shortens s to at most maxLen runes, appending "..." when cut.
// Newlines are flattened so previews stay on one line.
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
