package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes plus an ellipsis without
// splitting a multi-byte rune.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
