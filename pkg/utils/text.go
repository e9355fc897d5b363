// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s cut to maxLen characters (runes), with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if cut, ok := cutRunes(s, maxLen); ok {
		return cut + "..."
	}
	return s
}

// Head returns the first maxLen characters (runes) of s without a marker.
// If maxLen is 0 or negative, returns s unchanged.
func Head(s string, maxLen int) string {
	cut, _ := cutRunes(s, maxLen)
	return cut
}

func cutRunes(s string, maxLen int) (string, bool) {
	if maxLen <= 0 || len(s) <= maxLen {
		return s, false
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i], true
		}
		n++
	}
	return s, false
}
