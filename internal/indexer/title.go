package indexer

import (
	"strings"
	"unicode"
)

// CleanTitle turns an extracted title into a single display line: invisible
// format characters (soft hyphens, zero-width spaces, BOMs) and control
// characters are dropped and whitespace runs become one space. Article bodies
// are stored verbatim so their chunks reassemble exactly.
func CleanTitle(title string) string {
	visible := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.Is(unicode.Cf, r), unicode.IsControl(r):
			return -1
		}
		return r
	}, title)
	return strings.Join(strings.Fields(visible), " ")
}
