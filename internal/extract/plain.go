package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain decodes text files. Invalid UTF-8 becomes U+FFFD, a leading
// byte order mark is dropped and line endings are normalized to \n.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s, nil
}
