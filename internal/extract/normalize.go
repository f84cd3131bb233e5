package extract

import (
	"regexp"
	"strings"
)

// Whitespace as the recognizer emits it. Written out because RE2's \s
// omits the vertical tab.
var reWhitespaceRun = regexp.MustCompile(`[\t\n\v\f\r ]{2,}`)

// Normalize cleans raw recognized text:
//
//   - '|' becomes 'I', the most common misread of a capital I
//   - every byte outside 7-bit ASCII is dropped
//   - runs of two or more whitespace characters become one space
//   - leading and trailing whitespace is trimmed
//
// Single line breaks survive. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '|':
			b.WriteByte('I')
		case c < 0x80:
			b.WriteByte(c)
		}
	}

	out := reWhitespaceRun.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(out)
}

// NonSpaceLen counts the characters of s that are not whitespace.
func NonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\v', '\f', '\r':
		default:
			n++
		}
	}
	return n
}
