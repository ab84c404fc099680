// Package text provides the light text cleanup applied before synthesis:
// Unicode normalization, whitespace taming and markdown stripping.
package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	multiSpace   = regexp.MustCompile(`  +`)
	multiNewline = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Normalize brings raw text into NFC form and collapses excessive
// whitespace. Single spaces, line structure and surrounding whitespace are
// preserved so segment boundaries stay byte-stable.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = norm.NFC.String(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")

	return s
}
