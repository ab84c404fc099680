package segment

import "strings"

// abbreviations that end in a dot without ending a sentence. A finite
// heuristic denylist, not a grammar; tune as needed.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true,
	"inc": true, "ltd": true, "co": true, "corp": true,
	"vs": true, "etc": true, "cf": true, "al": true,
	"i.e": true, "e.g": true,
	"ph.d": true, "m.d": true, "b.a": true, "m.a": true, "b.s": true,
	"u.s": true, "u.k": true, "u.n": true, "e.u": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true,
	"no": true, "vol": true, "fig": true, "approx": true,
}

// isAbbreviation reports whether the dot at dotEnd-1 terminates a known
// abbreviation rather than a sentence. dotEnd is the byte index just past
// the dot.
func isAbbreviation(buf string, dotEnd int) bool {
	// Word before the dot, dot excluded.
	start := dotEnd - 1
	for start > 0 && !isSpaceByte(buf[start-1]) {
		start--
	}
	word := strings.ToLower(buf[start : dotEnd-1])
	if word == "" {
		return false
	}
	if abbreviations[word] {
		return true
	}
	// Multi-dot words like Ph.D. or U.S. are treated as abbreviations even
	// when not listed.
	if strings.Contains(word, ".") {
		return true
	}
	// Single letters with a dot ("J. Smith") are initials.
	if len(word) == 1 && isLetterByte(word[0]) {
		return true
	}
	return false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isLetterByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
