// Package token provides token counting for the segmentation pipeline.
// Counting is treated as an opaque capability: the segmenter only ever asks
// "how many tokens is this string", never how the tokens are spelled.
package token

import (
	"errors"
	"unicode"
)

// ErrTokenize is returned when a counting backend is unavailable or
// misconfigured. It is fatal for the stream that owns the counter.
var ErrTokenize = errors.New("tokenization failed")

// Counter reports how many tokens a string occupies under a fixed counting
// scheme. Implementations must be deterministic and side-effect free.
type Counter interface {
	Count(text string) (int, error)
}

// Func adapts a plain function to Counter.
type Func func(text string) (int, error)

func (f Func) Count(text string) (int, error) { return f(text) }

// WordCounter is the default heuristic counter: each whitespace-delimited
// word counts as one token, and each CJK rune counts as one token on its own
// since CJK text carries no word-separating whitespace.
type WordCounter struct{}

func (WordCounter) Count(text string) (int, error) {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			count++
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count, nil
}
