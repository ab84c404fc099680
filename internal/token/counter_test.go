package token

import (
	"errors"
	"testing"
)

func TestWordCounter(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single word", "hello", 1},
		{"two words", "Hello there", 2},
		{"leading and trailing space", "  Hello there  ", 2},
		{"punctuation stays attached", "Dr. Smith arrived.", 3},
		{"collapsed runs of spaces", "a  b\t\nc", 3},
		{"cjk runes count individually", "你好世界", 4},
		{"mixed cjk and latin", "说 hello 了", 3},
	}

	var c WordCounter
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Count(tc.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Count(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestFuncAdapter(t *testing.T) {
	calls := 0
	f := Func(func(text string) (int, error) {
		calls++
		return len(text), nil
	})

	n, err := f.Count("abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 || calls != 1 {
		t.Errorf("Count = %d (calls %d), want 4 (1)", n, calls)
	}
}

func TestSentencePieceCounterRejectsEmptyPath(t *testing.T) {
	_, err := NewSentencePieceCounter("")
	if !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestNewTiktokenCounterDefaultsEncoding(t *testing.T) {
	c := NewTiktokenCounter("")
	if c.encoding != DefaultEncoding {
		t.Errorf("encoding = %q, want %q", c.encoding, DefaultEncoding)
	}
}
