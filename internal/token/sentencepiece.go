package token

import (
	"errors"
	"fmt"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// ErrEmptyPath is returned when NewSentencePieceCounter is called with an empty path.
var ErrEmptyPath = errors.New("tokenizer model path must not be empty")

// SentencePieceCounter counts tokens using a pure-Go UNIGRAM SentencePiece
// model, for callers whose synthesis backend tokenizes with SentencePiece.
type SentencePieceCounter struct {
	proc gosp.Sentencepiece
}

// NewSentencePieceCounter loads a SentencePiece model from the given path.
func NewSentencePieceCounter(modelPath string) (*SentencePieceCounter, error) {
	if modelPath == "" {
		return nil, ErrEmptyPath
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("%w: load sentencepiece model %q: %v", ErrTokenize, modelPath, err)
	}

	return &SentencePieceCounter{proc: proc}, nil
}

func (c *SentencePieceCounter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(c.proc.TokenizeToIDs(text)), nil
}
