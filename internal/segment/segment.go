// Package segment turns an incremental stream of text fragments into
// synthesizable segments using token-count thresholds and a tiered
// punctuation policy.
package segment

import (
	"errors"
	"fmt"
	"time"
)

// Tier records which boundary rule justified a segment cut.
type Tier int

const (
	// TierSentence is a cut at strong sentence-ending punctuation.
	TierSentence Tier = iota
	// TierComma is a cut at secondary punctuation once MaxTokens is reached.
	TierComma
	// TierForced is a latency-backstop cut at a whitespace boundary.
	TierForced
	// TierFlush is an unconditional cut at end-of-stream or input idleness.
	TierFlush
)

func (t Tier) String() string {
	switch t {
	case TierSentence:
		return "sentence"
	case TierComma:
		return "comma"
	case TierForced:
		return "forced"
	case TierFlush:
		return "flush"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Segment is one contiguous slice of the input text, handed to exactly one
// synthesis call. Text is verbatim input: concatenating the Text of all
// segments in ID order reproduces the fed text byte for byte.
type Segment struct {
	ID   int
	Text string
	Tier Tier
}

var (
	// ErrInvalidConfig is returned for threshold configurations that violate
	// the Config invariants.
	ErrInvalidConfig = errors.New("invalid segmenter configuration")
	// ErrClosed is returned when feeding a segmenter after Finish.
	ErrClosed = errors.New("segmenter is closed")
)

// Config holds the boundary thresholds.
type Config struct {
	// MinTokens is the minimum token count before a non-forced boundary may
	// fire. Must be >= 1.
	MinTokens int
	// MaxTokens is the hard ceiling that forces a boundary. Must be >= MinTokens.
	MaxTokens int
	// IdleTimeout is how long the input may stay silent before the buffered
	// text is flushed. Zero disables idle flushing.
	IdleTimeout time.Duration
}

// DefaultConfig mirrors the library defaults: short first segment for low
// first-audio latency, 50-token ceiling, 800 ms idle flush.
func DefaultConfig() Config {
	return Config{MinTokens: 10, MaxTokens: 50, IdleTimeout: 800 * time.Millisecond}
}

// Validate checks the Config invariants.
func (c Config) Validate() error {
	if c.MinTokens < 1 {
		return fmt.Errorf("%w: min tokens %d, must be >= 1", ErrInvalidConfig, c.MinTokens)
	}
	if c.MaxTokens < c.MinTokens {
		return fmt.Errorf("%w: max tokens %d, must be >= min tokens %d", ErrInvalidConfig, c.MaxTokens, c.MinTokens)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("%w: idle timeout %v, must be >= 0", ErrInvalidConfig, c.IdleTimeout)
	}
	return nil
}
