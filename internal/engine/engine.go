// Package engine defines the synthesis backend contract and a process-wide
// registry of named backends.
package engine

import (
	"context"

	"github.com/example/go-nano-tts/internal/audio"
)

// Engine turns one text segment into one audio chunk. Implementations should
// honor ctx cancellation, but the pipeline tolerates backends that do not.
type Engine interface {
	// Synth synthesizes text into audio. target is advisory: the backend may
	// produce a different spec and the pipeline converts afterwards. A nil
	// target means the backend's native spec.
	Synth(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error)

	// Close releases backend resources. Synth must not be called afterwards.
	Close() error
}

// Func adapts a synthesis function to Engine with a no-op Close.
type Func func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error)

func (f Func) Synth(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
	return f(ctx, text, target)
}

func (f Func) Close() error { return nil }
