package engine

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/example/go-nano-tts/internal/audio"
)

// DummyName is the registry name of the built-in test backend.
const DummyName = "dummy"

func init() {
	err := Default().Register(DummyName, "deterministic silence-free test backend", func(ctx context.Context, opts map[string]any) (Engine, error) {
		d := &Dummy{spec: audio.DefaultSpec()}
		if v, ok := opts["delay_ms"]; ok {
			ms, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("engine %s: delay_ms must be an int, got %T", DummyName, v)
			}
			d.delay = time.Duration(ms) * time.Millisecond
		}
		return d, nil
	})
	if err != nil {
		panic(err)
	}
}

// Dummy produces a predictable byte pattern derived from the input text. It
// exists for tests and for exercising the pipeline without a model.
type Dummy struct {
	spec  audio.Spec
	delay time.Duration
}

// Synth returns len(text)*16 bytes built by repeating a marker around the
// text, so output identity and ordering are checkable downstream.
func (d *Dummy) Synth(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return audio.Chunk{}, ctx.Err()
		}
	}

	spec := d.spec
	if target != nil {
		spec = *target
	}

	pattern := []byte("DUMMY_AUDIO[" + text + "]")
	size := len(text) * 16
	data := bytes.Repeat(pattern, size/len(pattern)+1)[:size]

	return audio.Chunk{Data: data, Spec: spec}, nil
}

func (d *Dummy) Close() error { return nil }
