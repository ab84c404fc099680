// Package player plays PCM chunks on the local audio device.
package player

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/example/go-nano-tts/internal/audio"
)

// Player owns an audio device context. The device is opened once with a
// fixed spec; chunks with a different spec are converted before playback.
type Player struct {
	spec audio.Spec

	once sync.Once
	ctx  *oto.Context
	err  error
}

// New prepares a player for the given spec. The device itself is opened
// lazily on first playback. Only 16-bit PCM is supported by the device layer.
func New(spec audio.Spec) (*Player, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Codec != audio.CodecPCM || spec.SampleWidth != 16 {
		return nil, fmt.Errorf("%w: playback needs 16-bit pcm, got %s", audio.ErrUnsupportedConversion, spec)
	}
	return &Player{spec: spec}, nil
}

func (p *Player) init() error {
	p.once.Do(func() {
		otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   p.spec.SampleRate,
			ChannelCount: p.spec.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			p.err = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		p.ctx = otoCtx
	})
	return p.err
}

// Play blocks until the chunk has finished playing or ctx is canceled.
func (p *Player) Play(ctx context.Context, chunk audio.Chunk) error {
	if len(chunk.Data) == 0 {
		return nil
	}
	if chunk.Spec != p.spec {
		converted, err := audio.Convert(chunk, p.spec)
		if err != nil {
			return err
		}
		chunk = converted
	}
	if err := p.init(); err != nil {
		return err
	}

	dev := p.ctx.NewPlayer(bytes.NewReader(chunk.Data))
	defer dev.Close()
	dev.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for dev.IsPlaying() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
