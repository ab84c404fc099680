// Package audio defines the audio value types shared by the synthesis
// pipeline and the WAV/PCM conversion helpers around them.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Codec identifies the byte-level encoding of an audio payload.
type Codec string

const (
	CodecPCM  Codec = "pcm"
	CodecMP3  Codec = "mp3"
	CodecOpus Codec = "opus"
)

// ErrInvalidSpec is returned when a Spec fails validation.
var ErrInvalidSpec = errors.New("invalid audio spec")

// Spec describes an audio format. It is a plain value: construct it once,
// compare it with ==, never mutate it.
type Spec struct {
	Codec       Codec
	SampleRate  int
	Channels    int
	SampleWidth int // bits per sample; meaningful for PCM only
}

// DefaultSpec returns the pipeline default output format:
// 16 kHz mono 16-bit PCM.
func DefaultSpec() Spec {
	return Spec{Codec: CodecPCM, SampleRate: 16000, Channels: 1, SampleWidth: 16}
}

// Validate checks the spec invariants.
func (s Spec) Validate() error {
	switch s.Codec {
	case CodecPCM, CodecMP3, CodecOpus:
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalidSpec, s.Codec)
	}
	if s.SampleRate < 1 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidSpec, s.SampleRate)
	}
	if s.Channels != 1 && s.Channels != 2 {
		return fmt.Errorf("%w: channels %d", ErrInvalidSpec, s.Channels)
	}
	if s.Codec == CodecPCM {
		switch s.SampleWidth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("%w: sample width %d", ErrInvalidSpec, s.SampleWidth)
		}
	} else if s.SampleWidth != 0 {
		return fmt.Errorf("%w: sample width is only valid for pcm", ErrInvalidSpec)
	}
	return nil
}

func (s Spec) String() string {
	if s.Codec == CodecPCM {
		return fmt.Sprintf("%s/%dHz/%dch/%dbit", s.Codec, s.SampleRate, s.Channels, s.SampleWidth)
	}
	return fmt.Sprintf("%s/%dHz/%dch", s.Codec, s.SampleRate, s.Channels)
}

// Chunk is a synthesized audio payload together with the Spec describing it.
// Ownership of Data transfers to the receiver.
type Chunk struct {
	Data []byte
	Spec Spec
}

// Duration reports the play time of a PCM chunk. Non-PCM chunks report zero
// because their length cannot be derived from the byte count alone.
func (c Chunk) Duration() time.Duration {
	if c.Spec.Codec != CodecPCM || c.Spec.SampleRate < 1 {
		return 0
	}
	bytesPerFrame := c.Spec.Channels * c.Spec.SampleWidth / 8
	if bytesPerFrame == 0 {
		return 0
	}
	frames := len(c.Data) / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(c.Spec.SampleRate)
}
