package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConversion is returned when Convert cannot reach the target
// spec. Only PCM→PCM conversions are implemented; compressed codecs pass
// through unchanged when source and target specs already match.
var ErrUnsupportedConversion = errors.New("unsupported audio conversion")

// Convert transforms a chunk into the target spec. Sample width, channel
// count and sample rate are converted in that order; rate conversion uses
// linear interpolation, which is adequate for speech.
func Convert(chunk Chunk, target Spec) (Chunk, error) {
	if err := target.Validate(); err != nil {
		return Chunk{}, err
	}
	if chunk.Spec == target {
		return chunk, nil
	}
	if chunk.Spec.Codec != CodecPCM || target.Codec != CodecPCM {
		return Chunk{}, fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, chunk.Spec, target)
	}
	if err := chunk.Spec.Validate(); err != nil {
		return Chunk{}, err
	}
	// Sample alignment alone is not enough for multi-channel payloads: an odd
	// sample count would pair samples across a frame boundary downstream.
	frame := chunk.Spec.SampleWidth / 8 * chunk.Spec.Channels
	if len(chunk.Data)%frame != 0 {
		return Chunk{}, fmt.Errorf("pcm payload of %d bytes not aligned to %d-byte frames", len(chunk.Data), frame)
	}

	samples, err := PCMToSamples(chunk.Data, chunk.Spec.SampleWidth)
	if err != nil {
		return Chunk{}, err
	}

	if chunk.Spec.Channels != target.Channels {
		samples = convertChannels(samples, chunk.Spec.Channels, target.Channels)
	}
	if chunk.Spec.SampleRate != target.SampleRate {
		samples = resampleLinear(samples, target.Channels, chunk.Spec.SampleRate, target.SampleRate)
	}

	data, err := SamplesToPCM(samples, target.SampleWidth)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Data: data, Spec: target}, nil
}

// convertChannels duplicates mono into stereo or averages stereo down to mono.
func convertChannels(samples []float32, from, to int) []float32 {
	if from == to {
		return samples
	}
	if from == 1 && to == 2 {
		out := make([]float32, len(samples)*2)
		for i, s := range samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	}
	// stereo -> mono
	frames := len(samples) / 2
	out := make([]float32, frames)
	for i := range frames {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}

// resampleLinear converts interleaved samples from one rate to another with
// per-channel linear interpolation.
func resampleLinear(samples []float32, channels, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	inFrames := len(samples) / channels
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	if outFrames < 1 {
		outFrames = 1
	}

	out := make([]float32, outFrames*channels)
	ratio := float64(from) / float64(to)
	for f := range outFrames {
		pos := float64(f) * ratio
		i := int(pos)
		frac := float32(pos - float64(i))
		j := i + 1
		if j >= inFrames {
			j = inFrames - 1
		}
		for ch := range channels {
			a := samples[i*channels+ch]
			b := samples[j*channels+ch]
			out[f*channels+ch] = a + (b-a)*frac
		}
	}
	return out
}
