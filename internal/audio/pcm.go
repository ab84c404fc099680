package audio

import (
	"fmt"
	"math"
)

// PCMToSamples decodes little-endian interleaved PCM bytes into float32
// samples in [-1, 1]. width is bits per sample (16, 24 or 32; 32 means
// signed integer, matching the transcoder's wire format).
func PCMToSamples(data []byte, width int) ([]float32, error) {
	bytesPer := width / 8
	switch width {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: sample width %d", ErrInvalidSpec, width)
	}
	if len(data)%bytesPer != 0 {
		return nil, fmt.Errorf("pcm data length %d not aligned to %d-byte samples", len(data), bytesPer)
	}

	samples := make([]float32, len(data)/bytesPer)
	for i := range samples {
		off := i * bytesPer
		var v int32
		switch width {
		case 16:
			v = int32(int16(uint16(data[off]) | uint16(data[off+1])<<8))
		case 24:
			u := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16
			v = int32(u<<8) >> 8 // sign-extend 24-bit
		case 32:
			v = int32(uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24)
		}
		samples[i] = float32(float64(v) / maxAmplitude(width))
	}
	return samples, nil
}

// SamplesToPCM encodes float32 samples as little-endian interleaved PCM
// bytes of the given width. Samples are clamped to [-1, 1].
func SamplesToPCM(samples []float32, width int) ([]byte, error) {
	bytesPer := width / 8
	switch width {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: sample width %d", ErrInvalidSpec, width)
	}

	out := make([]byte, len(samples)*bytesPer)
	for i, s := range samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		v := int32(clamped * maxAmplitude(width))
		off := i * bytesPer
		switch width {
		case 16:
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
		case 24:
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
			out[off+2] = byte(v >> 16)
		case 32:
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
			out[off+2] = byte(v >> 16)
			out[off+3] = byte(v >> 24)
		}
	}
	return out, nil
}

func maxAmplitude(width int) float64 {
	switch width {
	case 16:
		return 32767
	case 24:
		return 8388607
	default:
		return 2147483647
	}
}
