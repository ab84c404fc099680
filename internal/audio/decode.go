package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// DecodeWAV decodes WAV bytes into float32 PCM samples and the Spec the
// container declares.
func DecodeWAV(data []byte) ([]float32, Spec, error) {
	if len(data) == 0 {
		return nil, Spec{}, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, Spec{}, errors.New("invalid WAV file")
	}

	spec := Spec{
		Codec:       CodecPCM,
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		SampleWidth: int(dec.BitDepth),
	}
	if err := spec.Validate(); err != nil {
		return nil, Spec{}, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Spec{}, fmt.Errorf("reading PCM data: %w", err)
	}

	return buf.Data, spec, nil
}
