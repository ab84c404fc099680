package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteWAVHeaderStreaming writes a 44-byte WAV header for spec, suitable for
// streaming where the total data length is not known in advance. Both the
// RIFF chunk size and the data sub-chunk size are set to 0xFFFFFFFF, the
// conventional marker for an unknown/streaming length.
func WriteWAVHeaderStreaming(w io.Writer, spec Spec) (int, error) {
	if spec.Codec != CodecPCM {
		return 0, fmt.Errorf("%w: WAV requires pcm, got %s", ErrUnsupportedConversion, spec.Codec)
	}
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	byteRate := spec.SampleRate * spec.Channels * spec.SampleWidth / 8
	blockAlign := spec.Channels * spec.SampleWidth / 8

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(spec.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(spec.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(spec.SampleWidth))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	return w.Write(hdr[:])
}
