package audio

import (
	"bytes"
	"fmt"
	"io"

	wav "github.com/youpy/go-wav"
)

// DecodeWAV extracts 16-bit LE mono PCM and the sample rate from a WAV
// container. Multi-channel input keeps only the first channel.
func DecodeWAV(data []byte) ([]byte, int, error) {
	r := wav.NewReader(bytes.NewReader(data))
	format, err := r.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("read wav header: %w", err)
	}
	if format.BitsPerSample != BitsPerSample {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", format.BitsPerSample)
	}

	var samples []int16
	for {
		chunk, err := r.ReadSamples(2048)
		for _, s := range chunk {
			samples = append(samples, int16(s.Values[0]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read wav samples: %w", err)
		}
	}
	return Int16ToPCMBytes(samples), int(format.SampleRate), nil
}
