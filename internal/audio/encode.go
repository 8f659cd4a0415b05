package audio

import (
	"bytes"
	"encoding/base64"
	"fmt"

	wav "github.com/youpy/go-wav"
)

const (
	Channels      = 1
	BitsPerSample = 16
)

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// EncodeWAV wraps one window of mono 16-bit PCM into a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	samples := PCMBytesToInt16(pcm)
	var buf bytes.Buffer
	writer := wav.NewWriter(&buf, uint32(len(samples)), Channels, uint32(sampleRate), BitsPerSample)

	wavSamples := make([]wav.Sample, len(samples))
	for i, s := range samples {
		wavSamples[i].Values[0] = int(s)
	}
	if err := writer.WriteSamples(wavSamples); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}

	return buf.Bytes(), nil
}
