package playback

import "context"

// Sink renders one PCM buffer on the output device. Play blocks until the
// buffer has been handed to the hardware in full or ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Close()
}
