package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PreetKumarPanchani/voice-client/internal/audio"
)

const (
	// DefaultStreamRate is assumed for chunks that arrive before any
	// stream-start announcement.
	DefaultStreamRate = 24000

	// endMargin pads the expected render time of a chunk before the
	// worker gives up waiting on the sink.
	endMargin = 300 * time.Millisecond
)

type item struct {
	pcm  []byte
	rate int
}

// Engine plays assistant speech. Chunks queue FIFO and a single worker
// renders them one at a time; Interrupt drops everything at once.
type Engine struct {
	sink Sink
	log  *slog.Logger

	mu         sync.Mutex
	queue      []item
	ctx        context.Context
	cancel     context.CancelFunc
	playing    bool
	started    bool
	streaming  bool
	streamRate int
	onStart    func()
	onEnd      func()
}

func NewEngine(sink Sink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		sink:       sink,
		log:        log,
		queue:      make([]item, 0),
		streamRate: DefaultStreamRate,
	}
}

func (e *Engine) SetCallbacks(onStart, onEnd func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStart = onStart
	e.onEnd = onEnd
}

// StartStream announces a new chunked response. Anything still queued from
// an earlier response is dropped.
func (e *Engine) StartStream(format string, sampleRate int) {
	e.Interrupt()

	e.mu.Lock()
	defer e.mu.Unlock()
	if format != "" && format != "pcm" {
		e.log.Warn("unsupported stream format, chunks will be skipped", "format", format)
	}
	if sampleRate > 0 {
		e.streamRate = sampleRate
	}
	e.streaming = true
}

// EndStream marks the response complete. Queued chunks still drain.
func (e *Engine) EndStream() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streaming = false
}

// EnqueueChunk decodes one base64 PCM chunk and appends it to the queue.
// Undecodable or non-PCM chunks are skipped so one bad frame cannot stall
// the rest of the response.
func (e *Engine) EnqueueChunk(data, format string) {
	if format != "" && format != "pcm" {
		e.log.Warn("skipping chunk with unsupported format", "format", format)
		return
	}
	pcm, err := audio.DecodeBase64(data)
	if err != nil {
		e.log.Warn("skipping undecodable chunk", "error", err)
		return
	}
	if len(pcm) == 0 {
		return
	}

	e.mu.Lock()
	rate := e.streamRate
	e.mu.Unlock()
	e.enqueue(item{pcm: pcm, rate: rate})
}

// PlayClip plays a complete WAV clip delivered as a base64 data URL.
// Clips are resampled to the active stream rate so one output device
// serves both paths. Unsupported formats are skipped.
func (e *Engine) PlayClip(dataURL string) {
	payload, mime, err := parseDataURL(dataURL)
	if err != nil {
		e.log.Warn("skipping clip", "error", err)
		return
	}
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave":
	default:
		e.log.Warn("skipping clip with unsupported media type", "type", mime)
		return
	}
	pcm, rate, err := audio.DecodeWAV(payload)
	if err != nil {
		e.log.Warn("skipping undecodable clip", "error", err)
		return
	}

	e.mu.Lock()
	target := e.streamRate
	e.mu.Unlock()
	if rate != target {
		samples := audio.Resample(audio.PCMBytesToFloat32(pcm), rate, target)
		pcm = audio.Float32ToPCMBytes(samples)
		rate = target
	}
	e.enqueue(item{pcm: pcm, rate: rate})
}

func (e *Engine) enqueue(it item) {
	e.mu.Lock()
	wasIdle := len(e.queue) == 0 && !e.playing
	e.queue = append(e.queue, it)

	if wasIdle {
		e.ctx, e.cancel = context.WithCancel(context.Background())
		e.started = false
	}
	e.mu.Unlock()

	if wasIdle {
		go e.processQueue()
	}
}

func (e *Engine) processQueue() {
	e.mu.Lock()
	onStart := e.onStart
	e.started = true
	e.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.playing = false
			e.started = false
			onEnd := e.onEnd
			e.mu.Unlock()

			if onEnd != nil {
				onEnd()
			}
			return
		}

		it := e.queue[0]
		e.queue = e.queue[1:]
		e.playing = true
		ctx := e.ctx
		e.mu.Unlock()

		e.render(ctx, it)

		if ctx.Err() != nil {
			e.mu.Lock()
			// A newer batch may already own the queue.
			if e.ctx == ctx {
				e.queue = nil
				e.playing = false
				e.started = false
			}
			e.mu.Unlock()
			return
		}
	}
}

func (e *Engine) render(ctx context.Context, it item) {
	done := make(chan error, 1)
	go func() {
		done <- e.sink.Play(ctx, it.pcm, it.rate)
	}()

	limit := pcmDuration(len(it.pcm), it.rate) + endMargin
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			e.log.Warn("chunk playback failed", "error", err)
		}
	case <-timer.C:
		e.log.Warn("chunk playback overran its expected duration", "limit", limit)
	case <-ctx.Done():
	}
}

// Interrupt drops the current chunk and everything queued behind it.
// Reports whether any speech was actually cut off.
func (e *Engine) Interrupt() bool {
	e.mu.Lock()
	active := e.playing || len(e.queue) > 0
	wasStarted := e.started
	e.queue = nil
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.ctx = nil
	e.playing = false
	e.started = false
	e.streaming = false
	onEnd := e.onEnd
	e.mu.Unlock()

	if wasStarted && onEnd != nil {
		onEnd()
	}
	return active
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing || len(e.queue) > 0
}

func (e *Engine) Streaming() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streaming
}

func (e *Engine) Close() {
	e.Interrupt()
	e.sink.Close()
}

func pcmDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(byteLen/2) * time.Second / time.Duration(sampleRate)
}

func parseDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errNotDataURL
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", errNotBase64URL
	}
	data, err := audio.DecodeBase64(payload)
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}
