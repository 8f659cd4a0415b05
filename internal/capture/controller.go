package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PreetKumarPanchani/voice-client/internal/audio"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

const (
	DefaultSampleRate = 16000
	DefaultWindow     = time.Second
)

// Sender transmits one outbound command; false means the transport was not
// open and the chunk is dropped (never queued).
type Sender interface {
	Send(cmd protocol.Command) bool
}

type Config struct {
	SampleRate int
	Window     time.Duration
}

// Controller owns the microphone lifecycle. While listening it records
// fixed-duration windows; each completed window is WAV-wrapped, base64
// encoded, and sent as audio_data. Stop takes effect at the next window
// boundary; the window in flight always completes.
type Controller struct {
	ctx    Context
	cfg    Config
	sender Sender
	log    *slog.Logger

	mu        sync.Mutex
	recording bool
	listening bool
	device    Device
	window    []byte
}

func NewController(ctx Context, sender Sender, cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Controller{ctx: ctx, cfg: cfg, sender: sender, log: log}
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Start acquires the microphone and begins the first window. A no-op when
// already recording. On acquisition failure no partial state survives.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return nil
	}

	dev, err := c.ctx.NewCapture(DeviceConfig{
		SampleRate: uint32(c.cfg.SampleRate),
		Channels:   1,
	}, c.onData)
	if err != nil {
		c.recording = false
		c.listening = false
		return fmt.Errorf("acquire microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		c.recording = false
		c.listening = false
		return fmt.Errorf("start microphone: %w", err)
	}

	c.device = dev
	c.recording = true
	c.listening = true
	c.window = nil
	c.log.Info("capture started", "sample_rate", c.cfg.SampleRate, "window_ms", c.cfg.Window.Milliseconds())
	return nil
}

// Stop clears listening; the in-flight window still completes and the
// microphone is released at its boundary.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = false
}

// Toggle flips capture and reports the new listening state.
func (c *Controller) Toggle() (bool, error) {
	if c.Recording() {
		c.Stop()
		return false, nil
	}
	if err := c.Start(); err != nil {
		return false, err
	}
	return true, nil
}

// Close force-releases the microphone, discarding any partial window.
func (c *Controller) Close() {
	c.mu.Lock()
	dev := c.device
	c.device = nil
	c.recording = false
	c.listening = false
	c.window = nil
	c.mu.Unlock()

	if dev != nil {
		dev.Stop()
		dev.Close()
	}
}

func (c *Controller) windowBytes() int {
	return int(time.Duration(c.cfg.SampleRate) * 2 * c.cfg.Window / time.Second)
}

func (c *Controller) onData(data []byte, _ uint32) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return
	}
	c.window = append(c.window, data...)
	size := c.windowBytes()
	if len(c.window) < size {
		c.mu.Unlock()
		return
	}

	chunk := make([]byte, size)
	copy(chunk, c.window[:size])
	rest := c.window[size:]
	c.window = append([]byte(nil), rest...)

	var dev Device
	if !c.listening {
		dev = c.device
		c.device = nil
		c.recording = false
		c.window = nil
	}
	c.mu.Unlock()

	c.emit(chunk)

	if dev != nil {
		// Released off the audio thread; malgo dislikes reentrant stops.
		go func() {
			dev.Stop()
			dev.Close()
			c.log.Info("capture stopped")
		}()
	}
}

func (c *Controller) emit(chunk []byte) {
	clip, err := audio.EncodeWAV(chunk, c.cfg.SampleRate)
	if err != nil {
		c.log.Warn("window encode failed", "error", err)
		return
	}
	if !c.sender.Send(protocol.NewAudioData(audio.EncodeBase64(clip))) {
		c.log.Debug("transport not open, dropping capture window", "bytes", len(chunk))
	}
}
