package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoSink keeps one playback device open and feeds it from the current
// buffer, emitting silence between buffers. The device is reinitialized
// when the sample rate changes.
type malgoSink struct {
	ctx *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	rate    int
	started bool
	buf     []byte
	pos     int
	done    chan struct{}
}

// NewSink initializes the platform audio backend for playback.
func NewSink() (Sink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &malgoSink{ctx: ctx}, nil
}

func (s *malgoSink) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	s.mu.Lock()
	var old *malgo.Device
	if s.device != nil && s.rate != sampleRate {
		old = s.device
		s.device = nil
		s.started = false
	}
	s.mu.Unlock()
	if old != nil {
		// Uninit outside the lock; the data callback takes it.
		_ = old.Stop()
		old.Uninit()
	}

	s.mu.Lock()
	if s.device == nil {
		dev, err := s.initDevice(sampleRate)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.device = dev
		s.rate = sampleRate
	}
	dev := s.device
	needStart := !s.started
	s.started = true
	s.mu.Unlock()

	done := s.begin(pcm)

	if needStart {
		if err := dev.Start(); err != nil {
			s.mu.Lock()
			s.buf = nil
			s.done = nil
			s.started = false
			s.mu.Unlock()
			return fmt.Errorf("start playback device: %w", err)
		}
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.buf = nil
		s.pos = 0
		s.done = nil
		s.mu.Unlock()
		return ctx.Err()
	}
}

// begin installs pcm as the current buffer and returns its completion
// channel. A waiter whose buffer is replaced before draining (the engine
// moved on after its duration fallback) is released here, not leaked.
func (s *malgoSink) begin(pcm []byte) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	s.buf = pcm
	s.pos = 0
	s.done = make(chan struct{})
	return s.done
}

func (s *malgoSink) initDevice(sampleRate int) (*malgo.Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			s.fill(out)
		},
	}
	dev, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	return dev, nil
}

func (s *malgoSink) fill(out []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	if s.pos < len(s.buf) {
		n = copy(out, s.buf[s.pos:])
		s.pos += n
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if len(s.buf) > 0 && s.pos >= len(s.buf) && s.done != nil {
		close(s.done)
		s.done = nil
		s.buf = nil
		s.pos = 0
	}
}

func (s *malgoSink) Close() {
	s.mu.Lock()
	dev := s.device
	s.device = nil
	s.started = false
	s.buf = nil
	s.done = nil
	s.mu.Unlock()

	if dev != nil {
		_ = dev.Stop()
		dev.Uninit()
	}
	_ = s.ctx.Uninit()
	s.ctx.Free()
}
