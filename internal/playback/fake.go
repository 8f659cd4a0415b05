package playback

import (
	"context"
	"sync"
	"time"
)

type PlayRecord struct {
	PCM  []byte
	Rate int
}

// FakeSink records every play for tests. With a nonzero Delay each play
// blocks for that long or until cancelled.
type FakeSink struct {
	Delay time.Duration

	mu        sync.Mutex
	plays     []PlayRecord
	inFlight  int
	overlap   bool
	cancelled int
	closed    bool
}

func (s *FakeSink) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Delay = d
}

func (s *FakeSink) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > 1 {
		s.overlap = true
	}
	rec := PlayRecord{PCM: append([]byte(nil), pcm...), Rate: sampleRate}
	s.plays = append(s.plays, rec)
	delay := s.Delay
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.mu.Lock()
			s.cancelled++
			s.mu.Unlock()
			return ctx.Err()
		}
	}
	return nil
}

func (s *FakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *FakeSink) Plays() []PlayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayRecord, len(s.plays))
	copy(out, s.plays)
	return out
}

func (s *FakeSink) Overlapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlap
}

func (s *FakeSink) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *FakeSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
