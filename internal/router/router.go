package router

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

// Handlers receives decoded inbound messages, one callback per tag.
// Nil callbacks are skipped.
type Handlers struct {
	OnTranscription func(text string)
	OnResponse      func(text string)
	OnStatus        func(text string)
	OnError         func(text string)
	OnResults       func(rows []protocol.Row)
	OnSQL           func(query string)
	OnAudioClip     func(dataURL string)
	OnStreamStart   func(format string, sampleRate int)
	OnStreamEnd     func()
	OnAudioChunk    func(data, format string)
}

// Router dispatches each inbound frame to exactly one handler. Malformed
// frames and unknown tags are logged and dropped; they never affect
// connection state.
type Router struct {
	handlers Handlers
	log      *slog.Logger

	mu        sync.Mutex
	activated bool
}

func New(handlers Handlers, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{handlers: handlers, log: log}
}

// Activated reports whether the assistant has announced activation via a
// status message.
func (r *Router) Activated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activated
}

// Dispatch decodes and routes one raw frame.
func (r *Router) Dispatch(raw []byte) {
	msg, err := protocol.DecodeServerMessage(raw)
	if err != nil {
		r.log.Debug("dropping inbound frame", "error", err)
		return
	}
	r.Route(msg)
}

// Route dispatches an already-decoded message.
func (r *Router) Route(msg *protocol.ServerMessage) {
	switch msg.Type {
	case protocol.MessageTypeTranscription:
		if cb := r.handlers.OnTranscription; cb != nil {
			cb(msg.Text)
		}
	case protocol.MessageTypeResponse:
		if cb := r.handlers.OnResponse; cb != nil {
			cb(msg.Text)
		}
	case protocol.MessageTypeStatus:
		r.trackActivation(msg.Text)
		if cb := r.handlers.OnStatus; cb != nil {
			cb(msg.Text)
		}
	case protocol.MessageTypeError:
		if cb := r.handlers.OnError; cb != nil {
			cb(msg.Text)
		}
	case protocol.MessageTypeResults:
		if cb := r.handlers.OnResults; cb != nil {
			cb(msg.Rows)
		}
	case protocol.MessageTypeSQL:
		if cb := r.handlers.OnSQL; cb != nil {
			cb(msg.Query)
		}
	case protocol.MessageTypeAudio:
		if cb := r.handlers.OnAudioClip; cb != nil {
			cb(msg.AudioURL)
		}
	case protocol.MessageTypeAudioStreamStart:
		if cb := r.handlers.OnStreamStart; cb != nil {
			cb(msg.Format, msg.SampleRate)
		}
	case protocol.MessageTypeAudioStreamEnd:
		if cb := r.handlers.OnStreamEnd; cb != nil {
			cb()
		}
	case protocol.MessageTypeAudioChunk:
		if cb := r.handlers.OnAudioChunk; cb != nil {
			cb(msg.Data, msg.Format)
		}
	}
}

// trackActivation mirrors the backend's wake-word announcements.
// "deactivated" is checked first because it contains "activated".
func (r *Router) trackActivation(status string) {
	lower := strings.ToLower(status)
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.Contains(lower, "deactivated") {
		r.activated = false
	} else if strings.Contains(lower, "activated") {
		r.activated = true
	}
}
