package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/PreetKumarPanchani/voice-client/internal/connection"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
	"github.com/PreetKumarPanchani/voice-client/internal/router"
)

const defaultEventBuffer = 64

// ExampleQueries are canned prompts the UI can offer alongside free text.
var ExampleQueries = []string{
	"Show total sales by month",
	"Which products sold best last quarter?",
	"List the top 10 customers by revenue",
	"How many orders were placed this week?",
}

// Transport is the outbound side of the gateway connection.
type Transport interface {
	Connect()
	Send(cmd protocol.Command) bool
	State() connection.State
	Close()
}

// Player renders assistant speech.
type Player interface {
	StartStream(format string, sampleRate int)
	EndStream()
	EnqueueChunk(data, format string)
	PlayClip(dataURL string)
	Interrupt() bool
	Playing() bool
	SetCallbacks(onStart, onEnd func())
	Close()
}

// Microphone captures and uploads the user's voice.
type Microphone interface {
	Toggle() (bool, error)
	Listening() bool
	Close()
}

// TransportFactory builds the transport once the facade's inbound
// callbacks exist. Production passes one backed by connection.NewManager;
// tests pass fakes.
type TransportFactory func(cb connection.Callbacks) Transport

type Config struct {
	EventBuffer int
}

// Facade ties the connection, message routing, capture and playback
// together behind the handful of verbs the UI needs. All methods are safe
// for concurrent use.
type Facade struct {
	log    *slog.Logger
	router *router.Router
	conn   Transport
	mic    Microphone
	player Player

	events chan Event

	mu    sync.Mutex
	muted bool
}

func New(cfg Config, transport TransportFactory, mic Microphone, player Player, log *slog.Logger) *Facade {
	if log == nil {
		log = slog.Default()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	f := &Facade{
		log:    log,
		mic:    mic,
		player: player,
		events: make(chan Event, cfg.EventBuffer),
	}

	f.router = router.New(router.Handlers{
		OnTranscription: func(text string) { f.emit(Event{Kind: EventTranscription, Text: text}) },
		OnResponse:      func(text string) { f.emit(Event{Kind: EventResponse, Text: text}) },
		OnStatus:        func(text string) { f.emit(Event{Kind: EventStatus, Text: text}) },
		OnError:         func(text string) { f.emit(Event{Kind: EventError, Text: text}) },
		OnResults:       func(rows []protocol.Row) { f.emit(Event{Kind: EventResults, Rows: rows}) },
		OnSQL:           func(query string) { f.emit(Event{Kind: EventSQL, Text: query}) },
		OnAudioClip:     f.onAudioClip,
		OnStreamStart:   f.onStreamStart,
		OnStreamEnd:     func() { f.player.EndStream() },
		OnAudioChunk:    f.onAudioChunk,
	}, log)

	f.conn = transport(connection.Callbacks{
		OnStateChange: func(state connection.State, detail string) {
			f.emit(Event{Kind: EventConnState, State: state, Text: detail})
		},
		OnMessage: f.router.Dispatch,
	})

	player.SetCallbacks(
		func() { f.emit(Event{Kind: EventSpeaking, On: true}) },
		func() { f.emit(Event{Kind: EventSpeaking, On: false}) },
	)
	return f
}

// Events delivers session updates to the UI. The buffer drops the oldest
// event when full; a slow UI never blocks the session.
func (f *Facade) Events() <-chan Event {
	return f.events
}

func (f *Facade) Connect() {
	f.conn.Connect()
}

// SendText submits one typed query. Any speech still playing is cut off
// locally and remotely first.
func (f *Facade) SendText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	f.interruptForAction()
	return f.conn.Send(protocol.NewTextQuery(text))
}

// SendExampleQuery submits one of the canned prompts under the same
// interrupt rule as SendText.
func (f *Facade) SendExampleQuery(text string) bool {
	return f.SendText(text)
}

// ToggleMic flips voice capture and mirrors the state to the assistant.
// Reports the new listening state.
func (f *Facade) ToggleMic() bool {
	f.interruptForAction()

	on, err := f.mic.Toggle()
	if err != nil {
		f.log.Warn("microphone toggle failed", "error", err)
		f.emit(Event{Kind: EventError, Text: "Microphone unavailable: " + err.Error()})
		return false
	}
	f.conn.Send(protocol.NewToggleListen(on))
	f.emit(Event{Kind: EventListening, On: on})
	return on
}

// ToggleMute flips assistant audio. Muting mid-speech also cuts the
// speech off.
func (f *Facade) ToggleMute() bool {
	f.mu.Lock()
	f.muted = !f.muted
	muted := f.muted
	f.mu.Unlock()

	if muted {
		f.interruptForAction()
	}
	f.conn.Send(protocol.NewToggleMute(muted))
	f.emit(Event{Kind: EventMuted, On: muted})
	return muted
}

// RequestInterrupt is explicit barge-in: stop local playback and tell the
// assistant to stop generating.
func (f *Facade) RequestInterrupt() {
	f.player.Interrupt()
	f.conn.Send(protocol.NewInterruptSpeech())
}

func (f *Facade) State() connection.State { return f.conn.State() }
func (f *Facade) Speaking() bool          { return f.player.Playing() }
func (f *Facade) Listening() bool         { return f.mic.Listening() }
func (f *Facade) Activated() bool         { return f.router.Activated() }

func (f *Facade) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

func (f *Facade) Close() {
	f.mic.Close()
	f.player.Close()
	f.conn.Close()
}

func (f *Facade) interruptForAction() {
	if f.player.Interrupt() {
		f.conn.Send(protocol.NewInterruptSpeech())
	}
}

func (f *Facade) onAudioClip(dataURL string) {
	if f.Muted() {
		return
	}
	f.player.PlayClip(dataURL)
}

func (f *Facade) onStreamStart(format string, sampleRate int) {
	if f.Muted() {
		return
	}
	f.player.StartStream(format, sampleRate)
}

func (f *Facade) onAudioChunk(data, format string) {
	if f.Muted() {
		return
	}
	f.player.EnqueueChunk(data, format)
}

func (f *Facade) emit(ev Event) {
	for {
		select {
		case f.events <- ev:
			return
		default:
		}
		// Full buffer: drop the oldest and retry.
		select {
		case <-f.events:
		default:
		}
	}
}
