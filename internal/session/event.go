package session

import (
	"github.com/PreetKumarPanchani/voice-client/internal/connection"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

type EventKind int

const (
	EventTranscription EventKind = iota
	EventResponse
	EventStatus
	EventError
	EventResults
	EventSQL
	EventConnState
	EventSpeaking
	EventListening
	EventMuted
)

func (k EventKind) String() string {
	switch k {
	case EventTranscription:
		return "transcription"
	case EventResponse:
		return "response"
	case EventStatus:
		return "status"
	case EventError:
		return "error"
	case EventResults:
		return "results"
	case EventSQL:
		return "sql"
	case EventConnState:
		return "conn_state"
	case EventSpeaking:
		return "speaking"
	case EventListening:
		return "listening"
	case EventMuted:
		return "muted"
	default:
		return "unknown"
	}
}

// Event is one session-level update for the UI. Which fields are set
// depends on Kind: Text for the message kinds, Rows for results, State
// plus Text for conn_state, On for the boolean kinds.
type Event struct {
	Kind  EventKind
	Text  string
	Rows  []protocol.Row
	State connection.State
	On    bool
}
