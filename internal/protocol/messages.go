package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	MessageTypeTranscription    MessageType = "transcription"
	MessageTypeResponse         MessageType = "response"
	MessageTypeStatus           MessageType = "status"
	MessageTypeError            MessageType = "error"
	MessageTypeResults          MessageType = "results"
	MessageTypeSQL              MessageType = "sql"
	MessageTypeAudio            MessageType = "audio"
	MessageTypeAudioStreamStart MessageType = "audio_stream_start"
	MessageTypeAudioStreamEnd   MessageType = "audio_stream_end"
	MessageTypeAudioChunk       MessageType = "audio_chunk"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
)

// Row is one result record, column name to scalar value.
type Row map[string]any

// ServerMessage is the decoded form of one inbound frame. Exactly the
// fields for its Type are populated.
type ServerMessage struct {
	Type MessageType

	Text       string // transcription, response, status, error
	Rows       []Row  // results
	Query      string // sql
	AudioURL   string // audio (playable media data URL)
	Format     string // audio_stream_start, audio_chunk
	SampleRate int    // audio_stream_start
	Data       string // audio_chunk (base64 PCM)
}

type serverWire struct {
	Type       string          `json:"type"`
	Text       string          `json:"text"`
	Data       json.RawMessage `json:"data"`
	Query      string          `json:"query"`
	Format     string          `json:"format"`
	SampleRate int             `json:"sampleRate"`
}

// DecodeServerMessage parses one inbound JSON frame. Unknown types return
// ErrUnknownType so callers can drop them without treating it as a protocol
// failure.
func DecodeServerMessage(raw []byte) (*ServerMessage, error) {
	var wire serverWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msg := &ServerMessage{Type: MessageType(wire.Type)}

	switch msg.Type {
	case MessageTypeTranscription, MessageTypeResponse, MessageTypeStatus, MessageTypeError:
		msg.Text = wire.Text

	case MessageTypeResults:
		if len(wire.Data) > 0 {
			if err := json.Unmarshal(wire.Data, &msg.Rows); err != nil {
				return nil, fmt.Errorf("%w: results data: %v", ErrMalformed, err)
			}
		}

	case MessageTypeSQL:
		msg.Query = wire.Query

	case MessageTypeAudio:
		if len(wire.Data) > 0 {
			if err := json.Unmarshal(wire.Data, &msg.AudioURL); err != nil {
				return nil, fmt.Errorf("%w: audio data: %v", ErrMalformed, err)
			}
		}

	case MessageTypeAudioStreamStart:
		msg.Format = wire.Format
		msg.SampleRate = wire.SampleRate

	case MessageTypeAudioStreamEnd:

	case MessageTypeAudioChunk:
		msg.Format = wire.Format
		if len(wire.Data) > 0 {
			if err := json.Unmarshal(wire.Data, &msg.Data); err != nil {
				return nil, fmt.Errorf("%w: chunk data: %v", ErrMalformed, err)
			}
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, wire.Type)
	}

	return msg, nil
}
