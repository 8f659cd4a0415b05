package protocol

import "time"

type CommandType string

const (
	CommandTextQuery       CommandType = "text_query"
	CommandAudioData       CommandType = "audio_data"
	CommandInterruptSpeech CommandType = "interrupt_speech"
	CommandToggleListen    CommandType = "toggle_listen"
	CommandToggleMute      CommandType = "toggle_mute"
	CommandPing            CommandType = "ping"
)

// Command is the closed set of outbound frames. Each concrete command
// marshals to {"command": <type>, ...fields}.
type Command interface {
	CommandType() CommandType
}

type TextQuery struct {
	Command CommandType `json:"command"`
	Text    string      `json:"text"`
}

func NewTextQuery(text string) TextQuery {
	return TextQuery{Command: CommandTextQuery, Text: text}
}

func (TextQuery) CommandType() CommandType { return CommandTextQuery }

type AudioData struct {
	Command CommandType `json:"command"`
	Audio   string      `json:"audio"`
}

func NewAudioData(audioBase64 string) AudioData {
	return AudioData{Command: CommandAudioData, Audio: audioBase64}
}

func (AudioData) CommandType() CommandType { return CommandAudioData }

type InterruptSpeech struct {
	Command CommandType `json:"command"`
}

func NewInterruptSpeech() InterruptSpeech {
	return InterruptSpeech{Command: CommandInterruptSpeech}
}

func (InterruptSpeech) CommandType() CommandType { return CommandInterruptSpeech }

type ToggleListen struct {
	Command   CommandType `json:"command"`
	Listening bool        `json:"listening"`
}

func NewToggleListen(listening bool) ToggleListen {
	return ToggleListen{Command: CommandToggleListen, Listening: listening}
}

func (ToggleListen) CommandType() CommandType { return CommandToggleListen }

type ToggleMute struct {
	Command CommandType `json:"command"`
	Muted   bool        `json:"muted"`
}

func NewToggleMute(muted bool) ToggleMute {
	return ToggleMute{Command: CommandToggleMute, Muted: muted}
}

func (ToggleMute) CommandType() CommandType { return CommandToggleMute }

type Ping struct {
	Command   CommandType `json:"command"`
	Timestamp int64       `json:"timestamp"`
}

func NewPing() Ping {
	return Ping{Command: CommandPing, Timestamp: time.Now().UnixMilli()}
}

func (Ping) CommandType() CommandType { return CommandPing }
