package tui

import (
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PreetKumarPanchani/voice-client/internal/connection"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
	"github.com/PreetKumarPanchani/voice-client/internal/session"
)

// Session is the slice of the facade the UI drives.
type Session interface {
	SendText(text string) bool
	SendExampleQuery(text string) bool
	ToggleMic() bool
	ToggleMute() bool
	RequestInterrupt()
	Events() <-chan session.Event
}

type sessionMsg session.Event

const maxTranscript = 200

type line struct {
	who  string
	text string
}

type Model struct {
	sess Session

	width  int
	height int

	input      string
	transcript []line
	sql        string
	rows       []protocol.Row

	connState  connection.State
	connDetail string
	speaking   bool
	listening  bool
	muted      bool

	exampleIdx int
}

func NewModel(sess Session) Model {
	return Model{sess: sess, connDetail: "Connecting"}
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.sess.Events())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionMsg:
		m = m.apply(session.Event(msg))
		return m, waitForEvent(m.sess.Events())
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input)
		m.input = ""
		if text != "" && m.sess.SendText(text) {
			m = m.append("you", text)
		}

	case "ctrl+r":
		m.listening = m.sess.ToggleMic()

	case "ctrl+t":
		m.muted = m.sess.ToggleMute()

	case "esc":
		m.sess.RequestInterrupt()
		m.speaking = false

	case "ctrl+e":
		text := session.ExampleQueries[m.exampleIdx]
		m.exampleIdx = (m.exampleIdx + 1) % len(session.ExampleQueries)
		if m.sess.SendExampleQuery(text) {
			m = m.append("you", text)
		}

	case "backspace":
		if len(m.input) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.input)
			m.input = m.input[:len(m.input)-size]
		}

	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		}
	}
	return m, nil
}

func (m Model) apply(ev session.Event) Model {
	switch ev.Kind {
	case session.EventTranscription:
		m = m.append("you", ev.Text)
	case session.EventResponse:
		m = m.append("assistant", ev.Text)
	case session.EventStatus:
		m = m.append("status", ev.Text)
	case session.EventError:
		m = m.append("error", ev.Text)
	case session.EventSQL:
		m.sql = ev.Text
	case session.EventResults:
		m.rows = ev.Rows
	case session.EventConnState:
		m.connState = ev.State
		m.connDetail = ev.Text
	case session.EventSpeaking:
		m.speaking = ev.On
	case session.EventListening:
		m.listening = ev.On
	case session.EventMuted:
		m.muted = ev.On
	}
	return m
}

func (m Model) append(who, text string) Model {
	m.transcript = append(m.transcript, line{who: who, text: text})
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
	return m
}
