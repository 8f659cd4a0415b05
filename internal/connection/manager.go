package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 3 * time.Second
)

type URLStyle string

const (
	// URLStyleQuery appends ?client_id=<id> to the gateway URL.
	URLStyleQuery URLStyle = "query"
	// URLStylePath appends /<id> to the gateway URL, matching the legacy
	// /ws/{client_id} endpoint.
	URLStylePath URLStyle = "path"
)

// Socket is one live connection. The manager owns at most one at a time.
type Socket interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(url string) (Socket, error)
}

type Config struct {
	GatewayURL  string
	URLStyle    URLStyle
	MaxAttempts int
	Backoff     time.Duration
	Dialer      Dialer
}

type Callbacks struct {
	OnStateChange func(state State, detail string)
	OnMessage     func(raw []byte)
}

// Manager owns the socket lifecycle: dial, fixed-interval reconnect with a
// bounded attempt counter, fail-fast sends outside Open, and a read pump
// feeding OnMessage in socket-delivery order.
type Manager struct {
	cfg      Config
	cb       Callbacks
	log      *slog.Logger
	clientID string

	mu         sync.Mutex
	state      State
	attempt    int
	sock       Socket
	gen        int
	retryTimer *time.Timer
	closed     bool
}

func NewManager(cfg Config, cb Callbacks, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.URLStyle == "" {
		cfg.URLStyle = URLStyleQuery
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &GorillaDialer{}
	}

	clientID := uuid.New().String()
	return &Manager{
		cfg:      cfg,
		cb:       cb,
		log:      log.With("client_id", clientID),
		clientID: clientID,
		state:    StateIdle,
	}
}

func (m *Manager) ClientID() string {
	return m.clientID
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Connect opens a new socket, force-closing any live one first. Safe to
// call from any state; duplicate in-flight dials are invalidated by a
// generation counter so only the newest socket survives.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.sock != nil {
		_ = m.sock.Close()
		m.sock = nil
	}
	m.gen++
	gen := m.gen

	if m.cfg.GatewayURL == "" {
		emit := m.setStateLocked(StateFailed, "Configuration error: gateway URL is not set")
		m.mu.Unlock()
		emit()
		return
	}

	emit := m.setStateLocked(StateConnecting, "")
	url := m.socketURL()
	m.mu.Unlock()
	emit()

	sock, err := m.cfg.Dialer.Dial(url)
	if err != nil {
		m.log.Warn("dial failed", "error", err)
		m.handleSocketClosed(gen, websocket.CloseAbnormalClosure)
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		_ = sock.Close()
		return
	}
	m.sock = sock
	m.attempt = 0
	emit = m.setStateLocked(StateOpen, "")
	m.mu.Unlock()
	emit()

	// Liveness probe; failures are ignored, the read pump will notice a
	// dead socket soon enough.
	if data, err := json.Marshal(protocol.NewPing()); err == nil {
		_ = sock.WriteMessage(data)
	}

	go m.readPump(gen, sock)
}

// Send writes one command frame. Returns false without writing in any
// state other than Open; callers must not queue for later delivery.
func (m *Manager) Send(cmd protocol.Command) bool {
	m.mu.Lock()
	if m.state != StateOpen || m.sock == nil {
		m.mu.Unlock()
		return false
	}
	sock := m.sock
	m.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		m.log.Error("marshal command failed", "command", cmd.CommandType(), "error", err)
		return false
	}
	if err := sock.WriteMessage(data); err != nil {
		m.log.Warn("socket write failed", "command", cmd.CommandType(), "error", err)
		return false
	}
	return true
}

// Close tears the manager down: no further dials, retries, or callbacks.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.sock != nil {
		_ = m.sock.Close()
		m.sock = nil
	}
	if !m.state.Terminal() {
		m.state = StateClosedClean
	}
	m.mu.Unlock()
}

func (m *Manager) readPump(gen int, sock Socket) {
	for {
		data, err := sock.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
			}
			m.handleSocketClosed(gen, code)
			return
		}
		if cb := m.cb.OnMessage; cb != nil {
			cb(data)
		}
	}
}

func (m *Manager) handleSocketClosed(gen int, code int) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.sock != nil {
		_ = m.sock.Close()
		m.sock = nil
	}

	reason := protocol.CloseReason(code)
	var emit func()
	switch {
	case protocol.IsCleanClose(code):
		emit = m.setStateLocked(StateClosedClean, reason)
	case m.attempt < m.cfg.MaxAttempts:
		m.attempt++
		emit = m.setStateLocked(StateReconnecting,
			fmt.Sprintf("%s; retrying (%d/%d)", reason, m.attempt, m.cfg.MaxAttempts))
		m.retryTimer = time.AfterFunc(m.cfg.Backoff, m.Connect)
	default:
		emit = m.setStateLocked(StateFailed, reason+". Restart the client to try again.")
	}
	m.mu.Unlock()
	emit()
}

// setStateLocked records the transition and returns the callback emission
// to run after the mutex is released.
func (m *Manager) setStateLocked(state State, detail string) func() {
	m.state = state
	m.log.Debug("connection state", "state", state.String(), "detail", detail, "attempt", m.attempt)
	cb := m.cb.OnStateChange
	if cb == nil {
		return func() {}
	}
	return func() { cb(state, detail) }
}

func (m *Manager) socketURL() string {
	base := strings.TrimRight(m.cfg.GatewayURL, "/")
	if m.cfg.URLStyle == URLStylePath {
		return base + "/" + m.clientID
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "client_id=" + m.clientID
}
