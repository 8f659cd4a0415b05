package connection

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

type fakeSocket struct {
	inbound chan []byte
	errs    chan error

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbound: make(chan []byte, 16),
		errs:    make(chan error, 1),
	}
}

func (s *fakeSocket) ReadMessage() ([]byte, error) {
	select {
	case data := <-s.inbound:
		return data, nil
	case err := <-s.errs:
		return nil, err
	}
}

func (s *fakeSocket) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("socket closed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.writes = append(s.writes, cp)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		select {
		case s.errs <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}:
		default:
		}
	}
	return nil
}

func (s *fakeSocket) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *fakeSocket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDialer struct {
	mu      sync.Mutex
	sockets []*fakeSocket
	fail    bool
	dials   int
}

func (d *fakeDialer) Dial(url string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, errors.New("connection refused")
	}
	sock := newFakeSocket()
	d.sockets = append(d.sockets, sock)
	return sock, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) Socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 {
		i += len(d.sockets)
	}
	if i < 0 || i >= len(d.sockets) {
		return nil
	}
	return d.sockets[i]
}

type stateRecorder struct {
	mu      sync.Mutex
	states  []State
	details []string
	changed chan struct{}
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{changed: make(chan struct{}, 64)}
}

func (r *stateRecorder) record(state State, detail string) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.details = append(r.details, detail)
	r.mu.Unlock()
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *stateRecorder) waitFor(t *testing.T, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		for _, s := range r.states {
			if s == want {
				r.mu.Unlock()
				return
			}
		}
		r.mu.Unlock()
		select {
		case <-r.changed:
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func (r *stateRecorder) lastDetail() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.details) == 0 {
		return ""
	}
	return r.details[len(r.details)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, cfg Config, rec *stateRecorder) *Manager {
	t.Helper()
	m := NewManager(cfg, Callbacks{OnStateChange: rec.record}, testLogger())
	t.Cleanup(m.Close)
	return m
}

func TestConnect_MissingGatewayURL(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{Dialer: dialer}, rec)

	m.Connect()

	if m.State() != StateFailed {
		t.Errorf("expected failed state, got %s", m.State())
	}
	if dialer.Dials() != 0 {
		t.Errorf("expected no dial attempts, got %d", dialer.Dials())
	}
	if !strings.Contains(rec.lastDetail(), "Configuration error") {
		t.Errorf("expected configuration error detail, got %q", rec.lastDetail())
	}
}

func TestConnect_OpensAndPings(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{GatewayURL: "ws://gw/ws", Dialer: dialer}, rec)

	m.Connect()
	rec.waitFor(t, StateOpen, time.Second)

	if m.Attempt() != 0 {
		t.Errorf("expected attempt 0 after open, got %d", m.Attempt())
	}

	writes := dialer.Socket(0).Writes()
	if len(writes) == 0 {
		t.Fatal("expected a ping probe after open")
	}
	var frame map[string]any
	if err := json.Unmarshal(writes[0], &frame); err != nil {
		t.Fatalf("unmarshal ping: %v", err)
	}
	if frame["command"] != "ping" {
		t.Errorf("expected first frame to be ping, got %v", frame["command"])
	}
}

func TestSend_FailsFastOutsideOpen(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{GatewayURL: "ws://gw/ws", Dialer: dialer}, rec)

	if m.Send(protocol.NewTextQuery("hello")) {
		t.Error("send should fail in idle state")
	}
	if dialer.Dials() != 0 {
		t.Error("send must not trigger a dial")
	}
}

func TestSend_WritesWhenOpen(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{GatewayURL: "ws://gw/ws", Dialer: dialer}, rec)

	m.Connect()
	rec.waitFor(t, StateOpen, time.Second)

	if !m.Send(protocol.NewTextQuery("show sales")) {
		t.Fatal("send should succeed when open")
	}

	writes := dialer.Socket(0).Writes()
	last := writes[len(writes)-1]
	if !strings.Contains(string(last), `"command":"text_query"`) {
		t.Errorf("unexpected frame %s", last)
	}
}

func TestReconnect_StopsAtMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	rec := newStateRecorder()
	m := newTestManager(t, Config{
		GatewayURL: "ws://gw/ws",
		Dialer:     dialer,
		Backoff:    time.Millisecond,
	}, rec)

	m.Connect()
	rec.waitFor(t, StateFailed, 5*time.Second)

	if m.Attempt() != DefaultMaxAttempts {
		t.Errorf("expected attempt %d, got %d", DefaultMaxAttempts, m.Attempt())
	}
	// Initial dial plus one per scheduled retry.
	if dialer.Dials() != DefaultMaxAttempts+1 {
		t.Errorf("expected %d dials, got %d", DefaultMaxAttempts+1, dialer.Dials())
	}

	reconnecting := 0
	for _, s := range rec.all() {
		if s == StateReconnecting {
			reconnecting++
		}
	}
	if reconnecting != DefaultMaxAttempts {
		t.Errorf("expected %d reconnecting transitions, got %d", DefaultMaxAttempts, reconnecting)
	}
	if !strings.Contains(rec.lastDetail(), "Restart the client") {
		t.Errorf("expected terminal call to action, got %q", rec.lastDetail())
	}
}

func TestCleanClose_NeverReconnects(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{
		GatewayURL: "ws://gw/ws",
		Dialer:     dialer,
		Backoff:    time.Millisecond,
	}, rec)

	m.Connect()
	rec.waitFor(t, StateOpen, time.Second)

	dialer.Socket(0).errs <- &websocket.CloseError{Code: websocket.CloseNormalClosure}
	rec.waitFor(t, StateClosedClean, time.Second)

	time.Sleep(20 * time.Millisecond)
	if dialer.Dials() != 1 {
		t.Errorf("clean close must not redial, got %d dials", dialer.Dials())
	}
	for _, s := range rec.all() {
		if s == StateReconnecting {
			t.Error("clean close produced a reconnecting transition")
		}
	}
}

func TestReconnect_AttemptResetsOnOpen(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	rec := newStateRecorder()
	m := newTestManager(t, Config{
		GatewayURL: "ws://gw/ws",
		Dialer:     dialer,
		Backoff:    time.Millisecond,
	}, rec)

	m.Connect()
	rec.waitFor(t, StateReconnecting, time.Second)

	dialer.mu.Lock()
	dialer.fail = false
	dialer.mu.Unlock()

	rec.waitFor(t, StateOpen, 2*time.Second)
	if m.Attempt() != 0 {
		t.Errorf("expected attempt reset on open, got %d", m.Attempt())
	}
}

func TestConnect_ForceClosesPreviousSocket(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()
	m := newTestManager(t, Config{GatewayURL: "ws://gw/ws", Dialer: dialer}, rec)

	m.Connect()
	rec.waitFor(t, StateOpen, time.Second)

	m.Connect()
	deadline := time.Now().Add(time.Second)
	for dialer.Dials() < 2 || m.State() != StateOpen {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for second open")
		}
		time.Sleep(time.Millisecond)
	}

	if !dialer.Socket(0).Closed() {
		t.Error("manual reconnect must close the previous socket")
	}
	if dialer.Dials() != 2 {
		t.Errorf("expected 2 dials, got %d", dialer.Dials())
	}
}

func TestReadPump_DeliversMessagesInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStateRecorder()

	var mu sync.Mutex
	var received []string
	done := make(chan struct{}, 8)

	m := NewManager(Config{GatewayURL: "ws://gw/ws", Dialer: dialer}, Callbacks{
		OnStateChange: rec.record,
		OnMessage: func(raw []byte) {
			mu.Lock()
			received = append(received, string(raw))
			mu.Unlock()
			done <- struct{}{}
		},
	}, testLogger())
	defer m.Close()

	m.Connect()
	rec.waitFor(t, StateOpen, time.Second)

	sock := dialer.Socket(0)
	sock.inbound <- []byte(`{"type":"status","text":"one"}`)
	sock.inbound <- []byte(`{"type":"status","text":"two"}`)
	sock.inbound <- []byte(`{"type":"status","text":"three"}`)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if !strings.Contains(received[i], want) {
			t.Errorf("message %d: expected %q in %q", i, want, received[i])
		}
	}
}

func TestSocketURL_Styles(t *testing.T) {
	query := NewManager(Config{GatewayURL: "ws://gw/ws", Dialer: &fakeDialer{}}, Callbacks{}, testLogger())
	defer query.Close()
	if got := query.socketURL(); got != "ws://gw/ws?client_id="+query.ClientID() {
		t.Errorf("unexpected query-style URL %q", got)
	}

	path := NewManager(Config{GatewayURL: "ws://gw/ws/", URLStyle: URLStylePath, Dialer: &fakeDialer{}}, Callbacks{}, testLogger())
	defer path.Close()
	if got := path.socketURL(); got != "ws://gw/ws/"+path.ClientID() {
		t.Errorf("unexpected path-style URL %q", got)
	}
}

func TestClose_StopsRetries(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	rec := newStateRecorder()
	m := NewManager(Config{
		GatewayURL: "ws://gw/ws",
		Dialer:     dialer,
		Backoff:    5 * time.Millisecond,
	}, Callbacks{OnStateChange: rec.record}, testLogger())

	m.Connect()
	rec.waitFor(t, StateReconnecting, time.Second)
	m.Close()

	dials := dialer.Dials()
	time.Sleep(30 * time.Millisecond)
	if dialer.Dials() != dials {
		t.Error("close must cancel the pending retry")
	}
}
