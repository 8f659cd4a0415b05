package connection

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// GorillaDialer is the production Dialer over gorilla/websocket.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

func (d *GorillaDialer) Dial(url string) (Socket, error) {
	dialer := *websocket.DefaultDialer
	if d.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = d.HandshakeTimeout
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &gorillaSocket{conn: conn}, nil
}

type gorillaSocket struct {
	conn *websocket.Conn

	// gorilla allows one concurrent writer; Send and the ping probe can
	// race without this.
	writeMu sync.Mutex
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *gorillaSocket) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *gorillaSocket) Close() error {
	return s.conn.Close()
}
