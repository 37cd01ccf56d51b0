package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsStream adapts a WebSocket to the byte stream a Connection expects. Each
// inbound text frame becomes one line; each outbound chunk is one frame.
type wsStream struct {
	conn      *websocket.Conn
	buf       []byte
	writeMu   sync.Mutex
	stop      chan struct{}
	closeOnce sync.Once
}

func newWSStream(conn *websocket.Conn, maxLine int) *wsStream {
	s := &wsStream{conn: conn, stop: make(chan struct{})}
	conn.SetReadLimit(int64(maxLine))
	s.setupReadConnection()
	go s.keepalive()
	return s
}

// setupReadConnection configures read deadlines and the pong handler.
func (s *wsStream) setupReadConnection() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (s *wsStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		messageType, msg, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if len(msg) == 0 || msg[len(msg)-1] != '\n' {
			msg = append(msg, '\n')
		}
		s.buf = msg
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return 0, err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// keepalive pings the peer so a dead client trips the read deadline.
func (s *wsStream) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = s.conn.Close()
	})
	return err
}
