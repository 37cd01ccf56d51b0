// Package server defines shared payload types and utility helpers that are
// reused across connection and hub logic.
package server

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrHubClosed is returned when a connection is attached after shutdown.
	ErrHubClosed = errors.New("hub is shut down")
	// ErrLineTooLong reports an input line above Config.MaxLineBytes.
	ErrLineTooLong = errors.New("input line exceeds maximum length")
)

// Stats is a point-in-time view of the hub, answered by the hub goroutine.
type Stats struct {
	Users       int `json:"users"`
	Online      int `json:"online"`
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	// QueuedBytes is output accepted for live connections but not yet handed
	// to their writers. A growing value points at a stalled reader.
	QueuedBytes int `json:"queued_bytes"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
