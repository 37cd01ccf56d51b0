// Package testhelpers provides common utilities for exercising the linechat
// server in tests.
//
// It starts real servers on loopback ports and offers line oriented TCP
// clients and WebSocket dialers so end-to-end tests read like a protocol
// transcript.
package testhelpers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/linechat/internal/server"
)

// DefaultTimeout bounds every blocking read made by the helpers.
const DefaultTimeout = 2 * time.Second

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// TestConfig returns a configuration suited to tests: loopback TCP on an
// ephemeral port, no HTTP gateway, no demo data.
func TestConfig() server.Config {
	cfg := *server.NewConfig()
	cfg.TCPAddr = "127.0.0.1:0"
	cfg.HTTPAddr = ""
	cfg.SeedDemo = false
	cfg.AllowedOrigins = []string{TestOrigin}
	return cfg
}

// StartServer binds and serves cfg, shutting the server down when the test
// ends.
func StartServer(t *testing.T, cfg server.Config) *server.Server {
	t.Helper()

	srv := server.New(cfg)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), DefaultTimeout)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		select {
		case err := <-served:
			if err != nil {
				t.Logf("server returned: %v", err)
			}
		case <-time.After(DefaultTimeout):
			t.Log("server did not stop in time")
		}
	})
	return srv
}

// LineClient is a TCP client speaking the newline delimited protocol.
type LineClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to addr and closes the connection when the test ends.
func Dial(t *testing.T, addr net.Addr) *LineClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr.String(), DefaultTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &LineClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes line followed by a newline.
func (c *LineClient) Send(line string) {
	c.t.Helper()
	c.Write(line + "\n")
}

// Write sends raw bytes, allowing tests to split or batch lines.
func (c *LineClient) Write(raw string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(raw))
	require.NoError(c.t, err)
}

// ReadLine returns the next line without its newline.
func (c *LineClient) ReadLine() string {
	c.t.Helper()
	line, err := c.readLine(DefaultTimeout)
	require.NoError(c.t, err, "waiting for a line")
	return line
}

func (c *LineClient) readLine(timeout time.Duration) (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return line, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadUntil reads lines up to and including the first one containing substr
// and returns all of them.
func (c *LineClient) ReadUntil(substr string) []string {
	c.t.Helper()

	var lines []string
	for {
		line, err := c.readLine(DefaultTimeout)
		require.NoError(c.t, err, "waiting for %q; got %q", substr, lines)
		lines = append(lines, line)
		if strings.Contains(line, substr) {
			return lines
		}
	}
}

// ReadWelcome consumes the welcome banner and menu.
func (c *LineClient) ReadWelcome() []string {
	c.t.Helper()
	return c.ReadUntil("Escribe una opción:")
}

// ExpectSilence fails if any byte arrives within d.
func (c *LineClient) ExpectSilence(d time.Duration) {
	c.t.Helper()

	line, err := c.readLine(d)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && line == "" {
		return
	}
	c.t.Fatalf("expected no output, got %q (err %v)", line, err)
}

// ExpectClosed fails unless the server closes the connection.
func (c *LineClient) ExpectClosed() {
	c.t.Helper()

	for {
		line, err := c.readLine(DefaultTimeout)
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(c.t, err, "waiting for the server to close the connection")
		c.t.Logf("discarding %q while waiting for close", line)
	}
}

// Close closes the client side of the connection.
func (c *LineClient) Close() {
	_ = c.conn.Close()
}

// WebSocketURL turns an http:// base URL into the gateway's ws:// URL.
func WebSocketURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

// ConnectWebSocket creates a WebSocket connection to the specified URL with
// the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: DefaultTimeout,
	}

	headers := http.Header{}
	headers.Set("Origin", origin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// ReadFrame reads one text frame from a WebSocket connection.
func ReadFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

// ReadFramesUntil reads frames until one contains substr and returns their
// concatenation.
func ReadFramesUntil(t *testing.T, conn *websocket.Conn, substr string) string {
	t.Helper()

	var b strings.Builder
	for {
		frame := ReadFrame(t, conn)
		b.WriteString(frame)
		if strings.Contains(frame, substr) {
			return b.String()
		}
	}
}
