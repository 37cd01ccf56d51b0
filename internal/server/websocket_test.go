package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/linechat/internal/server"
	"github.com/Tyrowin/linechat/internal/testhelpers"
)

// newGateway serves the HTTP routes of a running hub through httptest.
func newGateway(t *testing.T, cfg server.Config) *httptest.Server {
	t.Helper()

	hub := server.NewHub(cfg)
	go hub.Run()
	ts := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(testhelpers.DefaultTimeout)
	})
	return ts
}

// TestHealthEndpoint tests the plain text health check on both paths.
func TestHealthEndpoint(t *testing.T) {
	ts := newGateway(t, testhelpers.TestConfig())

	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		assert.Equal(t, "linechat server is running!", string(body))
	}
}

func TestStatsEndpoint(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.SeedDemo = true
	ts := newGateway(t, cfg)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats server.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, server.Stats{Users: 3, Online: 0, Rooms: 1, Connections: 0}, stats)
}

func TestWebSocketRequiresGET(t *testing.T) {
	ts := newGateway(t, testhelpers.TestConfig())

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("1"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// TestWebSocketSpeaksLineProtocol tests that a WebSocket client gets the
// same welcome and menu replies as a TCP client.
func TestWebSocketSpeaksLineProtocol(t *testing.T) {
	ts := newGateway(t, testhelpers.TestConfig())

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts.URL), testhelpers.TestOrigin)
	require.NoError(t, err)
	defer conn.Close()

	welcome := testhelpers.ReadFramesUntil(t, conn, "Escribe una opción:")
	assert.True(t, strings.HasPrefix(welcome, "Bienvenido al servidor. Tu usuario: user-1000\nMenu:\n"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("1")))
	assert.Equal(t, "Usuarios (id - nombre):\n1000 - user-1000\n", testhelpers.ReadFrame(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("salir\n")))
	assert.Equal(t, "Adios!\n", testhelpers.ReadFrame(t, conn))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testhelpers.DefaultTimeout)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newGateway(t, testhelpers.TestConfig())

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts.URL), "http://evil.example")
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
}

// TestWebSocketAndTCPShareRooms tests that WebSocket and TCP clients meet in
// the same hub.
func TestWebSocketAndTCPShareRooms(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	srv := testhelpers.StartServer(t, cfg)
	require.NotNil(t, srv.HTTPAddr())

	tcp := testhelpers.Dial(t, srv.Addr())
	tcp.ReadWelcome()

	ws, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL("http://"+srv.HTTPAddr().String()), testhelpers.TestOrigin)
	require.NoError(t, err)
	defer ws.Close()
	testhelpers.ReadFramesUntil(t, ws, "Escribe una opción:")

	tcp.Send("3")
	tcp.ReadUntil("puedes incluirte")
	tcp.Send("1001")
	tcp.ReadLine()
	tcp.Send("Mixed")
	tcp.ReadUntil("Entrando al chat")
	assert.Equal(t, "user-1000 se unió al chat\n", testhelpers.ReadFrame(t, ws))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("4")))
	assert.Contains(t, testhelpers.ReadFrame(t, ws), "Tus chats:\n- Mixed\n")
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("mixed")))
	joined := testhelpers.ReadFramesUntil(t, ws, "Entrando al chat")
	assert.Contains(t, joined, "Te has unido a Mixed\n")
	assert.Equal(t, "user-1001 se unió al chat", tcp.ReadLine())

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("/priv 1000 from the browser")))
	assert.Regexp(t, `^\[PRIVADO de user-1001 - \d{2}:\d{2}:\d{2}\] : from the browser$`, tcp.ReadLine())
	assert.Equal(t, "[PRIVADO a user-1000] Enviado.\n", testhelpers.ReadFrame(t, ws))
}
