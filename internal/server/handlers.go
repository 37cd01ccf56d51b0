// Package server exposes HTTP handlers: the WebSocket gateway to the line
// protocol, health checks, and hub statistics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades the request and attaches the socket to hub as a
// regular line protocol client.
func WebSocketHandler(hub *Hub, origins originPolicy) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
			return
		}

		stream := newWSStream(conn, hub.cfg.MaxLineBytes)
		if _, err := hub.Attach(stream, r.RemoteAddr); err != nil {
			log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("WebSocket client rejected")
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "linechat server is running!")
}

// StatsHandler reports user, room and connection counts as JSON.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := hub.Stats(r.Context())
		if err != nil {
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Warn().Err(err).Msg("error writing stats response")
		}
	}
}
