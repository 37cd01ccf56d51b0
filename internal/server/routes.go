// Package server wires HTTP handlers into a chi router for the linechat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures and returns the HTTP router with all application routes.
// It sets up handlers for health check, hub statistics, and the WebSocket gateway.
func SetupRoutes(hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Get("/", HealthHandler)
	r.Get("/health", HealthHandler)
	r.Get("/stats", StatsHandler(hub))
	r.Get("/ws", WebSocketHandler(hub, newOriginPolicy(hub.cfg.AllowedOrigins)))
	return r
}
