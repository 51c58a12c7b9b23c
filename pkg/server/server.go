// Package server exposes the chat websocket, the tool catalog, and the
// health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/session"
)

// TurnHandler services one user turn for a session.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sess *session.Session, text string)
}

// ToolCatalog is the read side of the tool bridge the server exposes.
type ToolCatalog interface {
	Tools() []domain.ToolDescriptor
	Healthy(ctx context.Context) bool
}

// Server serves the chat websocket and the REST endpoints.
type Server struct {
	sessions *session.Store
	turns    TurnHandler
	catalog  ToolCatalog
	greeting string
	srv      *http.Server
}

// New creates a new Server.
func New(sessions *session.Store, turns TurnHandler, catalog ToolCatalog, greeting string) *Server {
	if greeting == "" {
		greeting = "Hi! I can help you find places, plan routes, and explore the map. What are you looking for?"
	}
	return &Server{
		sessions: sessions,
		turns:    turns,
		catalog:  catalog,
		greeting: greeting,
	}
}

// Handler returns the route table. Split out from Start so tests can mount
// it on a test server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/tools", s.handleListTools)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleChatWebSocket)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.catalog.Healthy(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, map[string]any{
		"status":       http.StatusText(status),
		"toolEndpoint": healthy,
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.catalog.Tools())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
