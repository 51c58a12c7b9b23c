package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ThinhNguyen0811/map-bot/pkg/metrics"
	"github.com/ThinhNguyen0811/map-bot/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}

	id := uuid.New().String()
	transport := newWSTransport(ws)
	sess := s.sessions.Create(id, transport)
	metrics.ActiveSessions.Inc()
	slog.Info("Session opened", "sessionID", id)

	defer func() {
		s.sessions.Remove(id)
		transport.Close()
		metrics.ActiveSessions.Dec()
		slog.Info("Session closed", "sessionID", id)
	}()

	if err := sess.Send(protocol.Greeting(s.greeting)); err != nil {
		slog.Error("Failed to send greeting", "sessionID", id, "error", err)
		return
	}

	// Reader loop. Turns run synchronously here: one turn at a time per
	// session keeps history single-writer and outbound events ordered.
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read ended", "sessionID", id, "error", err)
			}
			return
		}

		msg, err := protocol.ParseInbound(data)
		if err != nil {
			// Malformed payloads are dropped, never fatal to the
			// connection.
			slog.Warn("Dropping malformed client message", "sessionID", id, "error", err)
			continue
		}
		if msg == nil || msg.Content == "" {
			continue
		}

		s.turns.HandleTurn(r.Context(), sess, msg.Content)
	}
}

// wsTransport serializes writes to one websocket connection. After Close, or
// after the first failed write, Send becomes a silent no-op: a client that
// disconnected mid-stream must not fail the turn that is still draining.
type wsTransport struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

func newWSTransport(ws *websocket.Conn) *wsTransport {
	return &wsTransport{ws: ws}
}

func (t *wsTransport) Send(ev protocol.Outbound) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	if err := t.ws.WriteJSON(ev); err != nil {
		t.closed = true
		slog.Debug("WebSocket write failed, muting transport", "error", err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.ws.Close()
}
