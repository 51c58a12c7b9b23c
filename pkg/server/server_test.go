package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/protocol"
	"github.com/ThinhNguyen0811/map-bot/pkg/session"
)

// fakeTurns echoes each turn back through the session transport.
type fakeTurns struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTurns) HandleTurn(_ context.Context, sess *session.Session, text string) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	sess.Send(protocol.Thinking("thinking…"))
	sess.Send(protocol.Stream("echo: " + text))
	sess.Send(protocol.StreamEnd("echo: "+text, nil))
}

func (f *fakeTurns) handled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeCatalog struct {
	healthy bool
}

func (f fakeCatalog) Tools() []domain.ToolDescriptor {
	return []domain.ToolDescriptor{{Name: "search_places", Description: "Search for places"}}
}

func (f fakeCatalog) Healthy(context.Context) bool { return f.healthy }

// wireEvent is the client-side view of an outbound message.
type wireEvent struct {
	Type    string  `json:"type"`
	Status  *string `json:"status"`
	Content string  `json:"content"`
}

func newTestServer(t *testing.T, turns TurnHandler, catalog ToolCatalog, store *session.Store) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(store, turns, catalog, "welcome!").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal %q: %v", data, err)
	}
	return ev
}

func TestWebSocketGreetingAndTurn(t *testing.T) {
	turns := &fakeTurns{}
	ts := newTestServer(t, turns, fakeCatalog{healthy: true}, session.NewStore(20))
	conn := dialWS(t, ts)

	if ev := readEvent(t, conn); ev.Type != protocol.TypeResponse || ev.Content != "welcome!" {
		t.Fatalf("greeting = %+v", ev)
	}

	if err := conn.WriteJSON(map[string]string{"type": "chat", "content": "find cafes"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if ev := readEvent(t, conn); ev.Type != protocol.TypeThinking || ev.Status == nil {
		t.Errorf("first event = %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Type != protocol.TypeStream || ev.Content != "echo: find cafes" {
		t.Errorf("stream event = %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Type != protocol.TypeStreamEnd {
		t.Errorf("final event = %+v", ev)
	}

	if got := turns.handled(); len(got) != 1 || got[0] != "find cafes" {
		t.Errorf("handled = %v", got)
	}
}

func TestWebSocketDropsBadMessages(t *testing.T) {
	turns := &fakeTurns{}
	ts := newTestServer(t, turns, fakeCatalog{healthy: true}, session.NewStore(20))
	conn := dialWS(t, ts)
	readEvent(t, conn) // greeting

	// None of these reach the turn handler, and none kill the connection.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))
	conn.WriteJSON(map[string]string{"type": "ping"})
	conn.WriteJSON(map[string]string{"type": "chat", "content": ""})

	conn.WriteJSON(map[string]string{"type": "chat", "content": "still here"})
	if ev := readEvent(t, conn); ev.Type != protocol.TypeThinking {
		t.Errorf("event after bad messages = %+v", ev)
	}

	if got := turns.handled(); len(got) != 1 || got[0] != "still here" {
		t.Errorf("handled = %v", got)
	}
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	store := session.NewStore(20)
	ts := newTestServer(t, &fakeTurns{}, fakeCatalog{healthy: true}, store)

	conn := dialWS(t, ts)
	readEvent(t, conn)
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not removed, Len = %d", store.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeTurns{}, fakeCatalog{healthy: true}, session.NewStore(20))

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		ToolEndpoint bool `json:"toolEndpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !body.ToolEndpoint {
		t.Error("toolEndpoint = false, want true")
	}
}

func TestHealthzUnhealthy(t *testing.T) {
	ts := newTestServer(t, &fakeTurns{}, fakeCatalog{healthy: false}, session.NewStore(20))

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestListTools(t *testing.T) {
	ts := newTestServer(t, &fakeTurns{}, fakeCatalog{healthy: true}, session.NewStore(20))

	resp, err := http.Get(ts.URL + "/api/tools")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var tools []domain.ToolDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search_places" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeTurns{}, fakeCatalog{healthy: true}, session.NewStore(20))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
