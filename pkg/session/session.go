// Package session holds per-connection state: the bounded chat history and
// the transport handle used to reach the client.
package session

import (
	"sync"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/protocol"
)

// Transport delivers outbound events to one client. Implementations must
// tolerate writes after close: once the underlying connection is gone, Send
// becomes a silent no-op rather than an error.
type Transport interface {
	Send(ev protocol.Outbound) error
	Close() error
}

// Session is the state for one client connection. History is mutated only by
// the orchestrator goroutine servicing the connection, so it needs no lock of
// its own.
type Session struct {
	id        string
	transport Transport
	window    int

	history []domain.Turn
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Send forwards an outbound event to the client.
func (s *Session) Send(ev protocol.Outbound) error {
	return s.transport.Send(ev)
}

// History returns the retained turns, oldest first.
func (s *Session) History() []domain.Turn {
	return s.history
}

// AppendTurns appends completed turns and truncates to the retention window,
// discarding the oldest first.
func (s *Session) AppendTurns(turns ...domain.Turn) {
	s.history = append(s.history, turns...)
	if s.window > 0 && len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
}

// Store tracks live sessions by ID.
type Store struct {
	mu       sync.RWMutex
	window   int
	sessions map[string]*Session
}

// NewStore creates a session store. window caps each session's retained
// history length in turns; zero means unbounded.
func NewStore(window int) *Store {
	return &Store{
		window:   window,
		sessions: map[string]*Session{},
	}
}

// Create registers a new session for the given transport.
func (st *Store) Create(id string, transport Transport) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := &Session{id: id, transport: transport, window: st.window}
	st.sessions[id] = s
	return s
}

// Get returns the session with the given ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Remove drops the session from the store. The transport is not closed here;
// the connection handler owns that.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
