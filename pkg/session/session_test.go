package session

import (
	"fmt"
	"testing"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/protocol"
)

type nopTransport struct{}

func (nopTransport) Send(protocol.Outbound) error { return nil }
func (nopTransport) Close() error                 { return nil }

func TestStoreCreateGetRemove(t *testing.T) {
	store := NewStore(10)

	s := store.Create("s1", nopTransport{})
	if s.ID() != "s1" {
		t.Errorf("ID = %q", s.ID())
	}
	if got := store.Get("s1"); got != s {
		t.Errorf("Get returned %v, want the created session", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	store.Remove("s1")
	if got := store.Get("s1"); got != nil {
		t.Errorf("Get after Remove = %v, want nil", got)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestStoreGetUnknown(t *testing.T) {
	if got := NewStore(10).Get("nope"); got != nil {
		t.Errorf("Get = %v, want nil", got)
	}
}

func TestSessionHistoryWindow(t *testing.T) {
	s := NewStore(4).Create("s1", nopTransport{})

	for i := 0; i < 6; i++ {
		s.AppendTurns(
			domain.Turn{Role: domain.RoleUser, Text: fmt.Sprintf("q%d", i)},
			domain.Turn{Role: domain.RoleAssistant, Text: fmt.Sprintf("a%d", i)},
		)
	}

	history := s.History()
	if len(history) != 4 {
		t.Fatalf("history len = %d, want 4", len(history))
	}
	// Oldest turns fall off; the newest survive in order.
	want := []string{"q4", "a4", "q5", "a5"}
	for i, turn := range history {
		if turn.Text != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, turn.Text, want[i])
		}
	}
}

func TestSessionUnboundedWindow(t *testing.T) {
	s := NewStore(0).Create("s1", nopTransport{})
	for i := 0; i < 50; i++ {
		s.AppendTurns(domain.Turn{Role: domain.RoleUser, Text: "x"})
	}
	if len(s.History()) != 50 {
		t.Errorf("history len = %d, want 50", len(s.History()))
	}
}
