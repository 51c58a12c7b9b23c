// Package protocol defines the wire contract between the server and the
// browser client: a small set of tagged outbound events and the inbound chat
// message. The orchestrator emits Outbound values; the websocket handler
// serializes them in emission order and never batches across turns.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
)

// Outbound message types.
const (
	TypeThinking  = "thinking"
	TypeStream    = "stream"
	TypeMapAction = "map_action"
	TypeStreamEnd = "stream_end"
	TypeError     = "error"
	TypeResponse  = "response"
)

// Outbound is a single tagged message toward the client.
type Outbound struct {
	Type string `json:"type"`

	// Status is the indicator text for "thinking" events. A nil status
	// clears the indicator, so it is serialized explicitly even when null.
	Status *string `json:"status,omitempty"`

	// Content carries token text, the final response, the greeting, or an
	// error description depending on Type.
	Content string `json:"content,omitempty"`

	// MapAction is set on "map_action" and optionally on "stream_end".
	MapAction *domain.MapAction `json:"mapAction,omitempty"`
}

// MarshalJSON keeps the null status visible on "thinking" events: the client
// distinguishes "show indicator with text" from "clear indicator" by whether
// status is a string or null.
func (o Outbound) MarshalJSON() ([]byte, error) {
	type alias Outbound
	if o.Type == TypeThinking {
		return json.Marshal(struct {
			Type   string  `json:"type"`
			Status *string `json:"status"`
		}{Type: o.Type, Status: o.Status})
	}
	return json.Marshal(alias(o))
}

// Thinking builds an indicator update with the given status text.
func Thinking(status string) Outbound {
	return Outbound{Type: TypeThinking, Status: &status}
}

// ThinkingDone builds the indicator-clearing event.
func ThinkingDone() Outbound {
	return Outbound{Type: TypeThinking, Status: nil}
}

// Stream builds a token event.
func Stream(content string) Outbound {
	return Outbound{Type: TypeStream, Content: content}
}

// MapUpdate builds a map_action event.
func MapUpdate(action *domain.MapAction) Outbound {
	return Outbound{Type: TypeMapAction, MapAction: action}
}

// StreamEnd builds the turn-final event. action may be nil.
func StreamEnd(content string, action *domain.MapAction) Outbound {
	return Outbound{Type: TypeStreamEnd, Content: content, MapAction: action}
}

// Error builds a turn-failure event.
func Error(content string) Outbound {
	return Outbound{Type: TypeError, Content: content}
}

// Greeting builds the once-per-connection welcome message.
func Greeting(content string) Outbound {
	return Outbound{Type: TypeResponse, Content: content}
}

// Inbound is a parsed client message.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ParseInbound decodes a client message. Unrecognized message types return
// (nil, nil) so the caller can skip them silently; a decode failure returns
// an error for the caller to log and drop.
func ParseInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding client message: %w", err)
	}
	if msg.Type != "chat" {
		return nil, nil
	}
	return &msg, nil
}
