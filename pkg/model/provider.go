package model

import (
	"context"
	"encoding/json"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
)

// Message represents a message in the model's conversation context.
type Message struct {
	// Role indicates the sender (user, assistant, tool).
	Role domain.Role
	// Content holds the message parts.
	Content []Content
}

// Content represents a single component of a message.
type Content struct {
	Type string // "text", "tool_call", "tool_result"

	// Text content (when Type == "text").
	Text string

	// Tool call (when Type == "tool_call").
	ToolCall *domain.ToolCall

	// Tool result (when Type == "tool_result").
	ToolResult *ToolResultContent
}

// ToolResultContent carries a tool's result back into the conversation.
type ToolResultContent struct {
	ToolCallID string
	Name       string
	// Body is the parsed result document handed to the model.
	Body map[string]any
}

// Content types.
const (
	ContentTypeText       = "text"
	ContentTypeToolCall   = "tool_call"
	ContentTypeToolResult = "tool_result"
)

// StreamEvent is one chunk from an in-flight model response. Text reaches the
// consumer through two redundant paths: Delta/Offset come from the direct
// token callback, Raw is the same chunk as recorded in the event log. The
// orchestrator is responsible for forwarding each fragment exactly once.
type StreamEvent struct {
	// Raw is the chunk in its event-log wire form.
	Raw json.RawMessage

	// Delta is the token text of this chunk from the direct streaming path.
	Delta string

	// Offset is the cumulative byte offset of Delta within the full
	// response text.
	Offset int

	// Calls lists any tool calls requested in this chunk.
	Calls []domain.ToolCall
}

// ModelStream abstracts an in-flight streaming model response.
type ModelStream interface {
	// Recv returns the next chunk. It returns io.EOF once the response is
	// complete, after which Final describes the aggregated message.
	Recv() (StreamEvent, error)

	// Final returns the aggregated response once Recv has returned io.EOF.
	Final() (Message, error)

	// Close releases resources associated with this stream.
	Close() error
}

// Provider represents a service that provides tool-calling LLMs.
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini").
	Name() string

	// Stream sends a conversation context to the LLM and returns a stream
	// of response chunks. tools declares the callable toolset for this
	// request.
	Stream(ctx context.Context, modelName, instructions string, messages []Message, tools []domain.ToolDescriptor) (ModelStream, error)
}
