package domain

import "time"

// Turn is one entry in a session's chat history: a user message or the
// assistant response it produced.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ToolDescriptor describes a callable tool exposed by the tool-execution
// endpoint. Descriptors are loaded once at startup and are immutable for the
// process lifetime.
type ToolDescriptor struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`
	Required    []string             `json:"required,omitempty"`
}

// Parameter describes a single tool parameter.
type Parameter struct {
	// Type is the declared primitive type ("string", "number", "integer",
	// "boolean"). Unknown values degrade to an unconstrained parameter.
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// RawResult is the opaque outcome of one tool call.
type RawResult struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// ToolInvocation records one completed tool call within a turn.
type ToolInvocation struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    RawResult      `json:"result"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}
