package domain

// Role defines the sender of a turn.
type Role string

const (
	// RoleUser indicates a message from the user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model/assistant.
	RoleAssistant Role = "assistant"
	// RoleTool indicates a tool result fed back to the model.
	RoleTool Role = "tool"
)
