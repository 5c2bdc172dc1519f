// Package provider defines the conversation data model and the interfaces
// consumed by the relay when talking to a remote completion API.
package provider

import "encoding/json"

// Role identifies the speaker of a message in a conversation.
type Role string

// Role constants for conversation messages.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single turn in a conversation. Messages are
// immutable once created; ordering within a conversation is significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name is the tool name on tool-result turns.
	Name string `json:"name,omitempty"`

	// ToolID correlates a tool-result turn with the originating call.
	ToolID string `json:"tool_id,omitempty"`

	// ToolCalls is set on assistant turns that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Size returns the content length in bytes, used by history retention.
func (m Message) Size() int {
	return len(m.Content)
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool-result turn correlated with a call.
func ToolMessage(name, callID, content string) Message {
	return Message{Role: RoleTool, Name: name, ToolID: callID, Content: content}
}
