// Package tool implements the closed set of memory-editing tools the
// model may invoke, and the executor that runs them. Tool failures are
// reported as result strings fed back into the conversation, never as
// errors: the calling model is expected to read them and self-correct.
package tool

import (
	"encoding/json"

	"github.com/orb-chat/orb/internal/provider"
)

// Kind is the closed set of recognized tools. Dispatch is by Kind, not by
// raw name string; unrecognized names map to KindUnknown.
type Kind int

// Tool kinds.
const (
	KindUnknown Kind = iota
	KindEditUserMemory
	KindEditServerMemory
)

// Tool name constants as exposed to the model.
const (
	NameEditUserMemory   = "editUserMemory"
	NameEditServerMemory = "editServerMemory"
)

// ParseKind maps a tool name to its Kind.
func ParseKind(name string) Kind {
	switch name {
	case NameEditUserMemory:
		return KindEditUserMemory
	case NameEditServerMemory:
		return KindEditServerMemory
	default:
		return KindUnknown
	}
}

// editUserArgs is the argument schema for editUserMemory.
type editUserArgs struct {
	UserID string `json:"userId"`
	Memory string `json:"memory"`
}

// editServerArgs is the argument schema for editServerMemory.
type editServerArgs struct {
	GuildID string `json:"guildId"`
	Memory  string `json:"memory"`
}

// Definitions returns the tool definitions advertised to the model.
func Definitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        NameEditUserMemory,
			Description: "Store or update facts about the current user. Keep it short and helpful.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"userId": {"type": "string", "description": "Discord user id"},
					"memory": {"type": "string", "description": "Either a MEMORY or an INSTRUCTION in string form."}
				},
				"required": ["userId", "memory"]
			}`),
		},
		{
			Name:        NameEditServerMemory,
			Description: "Store or update facts about the current server. Keep it short and helpful.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"guildId": {"type": "string", "description": "Discord guild id"},
					"memory": {"type": "string", "description": "Either a MEMORY or an INSTRUCTION in string form."}
				},
				"required": ["guildId", "memory"]
			}`),
		},
	}
}
