// Package message defines the platform-agnostic data contract between
// channels and the relay. Channels translate their native events into
// Inbound messages and deliver Outbound messages back to the platform.
package message

import (
	"strings"
	"time"
)

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant conversation (a Discord guild channel).
	ChatGroup ChatType = "group"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the best human-readable name for the sender.
func (s Sender) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Username
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// Inbound represents a message received from a channel.
type Inbound struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	// GuildID is the group identity the chat belongs to, empty for DMs.
	GuildID   string `json:"guild_id,omitempty"`
	GuildName string `json:"guild_name,omitempty"`
	Text      string `json:"text"`
	// BotMentioned is true when the receiving bot was explicitly mentioned.
	BotMentioned bool `json:"bot_mentioned,omitempty"`
	// FromBot is true when the author is a bot account (including ourselves).
	FromBot bool `json:"from_bot,omitempty"`
}

// Addressed reports whether the message is directed at the bot: DMs are
// always addressed, group messages only when the bot is mentioned.
func (m *Inbound) Addressed() bool {
	if m.Chat.IsGroup() {
		return m.BotMentioned
	}
	return true
}

// StripMention removes the given mention tokens from the text and trims
// the remainder. Channels pass the platform mention syntax for the bot
// (e.g. "<@123>" and "<@!123>" on Discord).
func (m *Inbound) StripMention(tokens ...string) string {
	text := m.Text
	for _, tok := range tokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	return strings.TrimSpace(text)
}

// Outbound represents a message to be sent through a channel.
type Outbound struct {
	ChatID    string `json:"chat_id"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	Text      string `json:"text"`
}
