package discord

import (
	"strings"
	"time"

	"github.com/orb-chat/orb/pkg/message"
)

// toInbound translates a MESSAGE_CREATE event into the channel-agnostic
// form. botID is the bot's own user ID; guildName may be empty when the
// guild is not yet cached.
func toInbound(m Message, botID, guildName string) message.Inbound {
	chatType := message.ChatDM
	if m.GuildID != "" {
		chatType = message.ChatGroup
	}

	displayName := m.Author.GlobalName
	if m.Member != nil && m.Member.Nick != "" {
		displayName = m.Member.Nick
	}
	if displayName == "" {
		displayName = m.Author.Username
	}

	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	inb := message.Inbound{
		ID:        m.ID,
		Timestamp: ts,
		Sender: message.Sender{
			ID:          m.Author.ID,
			Username:    m.Author.Username,
			DisplayName: displayName,
		},
		Chat: message.Chat{
			ID:    m.ChannelID,
			Type:  chatType,
			Title: guildName,
		},
		GuildID:      m.GuildID,
		GuildName:    guildName,
		Text:         m.Content,
		BotMentioned: mentionsUser(m, botID),
		FromBot:      m.Author.Bot,
	}

	// Drop the bot's own mention syntax so the model sees clean text.
	inb.Text = inb.StripMention("<@"+botID+">", "<@!"+botID+">")
	return inb
}

// mentionsUser reports whether the message mentions the given user, either
// via the resolved mentions list or raw mention syntax in the content.
func mentionsUser(m Message, userID string) bool {
	for _, u := range m.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return containsMention(m.Content, userID)
}

func containsMention(content, userID string) bool {
	return strings.Contains(content, "<@"+userID+">") ||
		strings.Contains(content, "<@!"+userID+">")
}
