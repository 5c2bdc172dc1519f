// Package channeltest provides test doubles for the channel package.
package channeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/orb-chat/orb/internal/channel"
)

// Sent records one SendReply call.
type Sent struct {
	ChatID    string
	ReplyToID string
	Text      string
}

// Edit records one EditMessage call.
type Edit struct {
	ChatID    string
	MessageID string
	Text      string
}

// MockSender is a configurable test double for channel.Sender. By default
// SendReply returns generated IDs ("msg-1", "msg-2", ...) and EditMessage
// succeeds; set the error fields to force failures. Safe for concurrent
// use.
type MockSender struct {
	SendErr error
	EditErr error

	mu    sync.Mutex
	seq   int
	sends []Sent
	edits []Edit
}

// SendReply records the call and returns a generated message ID.
func (m *MockSender) SendReply(ctx context.Context, chatID, replyToID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.seq++
	m.sends = append(m.sends, Sent{ChatID: chatID, ReplyToID: replyToID, Text: text})
	return fmt.Sprintf("msg-%d", m.seq), nil
}

// EditMessage records the call.
func (m *MockSender) EditMessage(ctx context.Context, chatID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return m.EditErr
	}
	m.edits = append(m.edits, Edit{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

// Sends returns a copy of all recorded SendReply calls.
func (m *MockSender) Sends() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sends...)
}

// Edits returns a copy of all recorded EditMessage calls.
func (m *MockSender) Edits() []Edit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Edit(nil), m.edits...)
}

// Interface guard.
var _ channel.Sender = (*MockSender)(nil)
