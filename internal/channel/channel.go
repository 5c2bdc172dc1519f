// Package channel defines the transport abstraction between the relay and
// a chat platform. A Channel delivers inbound messages to a handler and
// exposes the two outbound operations the relay needs: posting a reply and
// editing a previously posted message in place.
package channel

import (
	"context"

	"github.com/orb-chat/orb/pkg/message"
)

// Handler consumes inbound messages. Implementations must be safe for
// concurrent calls; the channel may deliver messages from multiple chats
// at once.
type Handler interface {
	HandleMessage(ctx context.Context, msg message.Inbound)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg message.Inbound)

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg message.Inbound) {
	f(ctx, msg)
}

// Sender posts and edits messages on the platform.
type Sender interface {
	// SendReply posts text in chatID as a reply to replyToID and returns
	// the new message's platform ID, used later for editing.
	SendReply(ctx context.Context, chatID, replyToID, text string) (string, error)

	// EditMessage replaces the content of a previously sent message.
	EditMessage(ctx context.Context, chatID, messageID, text string) error
}

// Channel is a live connection to a chat platform.
type Channel interface {
	Sender

	// SetHandler registers the inbound message consumer. Must be called
	// before Start.
	SetHandler(h Handler)

	// Start connects and blocks delivering events until ctx is canceled
	// or the connection fails terminally.
	Start(ctx context.Context) error

	// Stop closes the connection and releases resources.
	Stop(ctx context.Context) error
}
