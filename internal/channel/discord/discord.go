package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orb-chat/orb/internal/channel"
)

// Config configures the Discord channel.
type Config struct {
	// Token is the bot token.
	Token string

	// Intents overrides the gateway intent bits; zero means the default
	// message-handling set.
	Intents int

	// BaseURL overrides the REST API base, for tests.
	BaseURL string
}

// Channel is a live Discord connection implementing channel.Channel.
type Channel struct {
	cfg     Config
	client  *Client
	gw      *gateway
	logger  *slog.Logger
	handler channel.Handler

	mu        sync.RWMutex
	botID     string
	guilds    map[string]string
	connected bool
}

// New creates the channel. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Intents == 0 {
		cfg.Intents = defaultIntents
	}
	c := &Channel{
		cfg:    cfg,
		client: NewClient(cfg.Token, cfg.BaseURL),
		logger: logger,
		guilds: make(map[string]string),
	}
	c.gw = &gateway{
		token:    cfg.Token,
		intents:  cfg.Intents,
		dispatch: c.handleDispatch,
		logger:   logger,
	}
	return c
}

// Interface guard.
var _ channel.Channel = (*Channel)(nil)

// SetHandler registers the inbound message consumer.
func (c *Channel) SetHandler(h channel.Handler) {
	c.handler = h
}

// Connected reports whether a gateway session is currently live.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Start resolves the gateway URL and runs the websocket session,
// reconnecting with exponential backoff until ctx is canceled.
func (c *Channel) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("discord: Start called without a handler")
	}

	gw, err := c.client.GetGatewayBot(ctx)
	if err != nil {
		return fmt.Errorf("discord: resolve gateway url: %w", err)
	}

	backoff := reconnectBase
	for {
		err := c.gw.run(ctx, gw.URL)

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, errReconnect) {
			backoff = reconnectBase
		}
		c.logger.Warn("gateway session ended, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if backoff < reconnectMax {
			backoff *= 2
		}
	}
}

// Stop closes the gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	c.gw.close()
	return nil
}

// SendReply posts text as a reply and returns the new message ID.
func (c *Channel) SendReply(ctx context.Context, chatID, replyToID, text string) (string, error) {
	req := CreateMessageRequest{Content: text}
	if replyToID != "" {
		req.MessageReference = &MessageReference{MessageID: replyToID}
	}
	msg, err := c.client.CreateMessage(ctx, chatID, req)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// EditMessage replaces the content of a previously sent message.
func (c *Channel) EditMessage(ctx context.Context, chatID, messageID, text string) error {
	_, err := c.client.EditMessage(ctx, chatID, messageID, EditMessageRequest{Content: text})
	return err
}

// handleDispatch routes gateway dispatch events. MESSAGE_CREATE events are
// handed to the handler on their own goroutine so a slow exchange never
// stalls the gateway read loop.
func (c *Channel) handleDispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var rd readyData
		if err := json.Unmarshal(data, &rd); err != nil {
			c.logger.Error("decode READY", "error", err)
			return
		}
		c.mu.Lock()
		c.botID = rd.User.ID
		c.connected = true
		c.mu.Unlock()
		c.logger.Info("logged in", "username", rd.User.Username, "bot_id", rd.User.ID)

	case "GUILD_CREATE":
		var gd guildCreateData
		if err := json.Unmarshal(data, &gd); err != nil {
			c.logger.Error("decode GUILD_CREATE", "error", err)
			return
		}
		c.mu.Lock()
		c.guilds[gd.ID] = gd.Name
		c.mu.Unlock()

	case "MESSAGE_CREATE":
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Error("decode MESSAGE_CREATE", "error", err)
			return
		}

		c.mu.RLock()
		botID := c.botID
		guildName := c.guilds[m.GuildID]
		c.mu.RUnlock()

		if m.Author.ID == botID {
			return
		}

		inb := toInbound(m, botID, guildName)
		go c.handler.HandleMessage(context.Background(), inb)
	}
}
