// Package relay orchestrates one exchange per inbound message: placeholder
// reply, prompt composition, the tool-call loop, history persistence, and
// the final in-place edit. Exchanges for the same user run serially;
// different users run concurrently.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orb-chat/orb/internal/channel"
	"github.com/orb-chat/orb/internal/history"
	"github.com/orb-chat/orb/internal/memory"
	"github.com/orb-chat/orb/internal/provider"
	"github.com/orb-chat/orb/pkg/message"
)

// Reply text limits and fixed responses.
const (
	// MaxReplyChars is the hard cap a single chat message may carry.
	MaxReplyChars = 2000
	// maxErrorExcerpt bounds the diagnostic excerpt shown on failure.
	maxErrorExcerpt = 800

	emptyNotice  = "Is your message empty?"
	emptyAnswer  = "(no content)"
	apologyText  = "Sorry, I ran into an error talking to the model."
	timeLayout   = "2006-01-02 15:04:05"
	tracerName   = "github.com/orb-chat/orb/internal/relay"
)

// thinkingReplies are the placeholder texts posted while an exchange runs.
var thinkingReplies = []string{
	"Thinking...",
	"Composing an answer...",
	"Considering your message...",
}

// Observer receives per-exchange events, for metrics.
type Observer interface {
	ExchangeStarted()
	ExchangeFinished(outcome string, d time.Duration)
}

// Handler runs the exchange pipeline. Construct with NewHandler.
type Handler struct {
	sender   channel.Sender
	history  *history.Store
	composer *memory.Composer
	llm      provider.Completer
	tools    []provider.ToolDefinition
	locks    *UserLocks
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	now      func() time.Time
	pick     func(n int) int
}

// NewHandler wires the exchange pipeline. logger and observer may be nil.
func NewHandler(sender channel.Sender, hist *history.Store, composer *memory.Composer, llm provider.Completer, tools []provider.ToolDefinition, logger *slog.Logger, observer Observer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sender:   sender,
		history:  hist,
		composer: composer,
		llm:      llm,
		tools:    tools,
		locks:    NewUserLocks(),
		logger:   logger,
		observer: observer,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		pick:     rand.Intn,
	}
}

// Interface guard.
var _ channel.Handler = (*Handler)(nil)

// HandleMessage filters an inbound message and, if it is addressed to the
// bot, runs one exchange. Same-user exchanges are serialized; the caller
// is expected to invoke HandleMessage from one goroutine per event.
func (h *Handler) HandleMessage(ctx context.Context, msg message.Inbound) {
	if msg.FromBot || !msg.Addressed() {
		return
	}

	text := msg.StripMention()
	if text == "" {
		if _, err := h.sender.SendReply(ctx, msg.Chat.ID, msg.ID, emptyNotice); err != nil {
			h.logger.Warn("empty-message notice failed", "error", err)
		}
		return
	}

	h.locks.Acquire(msg.Sender.ID)
	defer h.locks.Release(msg.Sender.ID)

	h.exchange(ctx, msg, text)
}

// exchange runs steps placeholder through final edit for one message. It
// never returns an error; failures end as an apology edit on the
// placeholder.
func (h *Handler) exchange(ctx context.Context, msg message.Inbound, text string) {
	start := h.now()
	logger := h.logger.With("exchange_id", uuid.NewString(), "user_id", msg.Sender.ID, "chat_id", msg.Chat.ID)

	ctx, span := h.tracer.Start(ctx, "relay.exchange", trace.WithAttributes(
		attribute.String("chat.id", msg.Chat.ID),
		attribute.Bool("chat.group", msg.Chat.IsGroup()),
	))
	defer span.End()

	if h.observer != nil {
		h.observer.ExchangeStarted()
	}
	outcome := "ok"
	defer func() {
		if h.observer != nil {
			h.observer.ExchangeFinished(outcome, h.now().Sub(start))
		}
	}()

	placeholderID, err := h.sender.SendReply(ctx, msg.Chat.ID, msg.ID, thinkingReplies[h.pick(len(thinkingReplies))])
	if err != nil {
		outcome = "send_error"
		logger.Error("placeholder reply failed", "error", err)
		return
	}

	answer, err := h.converse(ctx, msg, text)
	if err != nil {
		outcome = "error"
		logger.Error("exchange failed", "error", err)
		h.apologize(ctx, logger, msg.Chat.ID, placeholderID, err)
		return
	}

	reply := clip(answer, MaxReplyChars)
	if reply == "" {
		reply = emptyAnswer
	}
	if err := h.sender.EditMessage(ctx, msg.Chat.ID, placeholderID, reply); err != nil {
		outcome = "edit_error"
		logger.Error("final edit failed", "error", err)
		return
	}
	logger.Info("exchange complete", "duration", h.now().Sub(start), "answer_chars", len(answer))
}

// converse loads history, refreshes the system turn, runs the tool loop,
// and persists both sides of the turn.
func (h *Handler) converse(ctx context.Context, msg message.Inbound, text string) (string, error) {
	msgs, err := h.history.Get(ctx, msg.Sender.ID)
	if err != nil {
		return "", err
	}

	// The composed prompt reflects the latest memories, so the stored
	// system turn is replaced on every exchange.
	system := provider.SystemMessage(h.composer.SystemPrompt(msg.Sender.ID, msg.GuildID))
	if len(msgs) == 0 || msgs[0].Role != provider.RoleSystem {
		msgs = append([]provider.Message{system}, msgs...)
	} else {
		msgs[0] = system
	}

	userTurn := provider.UserMessage(text + h.metadataSuffix(msg))

	answer, err := h.llm.WithTools(ctx, append(msgs, userTurn), h.tools)
	if err != nil {
		return "", err
	}

	if err := h.history.Append(ctx, msg.Sender.ID, userTurn, provider.AssistantMessage(answer)); err != nil {
		return "", err
	}
	return answer, nil
}

// metadataSuffix annotates the user turn with sender and chat identity so
// the model can address memory tools correctly.
func (h *Handler) metadataSuffix(msg message.Inbound) string {
	guildName, guildID := "DM", "none"
	if msg.Chat.IsGroup() {
		guildName, guildID = msg.GuildName, msg.GuildID
	}
	return fmt.Sprintf("\n\n(Sent by %s/%s (User ID: %s) on server %s (Server ID: %s) at %s)",
		msg.Sender.DisplayName, msg.Sender.Username, msg.Sender.ID, guildName, guildID, h.now().Format(timeLayout))
}

// apologize edits the placeholder into an apology with a bounded
// diagnostic excerpt.
func (h *Handler) apologize(ctx context.Context, logger *slog.Logger, chatID, messageID string, cause error) {
	text := apologyText
	if detail := clip(cause.Error(), maxErrorExcerpt); detail != "" {
		text += "\n\n```\n" + detail + "\n```"
	}
	if err := h.sender.EditMessage(ctx, chatID, messageID, text); err != nil {
		logger.Error("apology edit failed", "error", err)
	}
}

// clip truncates s to at most n bytes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
