// Package openrouter implements provider.Completer against the OpenRouter
// chat-completions API (OpenAI-compatible wire format).
package openrouter

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/orb-chat/orb/internal/provider"
)

// DefaultMaxRounds bounds the tool-call loop: each round issues one
// completion call plus one tool execution per requested call.
const DefaultMaxRounds = 4

// Sentinel is returned when the tool loop exhausts its rounds without a
// plain-text answer. It is a normal answer, not an error.
const Sentinel = "Tool loop limit reached without a final answer."

const defaultTimeout = 2 * time.Minute

// Config holds the static settings for a Client.
type Config struct {
	BaseURL string
	APIKey  string

	// Model is the default model for requests without an override.
	Model string

	// Referer and Title are optional OpenRouter attribution headers.
	Referer string
	Title   string

	// MaxRounds bounds the tool loop. Zero means DefaultMaxRounds.
	MaxRounds int

	// Timeout applies at the transport level (dial, TLS, response header)
	// rather than as a whole-request deadline.
	Timeout time.Duration
}

// Observer receives one event per completion request, for metrics.
type Observer interface {
	ObserveRequest(kind, outcome string)
}

// Client is a provider.Completer backed by the OpenRouter API.
type Client struct {
	config   Config
	client   *http.Client
	logger   *slog.Logger
	observer Observer
	runner   provider.ToolRunner
}

// Interface guard.
var _ provider.Completer = (*Client)(nil)

// New creates a Client. logger and observer may be nil.
func New(cfg Config, logger *slog.Logger, observer Observer) *Client {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
				TLSHandshakeTimeout:   cfg.Timeout,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger:   logger,
		observer: observer,
	}
}

func (c *Client) observe(kind, outcome string) {
	if c.observer != nil {
		c.observer.ObserveRequest(kind, outcome)
	}
}
