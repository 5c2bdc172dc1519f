// Package discord implements the Discord channel: a gateway websocket for
// inbound events and a thin REST client for replies and edits.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase   = "https://discord.com/api/v10"
	maxRetries       = 3
	initialBackoff   = time.Second
	maxResponseBytes = 8 << 20
)

// APIError is a non-2xx response from the Discord REST API.
type APIError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter float64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord: api status %d (code %d): %s", e.Status, e.Code, e.Message)
}

// Client is a thin HTTP wrapper around the Discord REST API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a REST client authenticated with the given bot token.
// baseURL is overridable for tests; empty means the public API.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// do sends a JSON request and decodes the response. 429 responses are
// retried with the server-provided delay (max 3 attempts).
func do[T any](ctx context.Context, c *Client, method, path string, payload any) (*T, error) {
	url := c.baseURL + path

	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("discord: marshal %s %s request: %w", method, path, err)
		}
	}

	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		var body io.Reader
		if data != nil {
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("discord: create %s %s request: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("discord: %s %s request failed: %w", method, path, err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("discord: read %s %s response: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries-1 {
			var rate struct {
				RetryAfter float64 `json:"retry_after"`
			}
			if err := json.Unmarshal(respBody, &rate); err == nil && rate.RetryAfter > 0 {
				backoff = time.Duration(rate.RetryAfter * float64(time.Second))
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode}
			var parsed struct {
				Code       int     `json:"code"`
				Message    string  `json:"message"`
				RetryAfter float64 `json:"retry_after"`
			}
			if err := json.Unmarshal(respBody, &parsed); err == nil {
				apiErr.Code = parsed.Code
				apiErr.Message = parsed.Message
				apiErr.RetryAfter = parsed.RetryAfter
			}
			return nil, apiErr
		}

		var result T
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &result); err != nil {
				return nil, fmt.Errorf("discord: decode %s %s response: %w", method, path, err)
			}
		}
		return &result, nil
	}

	return nil, fmt.Errorf("discord: %s %s: max retries exceeded", method, path)
}

// CreateMessageRequest is the body for POST /channels/{id}/messages.
type CreateMessageRequest struct {
	Content          string            `json:"content"`
	MessageReference *MessageReference `json:"message_reference,omitempty"`
}

// MessageReference marks a message as a reply.
type MessageReference struct {
	MessageID string `json:"message_id"`
}

// EditMessageRequest is the body for PATCH /channels/{id}/messages/{mid}.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// CreateMessage posts a message in a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID string, req CreateMessageRequest) (*Message, error) {
	return do[Message](ctx, c, http.MethodPost, "/channels/"+channelID+"/messages", req)
}

// EditMessage replaces the content of a previously posted message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, req EditMessageRequest) (*Message, error) {
	return do[Message](ctx, c, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, req)
}

// GetGatewayBot returns the websocket URL and session limits for the bot.
func (c *Client) GetGatewayBot(ctx context.Context) (*GatewayBot, error) {
	return do[GatewayBot](ctx, c, http.MethodGet, "/gateway/bot", nil)
}

// GetCurrentUser returns the bot's own user object.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	return do[User](ctx, c, http.MethodGet, "/users/@me", nil)
}
