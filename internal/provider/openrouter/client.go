package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/orb-chat/orb/internal/provider"
)

// maxDiagnosticBytes bounds how much of an upstream error body is carried
// into error messages shown to operators and users.
const maxDiagnosticBytes = 800

// apiRequest is the OpenAI-compatible chat completion request body.
type apiRequest struct {
	Model      string       `json:"model"`
	Messages   []apiMessage `json:"messages"`
	Tools      []apiTool    `json:"tools,omitempty"`
	ToolChoice string       `json:"tool_choice,omitempty"`
	Stream     bool         `json:"stream"`
}

// apiMessage is an OpenAI-compatible chat message.
type apiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	Name       string        `json:"name,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
}

// apiTool describes a tool for the OpenAI-compatible API.
type apiTool struct {
	Type     string      `json:"type"`
	Function apiFunction `json:"function"`
}

// apiFunction is the function description inside an apiTool.
type apiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// apiToolCall is an OpenAI-compatible tool call in a response.
type apiToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function apiToolCallFn `json:"function"`
}

// apiToolCallFn holds the function name and arguments in a tool call.
type apiToolCallFn struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// apiResponse is the non-streaming OpenAI-compatible response.
type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiChoice is a single choice in a completion response.
type apiChoice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// Text sends the conversation with tool calling disabled and returns the
// model's trimmed text content. Implements part of provider.Completer.
func (c *Client) Text(ctx context.Context, msgs []provider.Message, opts ...provider.Option) (string, error) {
	o := provider.ApplyOptions(opts)

	resp, err := c.createCompletion(ctx, apiRequest{
		Model:      c.resolveModel(o.Model),
		Messages:   convertMessages(msgs),
		ToolChoice: "none",
	})
	if err != nil {
		c.observe("text", "error")
		return "", err
	}

	content := firstContent(resp)
	if content == "" {
		c.observe("text", "empty")
		return "", provider.ErrEmptyResponse
	}

	c.observe("text", "ok")
	return content, nil
}

// createCompletion sends one request and decodes the response body,
// mapping non-success statuses and in-band API errors to errors.
func (c *Client) createCompletion(ctx context.Context, apiReq apiRequest) (*apiResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshaling request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if c.config.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.config.Referer)
	}
	if c.config.Title != "" {
		httpReq.Header.Set("X-Title", c.config.Title)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBytes))
		return nil, fmt.Errorf("openrouter: %w %d: %s",
			provider.ErrUpstreamStatus, resp.StatusCode, truncate(string(excerpt), maxDiagnosticBytes))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("openrouter: decoding response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return nil, fmt.Errorf("openrouter: %s", apiResp.Error.Message)
	}

	return &apiResp, nil
}

// resolveModel returns the override when set, otherwise the default model.
func (c *Client) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return c.config.Model
}

// convertMessages converts provider messages to API messages.
func convertMessages(msgs []provider.Message) []apiMessage {
	out := make([]apiMessage, len(msgs))
	for i, m := range msgs {
		am := apiMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolID,
		}
		if len(m.ToolCalls) > 0 {
			am.ToolCalls = make([]apiToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				am.ToolCalls[j] = apiToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: apiToolCallFn{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}
		out[i] = am
	}
	return out
}

// convertTools converts provider tool definitions to API tools.
func convertTools(tools []provider.ToolDefinition) []apiTool {
	out := make([]apiTool, len(tools))
	for i, t := range tools {
		out[i] = apiTool{
			Type: "function",
			Function: apiFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// firstContent returns the trimmed content of the first choice, or "".
func firstContent(resp *apiResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// toolCallsOf extracts the first choice's tool calls as provider values.
func toolCallsOf(resp *apiResponse) []provider.ToolCall {
	if len(resp.Choices) == 0 {
		return nil
	}
	raw := resp.Choices[0].Message.ToolCalls
	if len(raw) == 0 {
		return nil
	}
	out := make([]provider.ToolCall, len(raw))
	for i, tc := range raw {
		out[i] = provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}
	}
	return out
}

// truncate shortens s to at most n bytes, walking back to a rune boundary
// and appending an indicator when the string was cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := n
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
