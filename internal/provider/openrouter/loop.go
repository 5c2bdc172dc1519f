package openrouter

import (
	"context"

	"github.com/orb-chat/orb/internal/provider"
)

// SetToolRunner installs the runner that executes model-requested tool
// calls. Must be called before WithTools; wiring does this once at startup.
func (c *Client) SetToolRunner(r provider.ToolRunner) {
	c.runner = r
}

// WithTools runs the bounded tool-call loop. Each round sends the running
// conversation with tool calling enabled. A response without tool calls
// ends the loop with its text. A response with tool calls extends the
// conversation: the assistant's tool-call message first, then one tool
// turn per call, executed sequentially in the order the model requested
// them; tool calls mutate shared per-identity memory and must not race
// within one exchange. Exhausting the rounds yields Sentinel, not an error.
func (c *Client) WithTools(ctx context.Context, msgs []provider.Message, tools []provider.ToolDefinition) (string, error) {
	conversation := msgs

	for round := 0; round < c.config.MaxRounds; round++ {
		resp, err := c.createCompletion(ctx, apiRequest{
			Model:      c.config.Model,
			Messages:   convertMessages(conversation),
			Tools:      convertTools(tools),
			ToolChoice: "auto",
		})
		if err != nil {
			c.observe("tools", "error")
			return "", err
		}

		calls := toolCallsOf(resp)
		if len(calls) == 0 {
			c.observe("tools", "ok")
			content := firstContent(resp)
			if content == "" {
				return "(no content)", nil
			}
			return content, nil
		}

		c.observe("tools", "tool_round")
		c.logger.Debug("model requested tool calls",
			"round", round+1,
			"calls", len(calls),
		)

		conversation = append(conversation, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   firstContent(resp),
			ToolCalls: calls,
		})

		for _, call := range calls {
			result := "ERROR: no tool runner configured"
			if c.runner != nil {
				result = c.runner.Run(ctx, call)
			}
			conversation = append(conversation, provider.ToolMessage(call.Name, call.ID, result))
		}
	}

	c.observe("tools", "exhausted")
	c.logger.Warn("tool loop exhausted without a final answer",
		"max_rounds", c.config.MaxRounds,
	)
	return Sentinel, nil
}
