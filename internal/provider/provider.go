package provider

import "context"

// Completer is the surface the relay uses to obtain completions.
type Completer interface {
	// Text sends the conversation with tool calling disabled and returns
	// the model's text. An upstream error status or an empty response is
	// an error.
	Text(ctx context.Context, msgs []Message, opts ...Option) (string, error)

	// WithTools runs the bounded tool-call loop: up to a fixed number of
	// rounds, each sending the running conversation plus the given tool
	// definitions. Tool invocations are dispatched to the configured
	// ToolRunner. If the rounds are exhausted without a plain-text answer,
	// a fixed sentinel text is returned without error.
	WithTools(ctx context.Context, msgs []Message, tools []ToolDefinition) (string, error)
}

// ToolRunner executes a model-requested tool call and returns a textual
// result to feed back to the model. It never fails: argument problems and
// unknown tool names are reported inside the returned string so the model
// can self-correct on the next round.
type ToolRunner interface {
	Run(ctx context.Context, call ToolCall) string
}

// ToolRunnerFunc adapts a function to the ToolRunner interface.
type ToolRunnerFunc func(ctx context.Context, call ToolCall) string

// Run implements ToolRunner.
func (f ToolRunnerFunc) Run(ctx context.Context, call ToolCall) string {
	return f(ctx, call)
}

// Option adjusts a single completion request.
type Option func(*Options)

// Options carries per-request overrides.
type Options struct {
	// Model overrides the client's default model when non-empty.
	Model string
}

// WithModel overrides the model for one request. The memory merge path
// uses this to route through the cheaper worker model.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// ApplyOptions folds a list of options into an Options value.
func ApplyOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
