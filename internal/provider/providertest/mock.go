// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/orb-chat/orb/internal/provider"
)

// MockCompleter is a configurable test double for provider.Completer.
// Set the Func fields to control behavior. Unset funcs panic on call.
// All methods are safe for concurrent use.
type MockCompleter struct {
	TextFunc      func(ctx context.Context, msgs []provider.Message, opts ...provider.Option) (string, error)
	WithToolsFunc func(ctx context.Context, msgs []provider.Message, tools []provider.ToolDefinition) (string, error)

	mu             sync.Mutex
	TextCalls      int
	WithToolsCalls int
	// LastMessages records the conversation passed to the most recent call.
	LastMessages []provider.Message
}

// Text delegates to TextFunc and tracks call count.
func (m *MockCompleter) Text(ctx context.Context, msgs []provider.Message, opts ...provider.Option) (string, error) {
	m.mu.Lock()
	m.TextCalls++
	m.LastMessages = msgs
	m.mu.Unlock()
	return m.TextFunc(ctx, msgs, opts...)
}

// WithTools delegates to WithToolsFunc and tracks call count.
func (m *MockCompleter) WithTools(ctx context.Context, msgs []provider.Message, tools []provider.ToolDefinition) (string, error) {
	m.mu.Lock()
	m.WithToolsCalls++
	m.LastMessages = msgs
	m.mu.Unlock()
	return m.WithToolsFunc(ctx, msgs, tools)
}

// Interface guard.
var _ provider.Completer = (*MockCompleter)(nil)
