package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/orb-chat/orb/internal/memory"
	"github.com/orb-chat/orb/internal/provider"
)

// Observer receives one event per executed tool call, for metrics.
type Observer interface {
	ObserveToolCall(tool, outcome string)
}

// Executor runs model-requested tool calls against the memory store.
// It implements provider.ToolRunner.
type Executor struct {
	store    *memory.Store
	merger   *memory.Merger
	logger   *slog.Logger
	observer Observer
}

// NewExecutor creates an Executor. logger and observer may be nil.
func NewExecutor(store *memory.Store, merger *memory.Merger, logger *slog.Logger, observer Observer) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, merger: merger, logger: logger, observer: observer}
}

// Interface guard.
var _ provider.ToolRunner = (*Executor)(nil)

// Run executes one tool call and returns the textual result fed back to
// the model. Malformed JSON arguments degrade to an empty argument set;
// unknown names and missing arguments come back as ERROR strings rather
// than failing the exchange.
func (e *Executor) Run(ctx context.Context, call provider.ToolCall) string {
	switch ParseKind(call.Name) {
	case KindEditUserMemory:
		var args editUserArgs
		decodeArgs(call.Arguments, &args)
		if args.UserID == "" || args.Memory == "" {
			e.observe(call.Name, "missing_args")
			return "ERROR: missing userId or memory"
		}
		return e.update(ctx, call.Name, memory.ScopeUser, args.UserID, args.Memory)

	case KindEditServerMemory:
		var args editServerArgs
		decodeArgs(call.Arguments, &args)
		if args.GuildID == "" || args.Memory == "" {
			e.observe(call.Name, "missing_args")
			return "ERROR: missing guildId or memory"
		}
		return e.update(ctx, call.Name, memory.ScopeServer, args.GuildID, args.Memory)

	default:
		e.observe(call.Name, "unknown")
		e.logger.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("ERROR: unknown tool %s", call.Name)
	}
}

// update runs the merge-and-clip procedure for one identity.
func (e *Executor) update(ctx context.Context, name string, scope memory.Scope, id, input string) string {
	existing := e.store.Read(scope, id)

	merged, err := e.merger.Merge(ctx, scope, existing, input)
	if err != nil {
		e.observe(name, "merge_error")
		e.logger.Error("memory merge failed", "tool", name, "id", id, "error", err)
		return fmt.Sprintf("ERROR: memory update failed: %s", err)
	}

	final, err := e.store.Write(scope, id, merged)
	if err != nil {
		e.observe(name, "write_error")
		e.logger.Error("memory write failed", "tool", name, "id", id, "error", err)
		return fmt.Sprintf("ERROR: memory update failed: %s", err)
	}

	e.observe(name, "ok")
	return fmt.Sprintf("OK: %s memory updated (%d/%d chars).", scope, len(final), e.store.MaxChars())
}

// decodeArgs parses arguments into dst, leaving dst zeroed on malformed
// JSON so the missing-argument checks fire instead of aborting.
func decodeArgs(raw json.RawMessage, dst any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

func (e *Executor) observe(tool, outcome string) {
	if e.observer != nil {
		e.observer.ObserveToolCall(tool, outcome)
	}
}
