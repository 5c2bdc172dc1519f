// Package history persists the ordered per-user conversation log and
// enforces its retention limits.
//
// The record for a user is a JSON array of turns. If non-empty, index 0 is
// always a system turn holding the composed prompt; the relay overwrites
// its content on every exchange. Retention evicts the oldest non-system
// turn (index 1) until both the turn-count and character-count limits are
// satisfied, or only the system turn remains. Eviction deliberately
// ignores user/assistant pairing: a user turn may outlive its paired
// assistant turn and vice versa.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/orb-chat/orb/internal/history/sqlitekv"
	"github.com/orb-chat/orb/internal/provider"
)

// Namespace is the KV namespace holding per-user conversation records.
const Namespace = "user-chats"

// Limits bounds a stored conversation.
type Limits struct {
	// MaxTurns is the maximum number of turns, including the system turn.
	MaxTurns int

	// MaxChars is the maximum cumulative content size across all turns.
	MaxChars int
}

// Store loads and persists per-user conversation history.
type Store struct {
	kv     *sqlitekv.KV
	limits Limits
	seed   func() string
	logger *slog.Logger

	// onEvict, when set, is called with the number of turns evicted
	// during a Get. Used for metrics.
	onEvict func(n int)
}

// NewStore creates a Store over the given KV store. seed supplies the
// system-turn content used when a user has no record yet; logger and the
// options may be nil.
func NewStore(store *sqlitekv.Store, limits Limits, seed func() string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     store.Namespace(Namespace),
		limits: limits,
		seed:   seed,
		logger: logger,
	}
}

// SetEvictionObserver installs a callback invoked with the eviction count
// whenever a Get trims a record.
func (s *Store) SetEvictionObserver(fn func(n int)) {
	s.onEvict = fn
}

// Get returns the user's conversation, synthesizing a one-turn record with
// the seed system prompt when none exists. The retention limits are applied
// before returning; if eviction changed the record, the trimmed version is
// persisted first. The system turn at index 0 is never evicted or reordered.
func (s *Store) Get(ctx context.Context, userID string) ([]provider.Message, error) {
	raw, ok, err := s.kv.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("history: load %s: %w", userID, err)
	}

	if !ok {
		return []provider.Message{provider.SystemMessage(s.seed())}, nil
	}

	var msgs []provider.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("history: decode record for %s: %w", userID, err)
	}
	if len(msgs) == 0 {
		return []provider.Message{provider.SystemMessage(s.seed())}, nil
	}

	trimmed, evicted := trim(msgs, s.limits)
	if evicted > 0 {
		if err := s.put(ctx, userID, trimmed); err != nil {
			return nil, err
		}
		s.logger.Debug("history trimmed",
			"user", userID,
			"evicted", evicted,
			"turns", len(trimmed),
		)
		if s.onEvict != nil {
			s.onEvict(evicted)
		}
	}

	return trimmed, nil
}

// Append reads the current (already-trimmed) conversation, appends the new
// turns in order, and persists the result. Limits are not re-applied on
// write; the record converges on the next Get (lazy eviction).
func (s *Store) Append(ctx context.Context, userID string, turns ...provider.Message) error {
	msgs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.put(ctx, userID, append(msgs, turns...))
}

func (s *Store) put(ctx context.Context, userID string, msgs []provider.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("history: encode record for %s: %w", userID, err)
	}
	if err := s.kv.Put(ctx, userID, raw); err != nil {
		return fmt.Errorf("history: store %s: %w", userID, err)
	}
	return nil
}

// trim applies the retention policy: while either limit is exceeded and
// more than one turn remains, drop the turn at index 1. Each step strictly
// shrinks the record, so the loop terminates with both limits satisfied or
// exactly one turn left.
func trim(msgs []provider.Message, limits Limits) ([]provider.Message, int) {
	total := 0
	for _, m := range msgs {
		total += m.Size()
	}

	evicted := 0
	for (len(msgs) > limits.MaxTurns || total > limits.MaxChars) && len(msgs) > 1 {
		total -= msgs[1].Size()
		msgs = append(msgs[:1], msgs[2:]...)
		evicted++
	}

	return msgs, evicted
}
