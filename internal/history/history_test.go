package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/orb-chat/orb/internal/history/sqlitekv"
	"github.com/orb-chat/orb/internal/provider"
)

const seedPrompt = "you are a helpful orb"

func newTestStore(t *testing.T, limits Limits) (*Store, *sqlitekv.Store) {
	t.Helper()
	kv, err := sqlitekv.Open(filepath.Join(t.TempDir(), "hist.sqlite"))
	if err != nil {
		t.Fatalf("sqlitekv.Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv, limits, func() string { return seedPrompt }, nil), kv
}

func TestGet_SynthesizesDefaultRecord(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, Limits{MaxTurns: 22, MaxChars: 11500})

	msgs, err := s.Get(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d turns, want 1", len(msgs))
	}
	if msgs[0].Role != provider.RoleSystem || msgs[0].Content != seedPrompt {
		t.Errorf("seed turn = %+v", msgs[0])
	}
}

func TestAppendThenGet_PreservesOrder(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, Limits{MaxTurns: 22, MaxChars: 11500})
	ctx := context.Background()

	err := s.Append(ctx, "u1",
		provider.UserMessage("first question"),
		provider.AssistantMessage("first answer"),
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{seedPrompt, "first question", "first answer"}
	if len(msgs) != len(want) {
		t.Fatalf("got %d turns, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("turn %d = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestGet_NeverEvictsSystemTurn(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, Limits{MaxTurns: 3, MaxChars: 10})
	ctx := context.Background()

	// Far beyond both limits.
	for i := 0; i < 10; i++ {
		if err := s.Append(ctx, "u1",
			provider.UserMessage(strings.Repeat("q", 50)),
			provider.AssistantMessage(strings.Repeat("a", 50)),
		); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	msgs, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if msgs[0].Role != provider.RoleSystem {
		t.Fatalf("index 0 role = %s, want system", msgs[0].Role)
	}
	// The seed exceeds MaxChars on its own, so everything else is evicted.
	if len(msgs) != 1 {
		t.Errorf("got %d turns, want only the system turn", len(msgs))
	}
}

func TestGet_TrimsToTurnLimit(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, Limits{MaxTurns: 4, MaxChars: 11500})
	ctx := context.Background()

	for i, text := range []string{"q1", "a1", "q2", "a2", "q3", "a3"} {
		var m provider.Message
		if i%2 == 0 {
			m = provider.UserMessage(text)
		} else {
			m = provider.AssistantMessage(text)
		}
		if err := s.Append(ctx, "u1", m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d turns, want 4", len(msgs))
	}
	// Oldest non-system turns evicted first; newest survive.
	want := []string{seedPrompt, "a2", "q3", "a3"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("turn %d = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestGet_TrimsToCharLimit(t *testing.T) {
	t.Parallel()

	// Seed is 21 chars; each turn below is 10.
	s, _ := newTestStore(t, Limits{MaxTurns: 22, MaxChars: 45})
	ctx := context.Background()

	for _, text := range []string{"0123456789", "0123456789", "0123456789", "0123456789"} {
		if err := s.Append(ctx, "u1", provider.UserMessage(text)); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	if total > 45 {
		t.Errorf("total chars = %d, want <= 45", total)
	}
	if msgs[0].Content != seedPrompt {
		t.Error("system turn lost during char trimming")
	}
}

func TestGet_PersistsTrimmedRecord(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, Limits{MaxTurns: 2, MaxChars: 11500})
	ctx := context.Background()

	if err := s.Append(ctx, "u1",
		provider.UserMessage("q1"), provider.AssistantMessage("a1"),
	); err != nil {
		t.Fatal(err)
	}

	var evictions int
	s.SetEvictionObserver(func(n int) { evictions += n })

	// First Get trims and persists.
	if _, err := s.Get(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if evictions == 0 {
		t.Fatal("expected evictions on first Get")
	}

	// Second Get serves the already-trimmed record.
	evictions = 0
	if _, err := s.Get(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if evictions != 0 {
		t.Errorf("second Get evicted %d turns, want 0", evictions)
	}
}

func TestAppend_LazyEviction(t *testing.T) {
	t.Parallel()

	s, kv := newTestStore(t, Limits{MaxTurns: 2, MaxChars: 11500})
	ctx := context.Background()

	if err := s.Append(ctx, "u1",
		provider.UserMessage("q1"),
		provider.AssistantMessage("a1"),
		provider.UserMessage("q2"),
	); err != nil {
		t.Fatal(err)
	}

	// The raw record may exceed the limits between an append and the next
	// read; it must converge before being served.
	raw, ok, err := kv.Namespace(Namespace).Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("raw get: %v %v", err, ok)
	}
	if len(raw) == 0 {
		t.Fatal("empty raw record")
	}

	msgs, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) > 2 {
		t.Errorf("served %d turns, want <= MaxTurns", len(msgs))
	}
	if msgs[0].Role != provider.RoleSystem {
		t.Error("system turn not preserved")
	}
}

func TestGet_StorageErrorPropagates(t *testing.T) {
	t.Parallel()

	s, kv := newTestStore(t, Limits{MaxTurns: 22, MaxChars: 11500})
	_ = kv.Close()

	if _, err := s.Get(context.Background(), "u1"); err == nil {
		t.Error("expected storage error after close")
	}
}
