package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/orb-chat/orb/internal/provider"
	"github.com/orb-chat/orb/internal/provider/providertest"
)

func newTestStore(t *testing.T, maxChars int) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "memories"), maxChars)
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return s
}

func TestStore_ReadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 1200)
	if got := s.Read(ScopeUser, "nobody"); got != "" {
		t.Errorf("Read = %q, want empty", got)
	}
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 1200)
	written, err := s.Write(ScopeUser, "u1", "- (2026-01-01) likes go")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := s.Read(ScopeUser, "u1"); got != written {
		t.Errorf("Read = %q, want %q", got, written)
	}
}

func TestStore_WriteClipsToCap(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 10)
	written, err := s.Write(ScopeServer, "g1", strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(written) != 10 {
		t.Errorf("written %d chars, want 10", len(written))
	}
	if got := s.Read(ScopeServer, "g1"); len(got) != 10 {
		t.Errorf("stored %d chars, want 10", len(got))
	}
}

func TestStore_ScopesAreSeparate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 1200)
	if _, err := s.Write(ScopeUser, "same-id", "user text"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(ScopeServer, "same-id", "server text"); err != nil {
		t.Fatal(err)
	}
	if got := s.Read(ScopeUser, "same-id"); got != "user text" {
		t.Errorf("user scope = %q", got)
	}
	if got := s.Read(ScopeServer, "same-id"); got != "server text" {
		t.Errorf("server scope = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		cap  int
		want string
	}{
		{"forces bullets", "fact one\n- fact two", 1200, "- fact one\n- fact two"},
		{"trims lines", "  - padded  \n\n   \n- ok", 1200, "- padded\n- ok"},
		{"clips to cap", strings.Repeat("y", 50), 10, "- " + strings.Repeat("y", 8)},
		{"empty input", "\n  \n", 1200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in, tt.cap); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerger_UsesWorkerModelAndNormalizes(t *testing.T) {
	t.Parallel()

	var gotModel string
	var gotMsgs []provider.Message
	mock := &providertest.MockCompleter{
		TextFunc: func(_ context.Context, msgs []provider.Message, opts ...provider.Option) (string, error) {
			gotMsgs = msgs
			gotModel = provider.ApplyOptions(opts).Model
			return "(2026-09-01) user likes go\n- (2026-09-01) user dislikes yaml", nil
		},
	}

	m := NewMerger(mock, "cheap/worker", 1200)
	got, err := m.Merge(context.Background(), ScopeUser, "- (2025-01-01) old fact", "likes go")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if gotModel != "cheap/worker" {
		t.Errorf("model = %q, want worker model", gotModel)
	}
	if len(gotMsgs) != 2 || gotMsgs[0].Role != provider.RoleSystem {
		t.Fatalf("merge conversation = %+v", gotMsgs)
	}
	if !strings.Contains(gotMsgs[1].Content, "CURRENT_MEMORY:\n- (2025-01-01) old fact") {
		t.Errorf("existing memory not passed: %q", gotMsgs[1].Content)
	}
	if !strings.Contains(gotMsgs[1].Content, "INPUT: (") {
		t.Errorf("input not timestamped: %q", gotMsgs[1].Content)
	}
	want := "- (2026-09-01) user likes go\n- (2026-09-01) user dislikes yaml"
	if got != want {
		t.Errorf("Merge = %q, want %q", got, want)
	}
}

func TestMerger_ClipsOversizedModelOutput(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockCompleter{
		TextFunc: func(context.Context, []provider.Message, ...provider.Option) (string, error) {
			return strings.Repeat("z", 50_000), nil
		},
	}

	m := NewMerger(mock, "cheap/worker", 1200)
	got, err := m.Merge(context.Background(), ScopeServer, "", "anything")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(got) > 1200 {
		t.Errorf("merged output %d chars, cap is 1200", len(got))
	}
}

func TestComposer_SystemPrompt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corePath := filepath.Join(dir, "sysmsg.md")
	if err := os.WriteFile(corePath, []byte("# Core prompt\nBe helpful."), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(filepath.Join(dir, "memories"), 1200)
	if err := store.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(ScopeUser, "u1", "- knows go"); err != nil {
		t.Fatal(err)
	}

	c := NewComposer(corePath, store)

	t.Run("with user memory, no server", func(t *testing.T) {
		got := c.SystemPrompt("u1", "")
		if !strings.Contains(got, "# Core prompt") {
			t.Error("core prompt missing")
		}
		if !strings.Contains(got, "### [User memory]\n- knows go") {
			t.Errorf("user memory section wrong:\n%s", got)
		}
		if !strings.Contains(got, noServerMemory) {
			t.Error("server placeholder missing")
		}
	})

	t.Run("unknown user gets placeholders", func(t *testing.T) {
		got := c.SystemPrompt("stranger", "g1")
		if !strings.Contains(got, noUserMemory) {
			t.Error("user placeholder missing")
		}
	})
}

func TestComposer_MissingCoreFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1200)
	c := NewComposer(filepath.Join(t.TempDir(), "missing.md"), store)

	if got := c.CorePrompt(); got != coreMissing {
		t.Errorf("CorePrompt = %q, want marker", got)
	}
	if !strings.Contains(c.SystemPrompt("u", ""), coreMissing) {
		t.Error("SystemPrompt should degrade to the marker, not fail")
	}
}
