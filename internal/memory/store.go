// Package memory manages the layered long-term memory injected into every
// composed prompt: one markdown file per user and one per server, each
// capped at a fixed character budget, plus the merge procedure that folds
// new facts into a file via a cheaper completion call.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scope distinguishes user memory from server (group) memory.
type Scope string

// Scope values.
const (
	ScopeUser   Scope = "user"
	ScopeServer Scope = "server"
)

const (
	usersDir   = "users"
	serversDir = "servers"
)

// Store reads and writes per-identity memory files under a root directory.
// Writes are hard-clipped to MaxChars; the cap is never violated even when
// the merge call misbehaves.
type Store struct {
	root     string
	maxChars int
}

// NewStore creates a Store rooted at dir with the given size cap.
func NewStore(dir string, maxChars int) *Store {
	return &Store{root: dir, maxChars: maxChars}
}

// MaxChars returns the per-file character cap.
func (s *Store) MaxChars() int {
	return s.maxChars
}

// EnsureDirs creates the memory directory structure. Called once at
// startup so the read and compose paths stay side-effect-free.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.root, filepath.Join(s.root, usersDir), filepath.Join(s.root, serversDir)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("memory: create %s: %w", dir, err)
		}
	}
	return nil
}

// Path returns the memory file for an identity in the given scope.
func (s *Store) Path(scope Scope, id string) string {
	sub := usersDir
	if scope == ScopeServer {
		sub = serversDir
	}
	return filepath.Join(s.root, sub, id+".md")
}

// Read returns the stored memory for an identity. A missing file reads as
// empty, never as an error.
func (s *Store) Read(scope Scope, id string) string {
	raw, err := os.ReadFile(s.Path(scope, id))
	if err != nil {
		return ""
	}
	return string(raw)
}

// Write stores text for an identity, clipped to the cap, and returns the
// text actually written.
func (s *Store) Write(scope Scope, id, text string) (string, error) {
	clipped := Clip(text, s.maxChars)
	path := s.Path(scope, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("memory: create parent of %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(clipped), 0o600); err != nil {
		return "", fmt.Errorf("memory: write %s: %w", path, err)
	}
	return clipped, nil
}

// Clip truncates text to at most n bytes.
func Clip(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}
