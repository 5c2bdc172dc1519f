package memory

import (
	"os"
	"strings"
)

// Placeholder text for empty memory sections, so the model can tell
// "no memory yet" apart from a missing section.
const (
	noUserMemory   = "_No stored user memories yet._"
	noServerMemory = "_No stored server memories yet._"
	coreMissing    = "# Core missing"
)

// Composer assembles the system prompt from the static core prompt and
// the layered memory files. Composition is a pure read: missing files
// degrade to placeholders, never errors.
type Composer struct {
	corePath string
	store    *Store
}

// NewComposer creates a Composer over the given core prompt file and store.
func NewComposer(corePath string, store *Store) *Composer {
	return &Composer{corePath: corePath, store: store}
}

// CorePrompt returns the static core prompt text, or a marker when the
// file is missing. Also used to seed brand-new history records.
func (c *Composer) CorePrompt() string {
	raw, err := os.ReadFile(c.corePath)
	if err != nil {
		return coreMissing
	}
	return string(raw)
}

// SystemPrompt composes the full system message for one exchange:
// core prompt, then the user's memory, then the server's memory, each
// under a labeled section. serverID may be empty for DMs.
func (c *Composer) SystemPrompt(userID, serverID string) string {
	userMem := strings.TrimSpace(c.store.Read(ScopeUser, userID))
	if userMem == "" {
		userMem = noUserMemory
	}

	serverMem := ""
	if serverID != "" {
		serverMem = strings.TrimSpace(c.store.Read(ScopeServer, serverID))
	}
	if serverMem == "" {
		serverMem = noServerMemory
	}

	return strings.Join([]string{
		strings.TrimSpace(c.CorePrompt()),
		"",
		"---",
		"### [User memory]",
		userMem,
		"",
		"### [Server memory]",
		serverMem,
	}, "\n")
}
