package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orb-chat/orb/internal/provider"
)

// Merger folds a new fact or instruction into an existing memory text by
// delegating to a cheaper completion model, then normalizes the result
// defensively: append-then-reduce, not naive truncation.
type Merger struct {
	completer   provider.Completer
	workerModel string
	maxChars    int
}

// NewMerger creates a Merger that routes through workerModel.
func NewMerger(completer provider.Completer, workerModel string, maxChars int) *Merger {
	return &Merger{
		completer:   completer,
		workerModel: workerModel,
		maxChars:    maxChars,
	}
}

const mergeSystemTemplate = `You maintain concise %s memory for a Discord AI.
- Input: A string beginning with either INSTRUCTION or MEMORY. If MEMORY, add the memory to file. If INSTRUCTION, execute it.
- Output: a revised memory in markdown bullets.
- Each line starts with an ISO date in parentheses.
- Merge duplicates. Remove stale/contradictory info. Prefer stable facts.
- Be terse. No preamble, no code fences. No headings. Only bullets.
- Stay under %d characters total.`

// Merge combines existing memory with input for the given scope and
// returns the normalized, clipped result. The input is prefixed with the
// current timestamp so every stored bullet stays dated.
func (m *Merger) Merge(ctx context.Context, scope Scope, existing, input string) (string, error) {
	now := time.Now().UTC()

	current := existing
	if current == "" {
		current = "(empty)"
	}

	userPrompt := fmt.Sprintf("CURRENT_MEMORY:\n%s\n\nINPUT: (%s) %s\n\nToday is %s.",
		current,
		now.Format(time.RFC3339),
		strings.TrimSpace(input),
		now.Format(time.RFC3339),
	)

	result, err := m.completer.Text(ctx,
		[]provider.Message{
			provider.SystemMessage(fmt.Sprintf(mergeSystemTemplate, scope, m.maxChars)),
			provider.UserMessage(userPrompt),
		},
		provider.WithModel(m.workerModel),
	)
	if err != nil {
		return "", fmt.Errorf("memory: merge call: %w", err)
	}

	return Normalize(result, m.maxChars), nil
}

// Normalize trims each line, drops blanks, forces a bullet prefix, and
// hard-clips to the cap regardless of what the merge call returned.
func Normalize(text string, maxChars int) string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "- ") {
			line = "- " + line
		}
		bullets = append(bullets, line)
	}
	return Clip(strings.Join(bullets, "\n"), maxChars)
}
