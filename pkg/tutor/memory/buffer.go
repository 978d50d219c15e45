package memory

import (
	"strings"

	"ai-tutoring-be/pkg/store"
)

// DefaultMaxTurns bounds the in-session transcript. Six student/tutor
// exchanges is enough context for classification and dialogue without
// letting long sessions grow without bound.
const DefaultMaxTurns = 12

// Buffer applies the bounded-transcript policy to a session's turn log.
// It never touches the active thread: evicting old turns must not evict
// the cached reasoning artifact or retrieved context.
type Buffer struct {
	maxTurns int
}

func NewBuffer(maxTurns int) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Buffer{maxTurns: maxTurns}
}

// MaxTurns returns the configured transcript budget.
func (b *Buffer) MaxTurns() int {
	return b.maxTurns
}

// Append returns the turn log with turn added, evicting oldest-first once
// the budget is exceeded. The input slice is not modified.
func (b *Buffer) Append(turns []store.Turn, turn store.Turn) []store.Turn {
	out := make([]store.Turn, 0, len(turns)+1)
	out = append(out, turns...)
	out = append(out, turn)
	if excess := len(out) - b.maxTurns; excess > 0 {
		out = out[excess:]
	}
	return out
}

// Recent returns up to n most recent turns in chronological order.
func Recent(turns []store.Turn, n int) []store.Turn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]store.Turn, len(turns))
	copy(out, turns)
	return out
}

// PromptWindow renders the last n turns as a compact transcript for model
// prompts, truncating each utterance to maxChars runes.
func PromptWindow(turns []store.Turn, n, maxChars int) string {
	recent := Recent(turns, n)
	if len(recent) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, t := range recent {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := "Student"
		if t.Role == store.RoleTutor {
			label = "Tutor"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(truncate(t.Text, maxChars))
	}
	return sb.String()
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
