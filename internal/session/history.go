package session

import (
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/llm"
)

// History is the bounded in-memory turn window kept for prompt context.
// When the window is full the oldest turn is evicted. Safe for concurrent
// use.
type History struct {
	mu    sync.Mutex
	max   int
	turns []Turn
}

// NewHistory creates a History holding at most max turns. A max of zero or
// less means unbounded.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Append adds a turn, evicting the oldest when the window is full.
func (h *History) Append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
	if h.max > 0 && len(h.turns) > h.max {
		// Shift rather than reslice so evicted turns can be collected.
		copy(h.turns, h.turns[1:])
		h.turns = h.turns[:len(h.turns)-1]
	}
}

// Turns returns a copy of the window, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of turns currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear empties the window.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// Messages renders the window as model messages, oldest first.
func (h *History) Messages() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, 0, len(h.turns))
	for _, t := range h.turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}
