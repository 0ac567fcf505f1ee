package agent

import "sync"

// History keeps a bounded, in-order record of completed runs. When the limit
// is reached the oldest entry is evicted.
type History struct {
	mu      sync.Mutex
	entries []*RunResult
	limit   int
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

func (h *History) Append(result *RunResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, result)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// All returns a copy of the recorded runs, oldest first.
func (h *History) All() []*RunResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*RunResult, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
