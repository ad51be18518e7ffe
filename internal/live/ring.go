package live

import (
	"sync"

	"github.com/tehqua/QuantFlow/internal/types"
)

// logRing is a fixed-capacity ring buffer of log entries. Once full, each
// append evicts the oldest entry. Safe for concurrent use.
type logRing struct {
	mu      sync.Mutex
	entries []types.LogEntry
	next    int
	full    bool
}

func newLogRing(capacity int) *logRing {
	return &logRing{
		entries: make([]types.LogEntry, capacity),
	}
}

// Append adds an entry, evicting the oldest when the ring is full.
func (r *logRing) Append(entry types.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)

	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns a copy of the entries, oldest first.
func (r *logRing) Snapshot() []types.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]types.LogEntry, r.next)
		copy(out, r.entries[:r.next])

		return out
	}

	out := make([]types.LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)

	return out
}

// Len returns the number of entries held.
func (r *logRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return len(r.entries)
	}

	return r.next
}
