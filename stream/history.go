package stream

import (
	"encoding/json"
	"sync"
	"time"
)

// HistoryEntry is one raw push payload retained for diagnostics.
type HistoryEntry struct {
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// historyRing keeps the last N payloads. Overwrite on wrap, no growth.
type historyRing struct {
	mu      sync.Mutex
	entries []HistoryEntry
	next    int
	full    bool
}

func newHistoryRing(size int) *historyRing {
	return &historyRing{entries: make([]HistoryEntry, size)}
}

func (r *historyRing) add(payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = HistoryEntry{At: time.Now(), Payload: cp}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the retained entries oldest first.
func (r *historyRing) snapshot() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]HistoryEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]HistoryEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}
