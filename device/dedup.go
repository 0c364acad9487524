package device

import "time"

// DefaultDedupWindow is the suppression window for repeated identical
// binary-sensor reports. The vendor re-announces unchanged sensor states a
// few times around each transition; observed traffic settles inside three
// minutes. The window is configurable because the value is inferred from
// traffic, not documented.
const DefaultDedupWindow = 3 * time.Minute

// Deduper suppresses repeated identical state reports per device id. A
// report matching the last accepted state inside the window is dropped;
// once the window has fully elapsed, the same state is accepted again.
// The window is measured from the last accepted report, so a burst of
// repeats does not extend the suppression.
//
// Not safe for concurrent use; the registry serialises access.
type Deduper struct {
	window time.Duration
	now    func() time.Time
	last   map[string]dedupEntry
}

type dedupEntry struct {
	state State
	at    time.Time
}

// NewDeduper returns a deduper with the given window. A window of zero or
// less disables suppression.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		now:    time.Now,
		last:   make(map[string]dedupEntry),
	}
}

// Accept records a state report and reports whether it should be applied.
func (d *Deduper) Accept(id string, s State) bool {
	if d == nil || d.window <= 0 {
		return true
	}
	now := d.now()
	prev, ok := d.last[id]
	if ok && prev.state == s && now.Sub(prev.at) < d.window {
		return false
	}
	d.last[id] = dedupEntry{state: s, at: now}
	return true
}

// Forget drops tracking for a device id.
func (d *Deduper) Forget(id string) {
	if d == nil {
		return
	}
	delete(d.last, id)
}
