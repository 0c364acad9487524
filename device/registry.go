package device

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Diff describes what changed across a snapshot replacement.
type Diff struct {
	Added   []string
	Updated []string
	Removed []string
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Registry holds the projected device set. Polls replace the whole set via
// ReplaceAll; pushed events patch single devices via ApplyState and
// ApplyAttributes. Reads return deep copies, so callers never observe a
// device mid-update.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	deduper *Deduper
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates a device registry. dedupWindow controls suppression
// of repeated identical binary-sensor reports; zero or less disables it.
func NewRegistry(dedupWindow time.Duration) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		deduper: NewDeduper(dedupWindow),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// ReplaceAll swaps in a full poll snapshot and returns the diff against the
// previous set. The registry takes ownership of the passed devices.
// Devices absent from the snapshot are removed; events for removed ids are
// discarded until a later poll restores them.
func (r *Registry) ReplaceAll(devices []*Device) Diff {
	next := make(map[string]*Device, len(devices))
	for _, d := range devices {
		if d == nil || d.ID == "" {
			continue
		}
		next[d.ID] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var diff Diff
	for id, nd := range next {
		od, ok := r.devices[id]
		switch {
		case !ok:
			diff.Added = append(diff.Added, id)
		case !equalDevices(od, nd):
			diff.Updated = append(diff.Updated, id)
		}
	}
	for id := range r.devices {
		if _, ok := next[id]; !ok {
			diff.Removed = append(diff.Removed, id)
			r.deduper.Forget(id)
		}
	}

	r.devices = next
	sort.Strings(diff.Added)
	sort.Strings(diff.Updated)
	sort.Strings(diff.Removed)

	r.logger.Debug("device snapshot replaced",
		"devices", len(next),
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"removed", len(diff.Removed))
	return diff
}

// equalDevices compares the fields a poll can change, ignoring timestamps
// so an unchanged device does not show up as updated on every poll.
func equalDevices(a, b *Device) bool {
	if a.Type != b.Type || a.Name != b.Name || a.ActualState != b.ActualState {
		return false
	}
	if a.LowBattery != b.LowBattery || a.Malfunction != b.Malfunction {
		return false
	}
	if (a.DesiredState == nil) != (b.DesiredState == nil) {
		return false
	}
	if a.DesiredState != nil && *a.DesiredState != *b.DesiredState {
		return false
	}
	return reflect.DeepEqual(a.RawAttributes, b.RawAttributes)
}

// ApplyState patches one device from a pushed state event. It reports
// whether the state was applied; a false with nil error means the report
// was a suppressed duplicate. Unknown ids return ErrDeviceNotFound so the
// dispatcher can log the stale reference and move on.
func (r *Registry) ApplyState(id string, s State, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false, ErrDeviceNotFound
	}
	if !Stateful(d.Type) {
		return false, fmt.Errorf("%w: %s", ErrStateless, d.Type)
	}
	if !KnownState(d.Type, s) {
		return false, fmt.Errorf("%w: %s state %d", ErrUnknownState, d.Type, int(s))
	}
	if Binary(d.Type) && !r.deduper.Accept(id, s) {
		r.logger.Debug("duplicate state report suppressed",
			"device_id", id, "state", StateLabel(d.Type, s))
		return false, nil
	}

	// A pushed state event announces where the device settled, so the
	// desired state follows it; a stale desired value must not linger as a
	// phantom pending command.
	d.MergeUpdate(map[string]any{
		"state":         stateNumber(s),
		"desired_state": stateNumber(s),
	})
	if at.IsZero() {
		at = r.now()
	}
	d.LastUpdatedAt = at
	r.syncDesired(d)

	r.logger.Debug("device state applied",
		"device_id", id, "state", StateLabel(d.Type, s))
	return true, nil
}

// ApplyAttributes patches one device from a pushed attribute change. Keys
// use the vendor's wire naming and are translated before merging.
func (r *Registry) ApplyAttributes(id string, wire map[string]any, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}

	d.MergeUpdate(attributeNames.InternalAttributes(wire))
	if at.IsZero() {
		at = r.now()
	}
	d.LastUpdatedAt = at
	r.syncDesired(d)
	return nil
}

// SetDesired records the optimistic target state after a command is sent.
// The desired state stays pending until a poll or event confirms it.
func (r *Registry) SetDesired(id string, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if !KnownState(d.Type, s) {
		return fmt.Errorf("%w: %s state %d", ErrUnknownState, d.Type, int(s))
	}

	d.MergeUpdate(map[string]any{"desired_state": stateNumber(s)})
	if d.Reconciled() {
		d.DesiredSince = nil
	} else {
		now := r.now()
		d.DesiredSince = &now
	}
	return nil
}

// syncDesired maintains the divergence timer: pending divergence gets a
// start time once, and convergence clears it.
func (r *Registry) syncDesired(d *Device) {
	switch {
	case d.Reconciled():
		d.DesiredSince = nil
	case d.DesiredSince == nil:
		now := r.now()
		d.DesiredSince = &now
	}
}

// Get returns a deep copy of one device.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// List returns deep copies of every device, sorted by type, name, then id.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// CountByType returns device counts per type.
func (r *Registry) CountByType() map[Type]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Type]int)
	for _, d := range r.devices {
		out[d.Type]++
	}
	return out
}

// Unreconciled returns deep copies of devices whose desired state has been
// pending for at least timeout, sorted by id.
func (r *Registry) Unreconciled(timeout time.Duration) []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var out []*Device
	for _, d := range r.devices {
		if d.Reconciled() || d.DesiredSince == nil {
			continue
		}
		if now.Sub(*d.DesiredSince) >= timeout {
			out = append(out, d.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
