package device

import "time"

// Device is one projected vendor entity: the stable identity, the fields
// the catalogue recognises, and every attribute the vendor sent, so nothing
// is lost between projection and re-serialisation.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Type Type   `json:"type"`
	Name string `json:"name"`

	// State. ActualState is the last state the vendor reported.
	// DesiredState mirrors the commanded or vendor-reported target; a
	// device is pending while it differs from ActualState. DesiredSince
	// marks when the divergence was first observed.
	ActualState  State      `json:"actual_state"`
	DesiredState *State     `json:"desired_state,omitempty"`
	DesiredSince *time.Time `json:"desired_since,omitempty"`

	// Health flags carried on every stateful vendor device.
	LowBattery  bool `json:"low_battery"`
	Malfunction bool `json:"malfunction"`

	// RawAttributes holds the full attribute set in internal snake_case
	// naming, known and unknown keys alike.
	RawAttributes map[string]any `json:"raw_attributes,omitempty"`

	// LastUpdatedAt is when state last changed through a poll or event.
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// StateLabel renders the actual state in words.
func (d *Device) StateLabel() string {
	return StateLabel(d.Type, d.ActualState)
}

// Reconciled reports whether no commanded state is pending: either nothing
// was desired, or the vendor has confirmed the desired state.
func (d *Device) Reconciled() bool {
	return d.DesiredState == nil || *d.DesiredState == d.ActualState
}

// StateAge returns how long ago state last changed.
func (d *Device) StateAge(now time.Time) time.Duration {
	if d.LastUpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(d.LastUpdatedAt)
}

// DeepCopy creates a complete independent copy of the Device.
// All map and pointer fields are cloned so modifications to the copy
// do not affect the original. This is essential for snapshot isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.RawAttributes = deepCopyMap(d.RawAttributes)

	if d.DesiredState != nil {
		state := *d.DesiredState
		cpy.DesiredState = &state
	}
	if d.DesiredSince != nil {
		since := *d.DesiredSince
		cpy.DesiredSince = &since
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, json.Number, etc.) are safe to copy by value
		return v
	}
}
