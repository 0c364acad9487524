package device

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// attributeNames maps vendor camelCase attribute keys to their internal
// snake_case names. Keys the table does not list pass through unchanged;
// single-word keys (state, description) are identical in both casings.
var attributeNames = jsonapi.MustTranslator(map[string]string{
	"desiredState":        "desired_state",
	"lowBattery":          "low_battery",
	"criticalBattery":     "critical_battery",
	"batteryLevelNull":    "battery_level_null",
	"isMalfunctioning":    "is_malfunctioning",
	"lightLevel":          "light_level",
	"lightColor":          "light_color",
	"ambientTemp":         "ambient_temp",
	"heatSetpoint":        "heat_setpoint",
	"coolSetpoint":        "cool_setpoint",
	"desiredHeatSetpoint": "desired_heat_setpoint",
	"desiredCoolSetpoint": "desired_cool_setpoint",
	"setpointOffset":      "setpoint_offset",
	"fanMode":             "fan_mode",
	"desiredFanMode":      "desired_fan_mode",
	"openClosedStatus":    "open_closed_status",
	"macAddress":          "mac_address",
})

// WireAttributeName returns the vendor camelCase form of an internal
// attribute key.
func WireAttributeName(internal string) string {
	return attributeNames.Wire(internal)
}

// InternalAttributeName returns the internal snake_case form of a vendor
// attribute key.
func InternalAttributeName(wire string) string {
	return attributeNames.Internal(wire)
}

// Project maps one graph resource to a Device. The second return is false
// when the resource type has no projection; such resources stay available
// in the graph but never become devices.
func Project(res *jsonapi.Resource, now time.Time) (*Device, bool) {
	if res == nil {
		return nil, false
	}
	t, ok := TypeFromResource(res.Type)
	if !ok {
		return nil, false
	}

	d := &Device{
		ID:            res.ID,
		Type:          t,
		LastUpdatedAt: now,
	}
	d.MergeUpdate(attributeNames.InternalAttributes(deepCopyMap(res.Attributes)))

	if d.DesiredState != nil && *d.DesiredState != d.ActualState {
		since := now
		d.DesiredSince = &since
	}
	return d, true
}

// MergeUpdate folds a partial attribute update into the device: changed
// keys win, keys absent from the update keep their previous values, and
// the catalogued fields are re-derived from the merged set. Keys use
// internal snake_case naming.
func (d *Device) MergeUpdate(changed map[string]any) {
	if len(changed) == 0 {
		return
	}
	if d.RawAttributes == nil {
		d.RawAttributes = make(map[string]any, len(changed))
	}
	for k, v := range changed {
		d.RawAttributes[k] = v
	}
	d.derive()
}

// derive refreshes the catalogued fields from RawAttributes.
func (d *Device) derive() {
	if v, ok := d.RawAttributes["description"]; ok {
		if s, ok := jsonapi.AsString(v); ok {
			d.Name = s
		}
	}

	if Stateful(d.Type) {
		if v, ok := d.RawAttributes["state"]; ok {
			if n, ok := jsonapi.AsInt(v); ok {
				d.ActualState = State(n)
			}
		}
		if v, ok := d.RawAttributes["desired_state"]; ok {
			if n, ok := jsonapi.AsInt(v); ok && State(n) != StateUnknown {
				state := State(n)
				d.DesiredState = &state
			}
		}
	}

	low := false
	for _, key := range []string{"low_battery", "critical_battery"} {
		if v, ok := d.RawAttributes[key]; ok {
			if b, ok := jsonapi.AsBool(v); ok && b {
				low = true
			}
		}
	}
	d.LowBattery = low

	if v, ok := d.RawAttributes["is_malfunctioning"]; ok {
		if b, ok := jsonapi.AsBool(v); ok {
			d.Malfunction = b
		}
	}
}

// stateNumber renders a state as the json.Number the wire uses, so patched
// attributes stay in the same value domain as parsed ones.
func stateNumber(s State) json.Number {
	return json.Number(strconv.Itoa(int(s)))
}
