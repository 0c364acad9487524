package stream

import "strconv"

// EventType is the vendor's numeric code for a push event. The values
// are fixed by the wire protocol and must not be renumbered.
type EventType int

const (
	EventClosed             EventType = 0
	EventDisarmed           EventType = 8
	EventArmedStay          EventType = 9
	EventArmedAway          EventType = 10
	EventOpened             EventType = 15
	EventDoorUnlocked       EventType = 90
	EventDoorLocked         EventType = 91
	EventThermostatSetpoint EventType = 94
	EventThermostatMode     EventType = 95
	EventOpenedClosed       EventType = 100
	EventThermostatOffset   EventType = 105
	EventArmedNight         EventType = 113
	EventThermostatFanMode  EventType = 120
	EventLightOn            EventType = 315
	EventLightOff           EventType = 316
	EventLevelChange        EventType = 317
)

var eventNames = map[EventType]string{
	EventClosed:             "closed",
	EventDisarmed:           "disarmed",
	EventArmedStay:          "armed_stay",
	EventArmedAway:          "armed_away",
	EventOpened:             "opened",
	EventDoorUnlocked:       "door_unlocked",
	EventDoorLocked:         "door_locked",
	EventThermostatSetpoint: "thermostat_setpoint",
	EventThermostatMode:     "thermostat_mode",
	EventOpenedClosed:       "opened_closed",
	EventThermostatOffset:   "thermostat_offset",
	EventArmedNight:         "armed_night",
	EventThermostatFanMode:  "thermostat_fan_mode",
	EventLightOn:            "light_on",
	EventLightOff:           "light_off",
	EventLevelChange:        "level_change",
}

// String returns a stable lowercase name for logs and the event bus.
// Unrecognised codes render as "event(n)" so they stay greppable.
func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "event(" + strconv.Itoa(int(e)) + ")"
}

// Known reports whether the code is part of the recognised catalogue.
// The vendor emits hundreds of codes; only these route anywhere.
func (e EventType) Known() bool {
	_, ok := eventNames[e]
	return ok
}

// PropertyType is the vendor's numeric code for a property change push.
// Temperatures arrive as hundredths of a degree.
type PropertyType int

const (
	PropertyAmbientTemperature PropertyType = 1
	PropertyHeatSetpoint       PropertyType = 2
	PropertyCoolSetpoint       PropertyType = 3
	PropertyLightColor         PropertyType = 4
)

var propertyNames = map[PropertyType]string{
	PropertyAmbientTemperature: "ambient_temperature",
	PropertyHeatSetpoint:       "heat_setpoint",
	PropertyCoolSetpoint:       "cool_setpoint",
	PropertyLightColor:         "light_color",
}

// String returns a stable lowercase name for logs and the event bus.
func (p PropertyType) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return "property(" + strconv.Itoa(int(p)) + ")"
}

// Known reports whether the code is part of the recognised catalogue.
func (p PropertyType) Known() bool {
	_, ok := propertyNames[p]
	return ok
}
