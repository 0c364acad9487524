package device

// Type classifies a projected device.
type Type string

// Device types.
const (
	TypePartition   Type = "partition"
	TypeSensor      Type = "sensor"
	TypeLock        Type = "lock"
	TypeLight       Type = "light"
	TypeGarageDoor  Type = "garage_door"
	TypeThermostat  Type = "thermostat"
	TypeWaterSensor Type = "water_sensor"
	TypeCamera      Type = "camera"
	TypeSystem      Type = "system"
)

// AllTypes returns every recognised device type.
func AllTypes() []Type {
	return []Type{
		TypePartition,
		TypeSensor,
		TypeLock,
		TypeLight,
		TypeGarageDoor,
		TypeThermostat,
		TypeWaterSensor,
		TypeCamera,
		TypeSystem,
	}
}

// Valid reports whether t is a recognised device type.
func (t Type) Valid() bool {
	_, ok := wireTypes[t]
	return ok
}

// ResourceType returns the vendor resource type string for t, or "" for an
// unrecognised type.
func (t Type) ResourceType() string {
	return wireTypes[t]
}

// resourceTypes maps vendor resource type strings to device types. Vendor
// types absent from this table (identity, trouble conditions) are held in
// the graph but never projected.
var resourceTypes = map[string]Type{
	"devices/partition":    TypePartition,
	"devices/sensor":       TypeSensor,
	"devices/lock":         TypeLock,
	"devices/light":        TypeLight,
	"devices/garage-door":  TypeGarageDoor,
	"devices/thermostat":   TypeThermostat,
	"devices/water-sensor": TypeWaterSensor,
	"video/camera":         TypeCamera,
	"systems/system":       TypeSystem,
}

var wireTypes = map[Type]string{
	TypePartition:   "devices/partition",
	TypeSensor:      "devices/sensor",
	TypeLock:        "devices/lock",
	TypeLight:       "devices/light",
	TypeGarageDoor:  "devices/garage-door",
	TypeThermostat:  "devices/thermostat",
	TypeWaterSensor: "devices/water-sensor",
	TypeCamera:      "video/camera",
	TypeSystem:      "systems/system",
}

// TypeFromResource maps a vendor resource type string to a device type.
// The second return is false for types that are not projected.
func TypeFromResource(resourceType string) (Type, bool) {
	t, ok := resourceTypes[resourceType]
	return t, ok
}

// State is a device's wire state value. The integer's meaning depends on
// the device type; 0 is unknown for every type.
type State int

// StateUnknown is the zero state for every device type.
const StateUnknown State = 0

// Partition states.
const (
	PartitionDisarmed   State = 1
	PartitionArmedStay  State = 2
	PartitionArmedAway  State = 3
	PartitionArmedNight State = 4
)

// Sensor states. Water sensors report in the same value space, using the
// dry and wet values only.
const (
	SensorClosed State = 1
	SensorOpen   State = 2
	SensorIdle   State = 3
	SensorActive State = 4
	SensorDry    State = 5
	SensorWet    State = 6
)

// Lock states.
const (
	LockLocked   State = 1
	LockUnlocked State = 2
)

// Light states.
const (
	LightOn  State = 1
	LightOff State = 2
)

// Garage door states.
const (
	GarageOpen   State = 1
	GarageClosed State = 2
)

// Thermostat modes.
const (
	ThermostatOff     State = 1
	ThermostatHeat    State = 2
	ThermostatCool    State = 3
	ThermostatAuto    State = 4
	ThermostatAuxHeat State = 5
)

var stateLabels = map[Type]map[State]string{
	TypePartition: {
		PartitionDisarmed:   "disarmed",
		PartitionArmedStay:  "armed_stay",
		PartitionArmedAway:  "armed_away",
		PartitionArmedNight: "armed_night",
	},
	TypeSensor: {
		SensorClosed: "closed",
		SensorOpen:   "open",
		SensorIdle:   "idle",
		SensorActive: "active",
		SensorDry:    "dry",
		SensorWet:    "wet",
	},
	TypeLock: {
		LockLocked:   "locked",
		LockUnlocked: "unlocked",
	},
	TypeLight: {
		LightOn:  "on",
		LightOff: "off",
	},
	TypeGarageDoor: {
		GarageOpen:   "open",
		GarageClosed: "closed",
	},
	TypeThermostat: {
		ThermostatOff:     "off",
		ThermostatHeat:    "heat",
		ThermostatCool:    "cool",
		ThermostatAuto:    "auto",
		ThermostatAuxHeat: "aux_heat",
	},
	TypeWaterSensor: {
		SensorDry: "dry",
		SensorWet: "wet",
	},
}

// StateLabel renders a state in words for one device type. Unrecognised
// values, including StateUnknown, render as "unknown".
func StateLabel(t Type, s State) string {
	if label, ok := stateLabels[t][s]; ok {
		return label
	}
	return "unknown"
}

// KnownState reports whether s is a recognised state value for t.
func KnownState(t Type, s State) bool {
	_, ok := stateLabels[t][s]
	return ok
}

// Stateful reports whether devices of type t carry a state value at all.
// Cameras and the system record are catalogued but stateless.
func Stateful(t Type) bool {
	_, ok := stateLabels[t]
	return ok
}

// Binary reports whether t is a binary sensor-like type whose repeated
// identical reports are deduplicated.
func Binary(t Type) bool {
	return t == TypeSensor || t == TypeWaterSensor
}
