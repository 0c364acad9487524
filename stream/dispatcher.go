package stream

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/sentra-bridge/device"
)

// Sink is where routed messages land. The bridge implements it over the
// device registry so the dispatcher stays ignorant of storage.
type Sink interface {
	// DeviceType resolves a device id for routing. False means the id is
	// unknown, typically a device removed since the last poll.
	DeviceType(id string) (device.Type, bool)

	// ApplyState records a settled state at the given time. The bool
	// mirrors device.Registry.ApplyState: false means deduplicated.
	ApplyState(id string, s device.State, at time.Time) (bool, error)

	// ApplyAttributes patches attributes keyed by vendor wire names.
	ApplyAttributes(id string, attrs map[string]any, at time.Time) error
}

// DispatcherStats counts routing outcomes since startup.
type DispatcherStats struct {
	Dispatched   uint64
	Deduplicated uint64
	UnknownCode  uint64
	StaleID      uint64
	Unrouted     uint64
}

// Dispatcher routes classified messages through a (code, device type)
// table into the Sink. It implements MessageHandler and runs on the
// client's read-loop goroutine; Stats is safe from any goroutine.
type Dispatcher struct {
	sink   Sink
	logger Logger
	now    func() time.Time

	mu    sync.Mutex
	stats DispatcherStats
}

// NewDispatcher builds a dispatcher over sink. A nil logger logs nowhere.
func NewDispatcher(sink Sink, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{sink: sink, logger: logger, now: time.Now}
}

// Stats returns a snapshot of the routing counters.
func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// HandleMessage implements MessageHandler. Monitoring and geofence
// notices are recognised but carry nothing the registry models.
func (d *Dispatcher) HandleMessage(msg any) {
	switch m := msg.(type) {
	case EventMessage:
		d.dispatchEvent(m)
	case PropertyChangeMessage:
		d.dispatchProperty(m)
	case StatusChangeMessage:
		d.dispatchStatus(m)
	case MonitoringEventMessage:
		d.noteUnrouted()
		d.logger.Debug("monitoring event",
			"event", m.Type.String(), "correlated_id", m.CorrelatedID)
	case GeofenceMessage:
		d.noteUnrouted()
		d.logger.Debug("geofence crossing",
			"fence_id", m.FenceID, "inside", m.IsInside)
	default:
		d.noteUnrouted()
		d.logger.Warn("unroutable message", "type", fmt.Sprintf("%T", msg))
	}
}

type eventHandler func(d *Dispatcher, msg EventMessage)

func setState(s device.State) eventHandler {
	return func(d *Dispatcher, msg EventMessage) {
		d.applyState(msg.DeviceID, s, msg.Date)
	}
}

// eventRoutes keys on (event code, device type). A missing inner entry
// means the code carries nothing for that device type.
var eventRoutes = map[EventType]map[device.Type]eventHandler{
	EventDisarmed:   {device.TypePartition: setState(device.PartitionDisarmed)},
	EventArmedStay:  {device.TypePartition: setState(device.PartitionArmedStay)},
	EventArmedAway:  {device.TypePartition: setState(device.PartitionArmedAway)},
	EventArmedNight: {device.TypePartition: setState(device.PartitionArmedNight)},
	EventClosed: {
		device.TypeSensor:      setState(device.SensorClosed),
		device.TypeGarageDoor:  setState(device.GarageClosed),
		device.TypeWaterSensor: setState(device.SensorDry),
	},
	EventOpened: {
		device.TypeSensor:      setState(device.SensorOpen),
		device.TypeGarageDoor:  setState(device.GarageOpen),
		device.TypeWaterSensor: setState(device.SensorWet),
	},
	EventOpenedClosed: {
		// Both edges arrive as one event; apply open then closed so the
		// pulse is visible downstream.
		device.TypeSensor: func(d *Dispatcher, msg EventMessage) {
			d.applyState(msg.DeviceID, device.SensorOpen, msg.Date)
			d.applyState(msg.DeviceID, device.SensorClosed, msg.Date)
		},
	},
	EventDoorLocked:   {device.TypeLock: setState(device.LockLocked)},
	EventDoorUnlocked: {device.TypeLock: setState(device.LockUnlocked)},
	EventLightOn:      {device.TypeLight: setState(device.LightOn)},
	EventLightOff:     {device.TypeLight: setState(device.LightOff)},
	EventLevelChange: {
		device.TypeLight: func(d *Dispatcher, msg EventMessage) {
			if msg.Value == 0 {
				return
			}
			d.applyAttributes(msg.DeviceID,
				map[string]any{"lightLevel": int(msg.Value)}, msg.Date)
		},
	},
	EventThermostatMode: {
		// The push carries a zero-based mode; device states are one-based.
		device.TypeThermostat: func(d *Dispatcher, msg EventMessage) {
			d.applyState(msg.DeviceID, device.State(int(msg.Value)+1), msg.Date)
		},
	},
	EventThermostatFanMode: {
		device.TypeThermostat: func(d *Dispatcher, msg EventMessage) {
			d.applyAttributes(msg.DeviceID, map[string]any{
				"fanMode":        msg.Value,
				"desiredFanMode": msg.Value,
			}, msg.Date)
		},
	},
	EventThermostatOffset: {
		device.TypeThermostat: func(d *Dispatcher, msg EventMessage) {
			d.applyAttributes(msg.DeviceID,
				map[string]any{"setpointOffset": msg.Value}, msg.Date)
		},
	},
	EventThermostatSetpoint: {
		// The matching property change carries the authoritative value.
		device.TypeThermostat: func(d *Dispatcher, msg EventMessage) {
			d.logger.Debug("setpoint event superseded by property change",
				"device_id", msg.DeviceID)
		},
	},
}

func (d *Dispatcher) dispatchEvent(msg EventMessage) {
	devType, ok := d.sink.DeviceType(msg.DeviceID)
	if !ok {
		d.discardStale("event", msg.Type.String(), msg.DeviceID)
		return
	}
	handler, ok := eventRoutes[msg.Type][devType]
	if !ok {
		d.discardUnknown("event", msg.Type.String(), msg.DeviceID, devType)
		return
	}
	handler(d, msg)
	d.noteDispatched()
}

type propertyHandler func(d *Dispatcher, msg PropertyChangeMessage)

// Temperatures arrive as hundredths of a degree. Setpoint pushes update
// the desired twin as well so a pending thermostat command clears.
var propertyRoutes = map[PropertyType]map[device.Type]propertyHandler{
	PropertyAmbientTemperature: {
		device.TypeThermostat: func(d *Dispatcher, msg PropertyChangeMessage) {
			d.applyAttributes(msg.DeviceID,
				map[string]any{"ambientTemp": msg.Value / 100}, msg.Date)
		},
	},
	PropertyHeatSetpoint: {
		device.TypeThermostat: func(d *Dispatcher, msg PropertyChangeMessage) {
			v := msg.Value / 100
			d.applyAttributes(msg.DeviceID, map[string]any{
				"heatSetpoint":        v,
				"desiredHeatSetpoint": v,
			}, msg.Date)
		},
	},
	PropertyCoolSetpoint: {
		device.TypeThermostat: func(d *Dispatcher, msg PropertyChangeMessage) {
			v := msg.Value / 100
			d.applyAttributes(msg.DeviceID, map[string]any{
				"coolSetpoint":        v,
				"desiredCoolSetpoint": v,
			}, msg.Date)
		},
	},
	PropertyLightColor: {
		// Recognised so it does not count as unknown; colour is poll-only.
		device.TypeLight: func(d *Dispatcher, msg PropertyChangeMessage) {
			d.logger.Debug("light colour push ignored", "device_id", msg.DeviceID)
		},
	},
}

func (d *Dispatcher) dispatchProperty(msg PropertyChangeMessage) {
	devType, ok := d.sink.DeviceType(msg.DeviceID)
	if !ok {
		d.discardStale("property", msg.Property.String(), msg.DeviceID)
		return
	}
	handler, ok := propertyRoutes[msg.Property][devType]
	if !ok {
		d.discardUnknown("property", msg.Property.String(), msg.DeviceID, devType)
		return
	}
	handler(d, msg)
	d.noteDispatched()
}

type statusHandler func(d *Dispatcher, msg StatusChangeMessage)

// statusRoutes applies the NewState number by device type. Locks, garage
// doors and water sensors use their catalogue values; lights use 0/1.
var statusRoutes = map[device.Type]statusHandler{
	device.TypeLock: func(d *Dispatcher, msg StatusChangeMessage) {
		d.applyState(msg.DeviceID, device.State(msg.NewState), msg.Date)
	},
	device.TypeGarageDoor: func(d *Dispatcher, msg StatusChangeMessage) {
		d.applyState(msg.DeviceID, device.State(msg.NewState), msg.Date)
	},
	device.TypeWaterSensor: func(d *Dispatcher, msg StatusChangeMessage) {
		d.applyState(msg.DeviceID, device.State(msg.NewState), msg.Date)
	},
	device.TypeLight: func(d *Dispatcher, msg StatusChangeMessage) {
		switch msg.NewState {
		case 0:
			d.applyState(msg.DeviceID, device.LightOff, msg.Date)
		case 1:
			d.applyState(msg.DeviceID, device.LightOn, msg.Date)
		default:
			d.logger.Warn("unrecognised light status",
				"device_id", msg.DeviceID, "new_state", msg.NewState)
		}
	},
}

func (d *Dispatcher) dispatchStatus(msg StatusChangeMessage) {
	devType, ok := d.sink.DeviceType(msg.DeviceID)
	if !ok {
		d.discardStale("status", strconv.Itoa(msg.NewState), msg.DeviceID)
		return
	}
	handler, ok := statusRoutes[devType]
	if !ok {
		d.discardUnknown("status", strconv.Itoa(msg.NewState), msg.DeviceID, devType)
		return
	}
	handler(d, msg)
	d.noteDispatched()
}

func (d *Dispatcher) applyState(id string, s device.State, at time.Time) {
	if at.IsZero() {
		at = d.now()
	}
	accepted, err := d.sink.ApplyState(id, s, at)
	if err != nil {
		d.logger.Warn("push state rejected",
			"device_id", id, "state", int(s), "error", err)
		return
	}
	if !accepted {
		d.mu.Lock()
		d.stats.Deduplicated++
		d.mu.Unlock()
		d.logger.Debug("push state deduplicated", "device_id", id, "state", int(s))
	}
}

func (d *Dispatcher) applyAttributes(id string, attrs map[string]any, at time.Time) {
	if at.IsZero() {
		at = d.now()
	}
	if err := d.sink.ApplyAttributes(id, attrs, at); err != nil {
		d.logger.Warn("push attribute change rejected", "device_id", id, "error", err)
	}
}

func (d *Dispatcher) noteDispatched() {
	d.mu.Lock()
	d.stats.Dispatched++
	d.mu.Unlock()
}

func (d *Dispatcher) noteUnrouted() {
	d.mu.Lock()
	d.stats.Unrouted++
	d.mu.Unlock()
}

func (d *Dispatcher) discardStale(kind, code, id string) {
	d.mu.Lock()
	d.stats.StaleID++
	d.mu.Unlock()
	d.logger.Warn("discarding push for unknown device",
		"kind", kind, "code", code, "device_id", id, "error", ErrStaleReference)
}

func (d *Dispatcher) discardUnknown(kind, code, id string, devType device.Type) {
	d.mu.Lock()
	d.stats.UnknownCode++
	d.mu.Unlock()
	d.logger.Debug("no route for push code", "kind", kind, "code", code,
		"device_id", id, "device_type", string(devType), "error", ErrUnknownEventCode)
}
