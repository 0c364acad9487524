package events

import (
	"time"

	"github.com/nerrad567/sentra-bridge/device"
)

// Topic names a category of bridge happenings.
type Topic string

const (
	// TopicDeviceAdded fires when a poll discovers a device.
	TopicDeviceAdded Topic = "device.added"

	// TopicDeviceUpdated fires when a device's state or attributes change,
	// from either a poll or a push message.
	TopicDeviceUpdated Topic = "device.updated"

	// TopicDeviceRemoved fires when a poll no longer returns a device.
	TopicDeviceRemoved Topic = "device.removed"

	// TopicConnection fires when the push connection changes state.
	TopicConnection Topic = "connection.changed"
)

// Event is one bridge happening. Device is the publisher's snapshot and
// is shared across subscribers; treat it as read-only. Connection is set
// only on TopicConnection events.
type Event struct {
	Topic      Topic
	DeviceID   string
	Device     *device.Device
	Connection string
	At         time.Time
}

// DeviceEvent builds a device-scoped event.
func DeviceEvent(topic Topic, d *device.Device, at time.Time) Event {
	return Event{Topic: topic, DeviceID: d.ID, Device: d, At: at}
}

// ConnectionEvent builds a push-connection transition event.
func ConnectionEvent(state string, at time.Time) Event {
	return Event{Topic: TopicConnection, Connection: state, At: at}
}
