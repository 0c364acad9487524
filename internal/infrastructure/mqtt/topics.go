package mqtt

import "fmt"

// DefaultTopicPrefix roots the topic tree when no prefix is configured.
const DefaultTopicPrefix = "sentra"

// Topics provides builders for sentra-bridge MQTT topics. The zero value
// uses DefaultTopicPrefix; set Prefix to relocate the whole tree.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Device topics use the flat scheme: {prefix}/{type}/{id}/{leaf}
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("lock", "305938961")
//	// Returns: "sentra/lock/305938961/state"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceState returns the retained state topic for one device.
//
// Example: sentra/lock/305938961/state
func (t Topics) DeviceState(deviceType, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/state", t.prefix(), deviceType, deviceID)
}

// DeviceAttributes returns the retained attribute topic for one device.
// The payload is the full vendor attribute set, known and unknown keys
// alike.
//
// Example: sentra/thermostat/305938970/attributes
func (t Topics) DeviceAttributes(deviceType, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/attributes", t.prefix(), deviceType, deviceID)
}

// =============================================================================
// Bridge Topics
// =============================================================================

// Availability returns the bridge availability topic, used for the LWT
// and the online/offline announcements.
//
// Example: sentra/bridge/availability
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/bridge/availability", t.prefix())
}

// Connection returns the push-connection status topic.
//
// Example: sentra/bridge/connection
func (t Topics) Connection() string {
	return fmt.Sprintf("%s/bridge/connection", t.prefix())
}

// Refresh returns the topic that triggers a full portal poll when any
// payload arrives on it.
//
// Example: sentra/bridge/refresh
func (t Topics) Refresh() string {
	return fmt.Sprintf("%s/bridge/refresh", t.prefix())
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: sentra/+/+/state
func (t Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/+/state", t.prefix())
}

// AllDeviceAttributes returns a pattern matching every attribute topic.
//
// Pattern: sentra/+/+/attributes
func (t Topics) AllDeviceAttributes() string {
	return fmt.Sprintf("%s/+/+/attributes", t.prefix())
}

// AllTopics returns a pattern matching the whole topic tree.
// Use with caution - this receives ALL traffic.
//
// Pattern: sentra/#
func (t Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", t.prefix())
}
