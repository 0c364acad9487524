package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // stale reference, log and move on
//	}
var (
	// ErrDeviceNotFound is returned when a device id is not in the registry.
	// Pushed events for unknown ids surface this; callers log and discard.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnknownType is returned when a vendor resource type has no
	// projection.
	ErrUnknownType = errors.New("device: unknown type")

	// ErrUnknownState is returned when a state value is not recognised for
	// the device's type.
	ErrUnknownState = errors.New("device: unknown state")

	// ErrStateless is returned when a state operation targets a device type
	// that carries no state.
	ErrStateless = errors.New("device: type carries no state")
)
