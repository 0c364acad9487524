package sentra

import (
	"context"
	"fmt"

	"github.com/nerrad567/sentra-bridge/device"
)

// ArmMode selects the partition arming command.
type ArmMode string

// Arming modes. Night arming rides the armStay command with an extra
// nightArming flag; the vendor has no dedicated verb for it.
const (
	ArmStay  ArmMode = "armStay"
	ArmAway  ArmMode = "armAway"
	ArmNight ArmMode = "armNight"
)

// DesiredState maps the mode to the partition state it should settle in.
func (m ArmMode) DesiredState() device.State {
	switch m {
	case ArmStay:
		return device.PartitionArmedStay
	case ArmAway:
		return device.PartitionArmedAway
	case ArmNight:
		return device.PartitionArmedNight
	}
	return device.StateUnknown
}

// ArmOptions are the vendor's extended arming flags. Flags are sent only
// when set; the panel treats an absent key as false.
type ArmOptions struct {
	// ForceBypass arms even with sensors open, bypassing them.
	ForceBypass bool

	// NoEntryDelay trips the alarm immediately on entry.
	NoEntryDelay bool

	// SilentArming suppresses the arming countdown beeps.
	SilentArming bool
}

func (o ArmOptions) body() map[string]any {
	body := map[string]any{}
	if o.ForceBypass {
		body["forceBypass"] = true
	}
	if o.NoEntryDelay {
		body["noEntryDelay"] = true
	}
	if o.SilentArming {
		body["silentArming"] = true
	}
	return body
}

// actionPath builds the POST path for a device action.
func actionPath(base, id, action string) string {
	return fmt.Sprintf("%s/%s/%s", base, id, action)
}

// Arm sends an arming command to a partition.
func (c *Client) Arm(ctx context.Context, partitionID string, mode ArmMode, opts ArmOptions) error {
	verb := string(mode)
	body := opts.body()
	if mode == ArmNight {
		verb = string(ArmStay)
		body["nightArming"] = true
	} else if mode != ArmStay && mode != ArmAway {
		return fmt.Errorf("%w: unknown arm mode %q", ErrBadCommand, mode)
	}
	return c.postAction(ctx, actionPath(pathPartitions, partitionID, verb), body)
}

// Disarm disarms a partition.
func (c *Client) Disarm(ctx context.Context, partitionID string) error {
	return c.postAction(ctx, actionPath(pathPartitions, partitionID, "disarm"), nil)
}

// ClearFaults clears a partition's sensor fault annunciations.
func (c *Client) ClearFaults(ctx context.Context, partitionID string) error {
	return c.postAction(ctx, actionPath(pathPartitions, partitionID, "clearIssues"), nil)
}

// Lock locks a lock.
func (c *Client) Lock(ctx context.Context, lockID string) error {
	return c.postAction(ctx, actionPath(pathLocks, lockID, "lock"), nil)
}

// Unlock unlocks a lock.
func (c *Client) Unlock(ctx context.Context, lockID string) error {
	return c.postAction(ctx, actionPath(pathLocks, lockID, "unlock"), nil)
}

// OpenGarage opens a garage door.
func (c *Client) OpenGarage(ctx context.Context, doorID string) error {
	return c.postAction(ctx, actionPath(pathGarageDoors, doorID, "open"), nil)
}

// CloseGarage closes a garage door.
func (c *Client) CloseGarage(ctx context.Context, doorID string) error {
	return c.postAction(ctx, actionPath(pathGarageDoors, doorID, "close"), nil)
}

// LightOn turns a light on. A level between 1 and 100 also sets dimmer
// brightness; zero leaves brightness untouched.
func (c *Client) LightOn(ctx context.Context, lightID string, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("%w: light level %d out of range", ErrBadCommand, level)
	}
	var body map[string]any
	if level > 0 {
		body = map[string]any{"dimmerLevel": level}
	}
	return c.postAction(ctx, actionPath(pathLights, lightID, "turnOn"), body)
}

// LightOff turns a light off.
func (c *Client) LightOff(ctx context.Context, lightID string) error {
	return c.postAction(ctx, actionPath(pathLights, lightID, "turnOff"), nil)
}

// SetLightLevel sets dimmer brightness, which also turns the light on.
func (c *Client) SetLightLevel(ctx context.Context, lightID string, level int) error {
	if level < 1 || level > 100 {
		return fmt.Errorf("%w: light level %d out of range", ErrBadCommand, level)
	}
	return c.LightOn(ctx, lightID, level)
}

// Thermostat fan modes.
const (
	FanAuto      = 0
	FanAlwaysOn  = 1
	FanCirculate = 2
)

// ThermostatSettings carries exactly one thermostat change. The vendor
// applies one attribute per command, so a settings value selecting zero
// attributes or more than one is rejected locally.
type ThermostatSettings struct {
	// Mode sets the operating mode when non-zero.
	Mode device.State

	// FanMode, with FanDuration in hours, sets the fan programme.
	// Duration zero means run indefinitely.
	FanMode *int

	// FanDuration accompanies FanMode.
	FanDuration int

	// CoolSetpoint sets the cooling target, in the panel's degrees.
	CoolSetpoint *float64

	// HeatSetpoint sets the heating target.
	HeatSetpoint *float64
}

// body renders the single selected change, or errors when the selection
// is not exactly one.
func (s ThermostatSettings) body() (map[string]any, error) {
	var bodies []map[string]any
	if s.Mode != device.StateUnknown {
		bodies = append(bodies, map[string]any{"state": int(s.Mode)})
	}
	if s.FanMode != nil {
		// Auto runs on the panel's own schedule; a duration is meaningless.
		duration := s.FanDuration
		if *s.FanMode == FanAuto {
			duration = 0
		}
		bodies = append(bodies, map[string]any{
			"desiredFanMode":     *s.FanMode,
			"desiredFanDuration": duration,
		})
	}
	if s.CoolSetpoint != nil {
		bodies = append(bodies, map[string]any{"desiredCoolSetpoint": *s.CoolSetpoint})
	}
	if s.HeatSetpoint != nil {
		bodies = append(bodies, map[string]any{"desiredHeatSetpoint": *s.HeatSetpoint})
	}
	if len(bodies) != 1 {
		return nil, fmt.Errorf("%w: thermostat command must change exactly one attribute, got %d", ErrBadCommand, len(bodies))
	}
	return bodies[0], nil
}

// SetThermostat applies one thermostat change.
func (c *Client) SetThermostat(ctx context.Context, thermostatID string, settings ThermostatSettings) error {
	body, err := settings.body()
	if err != nil {
		return err
	}
	return c.postAction(ctx, actionPath(pathThermostats, thermostatID, "setState"), body)
}
