package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/sentra"
)

var armCmd = &cobra.Command{
	Use:   "arm [partition-id]",
	Short: "Arm a partition",
	Long:  "Arm a partition in stay, away or night mode. The panel confirms asynchronously; watch the event stream or re-list devices to see the transition complete.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeStr, _ := cmd.Flags().GetString("mode")
		mode, err := parseArmMode(modeStr)
		if err != nil {
			return err
		}

		opts := sentra.ArmOptions{}
		opts.ForceBypass, _ = cmd.Flags().GetBool("force-bypass")
		opts.NoEntryDelay, _ = cmd.Flags().GetBool("no-entry-delay")
		opts.SilentArming, _ = cmd.Flags().GetBool("silent")

		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.Arm(ctx, args[0], mode, opts); err != nil {
			return fmt.Errorf("arming partition: %w", err)
		}

		printSuccess("Partition %s arming (%s)", args[0], modeStr)
		return nil
	},
}

var disarmCmd = &cobra.Command{
	Use:   "disarm [partition-id]",
	Short: "Disarm a partition",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.Disarm(ctx, args[0]); err != nil {
			return fmt.Errorf("disarming partition: %w", err)
		}

		printSuccess("Partition %s disarming", args[0])
		return nil
	},
}

var clearFaultsCmd = &cobra.Command{
	Use:   "clear-faults [partition-id]",
	Short: "Clear sensor fault annunciations on a partition",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.ClearFaults(ctx, args[0]); err != nil {
			return fmt.Errorf("clearing faults: %w", err)
		}

		printSuccess("Partition %s faults cleared", args[0])
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock [lock-id]",
	Short: "Lock a door lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.Lock(ctx, args[0]); err != nil {
			return fmt.Errorf("locking: %w", err)
		}

		printSuccess("Lock %s locking", args[0])
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock [lock-id]",
	Short: "Unlock a door lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.Unlock(ctx, args[0]); err != nil {
			return fmt.Errorf("unlocking: %w", err)
		}

		printSuccess("Lock %s unlocking", args[0])
		return nil
	},
}

var garageCmd = &cobra.Command{
	Use:   "garage",
	Short: "Operate garage doors",
}

var garageOpenCmd = &cobra.Command{
	Use:   "open [door-id]",
	Short: "Open a garage door",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.OpenGarage(ctx, args[0]); err != nil {
			return fmt.Errorf("opening garage door: %w", err)
		}

		printSuccess("Garage door %s opening", args[0])
		return nil
	},
}

var garageCloseCmd = &cobra.Command{
	Use:   "close [door-id]",
	Short: "Close a garage door",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.CloseGarage(ctx, args[0]); err != nil {
			return fmt.Errorf("closing garage door: %w", err)
		}

		printSuccess("Garage door %s closing", args[0])
		return nil
	},
}

var lightCmd = &cobra.Command{
	Use:   "light",
	Short: "Operate lights and dimmers",
}

var lightOnCmd = &cobra.Command{
	Use:   "on [light-id]",
	Short: "Turn a light on",
	Long:  "Turn a light on, optionally at a dimmer level (1-100). Without --level the light keeps its previous brightness.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetInt("level")

		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.LightOn(ctx, args[0], level); err != nil {
			return fmt.Errorf("turning light on: %w", err)
		}

		if level > 0 {
			printSuccess("Light %s on at %d%%", args[0], level)
		} else {
			printSuccess("Light %s on", args[0])
		}
		return nil
	},
}

var lightOffCmd = &cobra.Command{
	Use:   "off [light-id]",
	Short: "Turn a light off",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.LightOff(ctx, args[0]); err != nil {
			return fmt.Errorf("turning light off: %w", err)
		}

		printSuccess("Light %s off", args[0])
		return nil
	},
}

var lightLevelCmd = &cobra.Command{
	Use:   "level [light-id] [percent]",
	Short: "Set dimmer brightness (1-100), turning the light on",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		var level int
		if _, err := fmt.Sscanf(args[1], "%d", &level); err != nil {
			return fmt.Errorf("invalid level %q: expected a number 1-100", args[1])
		}

		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.SetLightLevel(ctx, args[0], level); err != nil {
			return fmt.Errorf("setting light level: %w", err)
		}

		printSuccess("Light %s set to %d%%", args[0], level)
		return nil
	},
}

var thermostatCmd = &cobra.Command{
	Use:   "thermostat [thermostat-id]",
	Short: "Change one thermostat setting",
	Long: `Change a thermostat setting. The vendor applies one attribute per
command: give exactly one of --mode, --fan, --heat or --cool.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := thermostatSettings(cmd)
		if err != nil {
			return err
		}

		client, err := newVendorClient()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := client.SetThermostat(ctx, args[0], settings); err != nil {
			return fmt.Errorf("setting thermostat: %w", err)
		}

		printSuccess("Thermostat %s updated", args[0])
		return nil
	},
}

// thermostatSettings converts the thermostat flags into a settings value.
// The library enforces the one-attribute rule; this only translates.
func thermostatSettings(cmd *cobra.Command) (sentra.ThermostatSettings, error) {
	var settings sentra.ThermostatSettings

	if cmd.Flags().Changed("mode") {
		modeStr, _ := cmd.Flags().GetString("mode")
		mode, err := parseThermostatMode(modeStr)
		if err != nil {
			return settings, err
		}
		settings.Mode = mode
	}

	if cmd.Flags().Changed("fan") {
		fanStr, _ := cmd.Flags().GetString("fan")
		fan, err := parseFanMode(fanStr)
		if err != nil {
			return settings, err
		}
		settings.FanMode = &fan
		settings.FanDuration, _ = cmd.Flags().GetInt("fan-duration")
	}

	if cmd.Flags().Changed("heat") {
		v, _ := cmd.Flags().GetFloat64("heat")
		settings.HeatSetpoint = &v
	}

	if cmd.Flags().Changed("cool") {
		v, _ := cmd.Flags().GetFloat64("cool")
		settings.CoolSetpoint = &v
	}

	return settings, nil
}

func parseArmMode(s string) (sentra.ArmMode, error) {
	switch s {
	case "stay":
		return sentra.ArmStay, nil
	case "away":
		return sentra.ArmAway, nil
	case "night":
		return sentra.ArmNight, nil
	default:
		return "", fmt.Errorf("invalid arm mode %q: expected stay, away or night", s)
	}
}

func parseThermostatMode(s string) (device.State, error) {
	switch s {
	case "off":
		return device.ThermostatOff, nil
	case "heat":
		return device.ThermostatHeat, nil
	case "cool":
		return device.ThermostatCool, nil
	case "auto":
		return device.ThermostatAuto, nil
	case "aux_heat":
		return device.ThermostatAuxHeat, nil
	default:
		return device.StateUnknown, fmt.Errorf("invalid thermostat mode %q: expected off, heat, cool, auto or aux_heat", s)
	}
}

func parseFanMode(s string) (int, error) {
	switch s {
	case "auto":
		return sentra.FanAuto, nil
	case "on":
		return sentra.FanAlwaysOn, nil
	case "circulate":
		return sentra.FanCirculate, nil
	default:
		return 0, fmt.Errorf("invalid fan mode %q: expected auto, on or circulate", s)
	}
}

func init() {
	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
	rootCmd.AddCommand(clearFaultsCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(garageCmd)
	rootCmd.AddCommand(lightCmd)
	rootCmd.AddCommand(thermostatCmd)

	garageCmd.AddCommand(garageOpenCmd)
	garageCmd.AddCommand(garageCloseCmd)

	lightCmd.AddCommand(lightOnCmd)
	lightCmd.AddCommand(lightOffCmd)
	lightCmd.AddCommand(lightLevelCmd)

	armCmd.Flags().StringP("mode", "m", "", "arm mode: stay, away, night")
	armCmd.Flags().Bool("force-bypass", false, "bypass open sensors")
	armCmd.Flags().Bool("no-entry-delay", false, "trigger instantly on entry")
	armCmd.Flags().Bool("silent", false, "suppress arming chimes")
	if err := armCmd.MarkFlagRequired("mode"); err != nil {
		panic(fmt.Sprintf("failed to mark mode as required: %v", err))
	}

	lightOnCmd.Flags().IntP("level", "l", 0, "dimmer level 1-100 (0 keeps previous brightness)")

	thermostatCmd.Flags().String("mode", "", "operating mode: off, heat, cool, auto, aux_heat")
	thermostatCmd.Flags().String("fan", "", "fan mode: auto, on, circulate")
	thermostatCmd.Flags().Int("fan-duration", 0, "fan run time in hours, 0 for indefinite (with --fan)")
	thermostatCmd.Flags().Float64("heat", 0, "heat setpoint in degrees")
	thermostatCmd.Flags().Float64("cool", 0, "cool setpoint in degrees")
}
