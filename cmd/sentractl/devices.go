package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sentra-bridge/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and inspect devices",
	Long:  "Query the device catalogue: sensors, partitions, locks, lights, garage doors, thermostats and cameras",
}

var devicesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all devices",
	Long:    "Fetch the full account state and list every catalogued device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, err := newVendorBridge()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := bridge.Initialize(ctx); err != nil {
			return fmt.Errorf("fetching account state: %w", err)
		}

		devices := bridge.Devices()

		typeFilter, _ := cmd.Flags().GetString("type")
		if typeFilter != "" {
			t := device.Type(typeFilter)
			if !t.Valid() {
				return fmt.Errorf("unknown device type %q", typeFilter)
			}
			filtered := devices[:0]
			for _, d := range devices {
				if d.Type == t {
					filtered = append(filtered, d)
				}
			}
			devices = filtered
		}

		if flagOutput == "json" {
			return printJSON(devices)
		}

		if len(devices) == 0 {
			fmt.Println("No devices found")
			return nil
		}

		tbl := newTable("ID", "TYPE", "NAME", "STATE", "PENDING", "FLAGS")
		for _, d := range devices {
			tbl.addRow(d.ID, string(d.Type), d.Name, d.StateLabel(), pendingLabel(d), flagsLabel(d))
		}
		tbl.render()
		return nil
	},
}

var devicesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one device in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		bridge, err := newVendorBridge()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		if err := bridge.Initialize(ctx); err != nil {
			return fmt.Errorf("fetching account state: %w", err)
		}

		d, err := bridge.Device(args[0])
		if err != nil {
			return fmt.Errorf("device %q: %w", args[0], err)
		}

		if flagOutput == "json" {
			return printJSON(d)
		}

		fmt.Printf("ID:      %s\n", d.ID)
		fmt.Printf("Type:    %s\n", d.Type)
		fmt.Printf("Name:    %s\n", d.Name)
		fmt.Printf("State:   %s\n", d.StateLabel())
		if !d.Reconciled() {
			fmt.Printf("Pending: %s (since %s)\n", device.StateLabel(d.Type, *d.DesiredState), desiredSince(d))
		}
		fmt.Printf("Battery: %s\n", boolLabel(d.LowBattery, "LOW", "ok"))
		fmt.Printf("Fault:   %s\n", boolLabel(d.Malfunction, "MALFUNCTION", "none"))
		if !d.LastUpdatedAt.IsZero() {
			fmt.Printf("Updated: %s\n", d.LastUpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func pendingLabel(d *device.Device) string {
	if d.Reconciled() {
		return ""
	}
	return device.StateLabel(d.Type, *d.DesiredState)
}

func flagsLabel(d *device.Device) string {
	var flags []string
	if d.LowBattery {
		flags = append(flags, "low-battery")
	}
	if d.Malfunction {
		flags = append(flags, "malfunction")
	}
	return strings.Join(flags, ",")
}

func boolLabel(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func desiredSince(d *device.Device) string {
	if d.DesiredSince == nil {
		return "unknown"
	}
	return d.DesiredSince.Local().Format(time.RFC3339)
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesGetCmd)

	devicesListCmd.Flags().StringP("type", "t", "", "filter by device type (partition, sensor, lock, light, garage_door, thermostat, water_sensor, camera, system)")
}
