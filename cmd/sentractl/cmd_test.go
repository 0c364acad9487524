package main

import (
	"strings"
	"testing"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/sentra"
)

// Test command initialisation and registration
func TestCommandsRegistered(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"devices":      false,
		"watch":        false,
		"arm":          false,
		"disarm":       false,
		"clear-faults": false,
		"lock":         false,
		"unlock":       false,
		"garage":       false,
		"light":        false,
		"thermostat":   false,
		"version":      false,
	}

	for _, cmd := range commands {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expectedCommands[name]; ok {
			expectedCommands[name] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestDevicesCommandHasSubcommands(t *testing.T) {
	if devicesCmd == nil {
		t.Fatal("devicesCmd should not be nil")
	}

	subcommands := devicesCmd.Commands()
	hasList := false
	hasGet := false
	for _, cmd := range subcommands {
		switch strings.Fields(cmd.Use)[0] {
		case "list":
			hasList = true
		case "get":
			hasGet = true
		}
	}

	if !hasList {
		t.Error("devices command should have 'list' subcommand")
	}
	if !hasGet {
		t.Error("devices command should have 'get' subcommand")
	}
}

func TestLightCommandHasSubcommands(t *testing.T) {
	subcommands := lightCmd.Commands()
	expectedCommands := map[string]bool{
		"on":    false,
		"off":   false,
		"level": false,
	}

	for _, cmd := range subcommands {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expectedCommands[name]; ok {
			expectedCommands[name] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("light command should have '%s' subcommand", cmdName)
		}
	}
}

func TestGarageCommandHasSubcommands(t *testing.T) {
	subcommands := garageCmd.Commands()
	hasOpen := false
	hasClose := false
	for _, cmd := range subcommands {
		switch strings.Fields(cmd.Use)[0] {
		case "open":
			hasOpen = true
		case "close":
			hasClose = true
		}
	}

	if !hasOpen {
		t.Error("garage command should have 'open' subcommand")
	}
	if !hasClose {
		t.Error("garage command should have 'close' subcommand")
	}
}

func TestGlobalFlags(t *testing.T) {
	flags := []string{"base-url", "token", "timeout", "output", "verbose"}
	for _, flagName := range flags {
		flag := rootCmd.PersistentFlags().Lookup(flagName)
		if flag == nil {
			t.Errorf("expected global flag '%s' to be defined", flagName)
		}
	}
}

func TestArmCommandFlags(t *testing.T) {
	flags := []string{"mode", "force-bypass", "no-entry-delay", "silent"}
	for _, flagName := range flags {
		flag := armCmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("expected flag '%s' to be defined on arm command", flagName)
		}
	}
}

func TestThermostatCommandFlags(t *testing.T) {
	flags := []string{"mode", "fan", "fan-duration", "heat", "cool"}
	for _, flagName := range flags {
		flag := thermostatCmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("expected flag '%s' to be defined on thermostat command", flagName)
		}
	}
}

// ─── Parse Helpers ─────────────────────────────────────────────────

func TestParseArmMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    sentra.ArmMode
		wantErr bool
	}{
		{"stay", sentra.ArmStay, false},
		{"away", sentra.ArmAway, false},
		{"night", sentra.ArmNight, false},
		{"", "", true},
		{"maximum", "", true},
	}
	for _, tt := range tests {
		got, err := parseArmMode(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArmMode(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseArmMode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseThermostatMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    device.State
		wantErr bool
	}{
		{"off", device.ThermostatOff, false},
		{"heat", device.ThermostatHeat, false},
		{"cool", device.ThermostatCool, false},
		{"auto", device.ThermostatAuto, false},
		{"aux_heat", device.ThermostatAuxHeat, false},
		{"plasma", device.StateUnknown, true},
	}
	for _, tt := range tests {
		got, err := parseThermostatMode(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseThermostatMode(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseThermostatMode(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseFanMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"auto", sentra.FanAuto, false},
		{"on", sentra.FanAlwaysOn, false},
		{"circulate", sentra.FanCirculate, false},
		{"blast", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFanMode(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFanMode(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFanMode(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

// ─── Device Rendering Helpers ──────────────────────────────────────

func TestPendingLabel(t *testing.T) {
	locked := device.LockLocked
	unlocked := device.LockUnlocked

	reconciled := &device.Device{Type: device.TypeLock, ActualState: locked, DesiredState: &locked}
	if got := pendingLabel(reconciled); got != "" {
		t.Errorf("pendingLabel(reconciled) = %q, want empty", got)
	}

	pending := &device.Device{Type: device.TypeLock, ActualState: locked, DesiredState: &unlocked}
	if got := pendingLabel(pending); got != "unlocked" {
		t.Errorf("pendingLabel(pending) = %q, want unlocked", got)
	}
}

func TestFlagsLabel(t *testing.T) {
	clean := &device.Device{}
	if got := flagsLabel(clean); got != "" {
		t.Errorf("flagsLabel(clean) = %q, want empty", got)
	}

	both := &device.Device{LowBattery: true, Malfunction: true}
	if got := flagsLabel(both); got != "low-battery,malfunction" {
		t.Errorf("flagsLabel(both) = %q, want low-battery,malfunction", got)
	}
}

func TestSessionToken_MissingEverywhere(t *testing.T) {
	origFlag := flagToken
	defer func() { flagToken = origFlag }()
	flagToken = ""
	t.Setenv("SENTRA_SESSION_TOKEN", "")

	if _, err := sessionToken(); err == nil {
		t.Error("sessionToken() error = nil, want error with no token configured")
	}
}

func TestSessionToken_FlagWinsOverEnv(t *testing.T) {
	origFlag := flagToken
	defer func() { flagToken = origFlag }()
	flagToken = "flag-token"
	t.Setenv("SENTRA_SESSION_TOKEN", "env-token")

	got, err := sessionToken()
	if err != nil {
		t.Fatalf("sessionToken() error = %v", err)
	}
	if got != "flag-token" {
		t.Errorf("sessionToken() = %q, want flag-token", got)
	}
}
