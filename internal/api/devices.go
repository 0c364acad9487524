package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/sentra"
)

// handleListDevices returns the device catalogue.
//
// Query parameters:
//   - type: filter by device type (partition, sensor, lock, light,
//     garage_door, thermostat, water_sensor, camera, system)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.bridge.Devices()

	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		t := device.Type(typeStr)
		if !t.Valid() {
			writeBadRequest(w, "unknown device type: "+typeStr)
			return
		}
		filtered := make([]*device.Device, 0, len(devices))
		for _, d := range devices {
			if d.Type == t {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.bridge.Device(id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// ActionRequest is the body of a device action POST.
//
// Action selects the panel command; the remaining fields qualify it and
// are read only by the actions that use them.
type ActionRequest struct {
	Action       string   `json:"action"`
	Mode         string   `json:"mode,omitempty"`
	Level        int      `json:"level,omitempty"`
	ForceBypass  bool     `json:"force_bypass,omitempty"`
	NoEntryDelay bool     `json:"no_entry_delay,omitempty"`
	SilentArming bool     `json:"silent_arming,omitempty"`
	FanMode      *int     `json:"fan_mode,omitempty"`
	FanDuration  int      `json:"fan_duration,omitempty"`
	CoolSetpoint *float64 `json:"cool_setpoint,omitempty"`
	HeatSetpoint *float64 `json:"heat_setpoint,omitempty"`
}

// handleDeviceAction sends a panel command to a device.
//
// This is an asynchronous operation: the vendor accepts the command and
// the response is 202 Accepted. The bridge records the optimistic desired
// state; the confirmed change arrives via the WebSocket event stream.
func (s *Server) handleDeviceAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	// Verify the device is catalogued before talking to the vendor
	if _, err := s.bridge.Device(id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Action == "" {
		writeBadRequest(w, "action field is required")
		return
	}

	var err error
	switch req.Action {
	case "arm":
		mode, ok := parseArmMode(req.Mode)
		if !ok {
			writeBadRequest(w, "arm requires mode stay, away or night")
			return
		}
		err = s.bridge.Arm(ctx, id, mode, sentra.ArmOptions{
			ForceBypass:  req.ForceBypass,
			NoEntryDelay: req.NoEntryDelay,
			SilentArming: req.SilentArming,
		})
	case "disarm":
		err = s.bridge.Disarm(ctx, id)
	case "clear_faults":
		err = s.bridge.ClearFaults(ctx, id)
	case "lock":
		err = s.bridge.Lock(ctx, id)
	case "unlock":
		err = s.bridge.Unlock(ctx, id)
	case "open":
		err = s.bridge.OpenGarage(ctx, id)
	case "close":
		err = s.bridge.CloseGarage(ctx, id)
	case "light_on":
		err = s.bridge.LightOn(ctx, id, req.Level)
	case "light_off":
		err = s.bridge.LightOff(ctx, id)
	case "set_level":
		err = s.bridge.SetLightLevel(ctx, id, req.Level)
	case "set_thermostat":
		settings := sentra.ThermostatSettings{
			FanMode:      req.FanMode,
			FanDuration:  req.FanDuration,
			CoolSetpoint: req.CoolSetpoint,
			HeatSetpoint: req.HeatSetpoint,
		}
		if req.Mode != "" {
			state, ok := parseThermostatMode(req.Mode)
			if !ok {
				writeBadRequest(w, "unknown thermostat mode: "+req.Mode)
				return
			}
			settings.Mode = state
		}
		err = s.bridge.SetThermostat(ctx, id, settings)
	default:
		writeBadRequest(w, "unknown action: "+req.Action)
		return
	}

	if err != nil {
		s.logger.Warn("device action failed",
			"device_id", id,
			"action", req.Action,
			"error", err,
		)
		writeVendorError(w, err)
		return
	}

	s.logger.Info("device action accepted",
		"device_id", id,
		"action", req.Action,
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": "command sent, state update will follow via WebSocket",
	})
}

// parseArmMode maps a request mode word onto the arming command.
func parseArmMode(mode string) (sentra.ArmMode, bool) {
	switch mode {
	case "stay":
		return sentra.ArmStay, true
	case "away":
		return sentra.ArmAway, true
	case "night":
		return sentra.ArmNight, true
	}
	return "", false
}

// parseThermostatMode maps a mode word onto the thermostat state value.
func parseThermostatMode(mode string) (device.State, bool) {
	switch mode {
	case "off":
		return device.ThermostatOff, true
	case "heat":
		return device.ThermostatHeat, true
	case "cool":
		return device.ThermostatCool, true
	case "auto":
		return device.ThermostatAuto, true
	case "aux_heat":
		return device.ThermostatAuxHeat, true
	}
	return device.StateUnknown, false
}
