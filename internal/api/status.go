package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/sentra-bridge/device"
)

// StreamStatus is the push stream section of the status report.
type StreamStatus struct {
	State         string    `json:"state"`
	Reconnects    uint64    `json:"reconnects"`
	Messages      uint64    `json:"messages"`
	Discarded     uint64    `json:"discarded"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// DispatchStatus is the message routing section of the status report.
type DispatchStatus struct {
	Dispatched   uint64 `json:"dispatched"`
	Deduplicated uint64 `json:"deduplicated"`
	UnknownCode  uint64 `json:"unknown_code"`
	StaleID      uint64 `json:"stale_id"`
	Unrouted     uint64 `json:"unrouted"`
}

// ExportStatus reports the optional export and history targets.
type ExportStatus struct {
	MQTTConnected   bool `json:"mqtt_connected"`
	InfluxConnected bool `json:"influx_connected"`
	HistoryEnabled  bool `json:"history_enabled"`
}

// StatusResponse is the full /status payload.
type StatusResponse struct {
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	LastPollAt    time.Time           `json:"last_poll_at"`
	PollStatus    string              `json:"poll_status"`
	PollSkipped   []string            `json:"poll_skipped,omitempty"`
	DeviceCount   int                 `json:"device_count"`
	DevicesByType map[device.Type]int `json:"devices_by_type"`
	Stream        StreamStatus        `json:"stream"`
	Dispatch      DispatchStatus      `json:"dispatch"`
	Subscribers   int                 `json:"subscribers"`
	WSClients     int                 `json:"ws_clients"`
	Export        ExportStatus        `json:"export"`
}

// handleStatus returns the operational summary of the bridge and its
// export targets.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	bs := s.bridge.Status()

	resp := StatusResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		LastPollAt:    bs.LastPollAt,
		PollStatus:    string(bs.PollStatus),
		PollSkipped:   bs.PollSkipped,
		DeviceCount:   bs.DeviceCount,
		DevicesByType: bs.DevicesByType,
		Stream: StreamStatus{
			State:         string(bs.Stream.State),
			Reconnects:    bs.Stream.Reconnects,
			Messages:      bs.Stream.Messages,
			Discarded:     bs.Stream.Discarded,
			LastMessageAt: bs.Stream.LastMessageAt,
		},
		Dispatch: DispatchStatus{
			Dispatched:   bs.Dispatch.Dispatched,
			Deduplicated: bs.Dispatch.Deduplicated,
			UnknownCode:  bs.Dispatch.UnknownCode,
			StaleID:      bs.Dispatch.StaleID,
			Unrouted:     bs.Dispatch.Unrouted,
		},
		Subscribers: bs.Subscribers,
		Export: ExportStatus{
			MQTTConnected:   s.mqtt != nil && s.mqtt.IsConnected(),
			InfluxConnected: s.influx != nil && s.influx.IsConnected(),
			HistoryEnabled:  s.history != nil,
		},
	}
	if s.hub != nil {
		resp.WSClients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handlePoll triggers an immediate vendor poll and reports its outcome.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := s.bridge.FetchFullState(r.Context())
	if err != nil {
		PollsTotal.WithLabelValues("error").Inc()
		s.logger.Error("on-demand poll failed", "error", err)
		writeVendorError(w, err)
		return
	}

	PollsTotal.WithLabelValues(string(result.Status)).Inc()
	PollDuration.Observe(time.Since(start).Seconds())
	DevicesCatalogued.Set(float64(s.bridge.Registry().Count()))

	s.logger.Info("on-demand poll complete",
		"status", result.Status,
		"devices", len(result.Devices),
		"took_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     result.Status,
		"devices":    len(result.Devices),
		"skipped":    result.Skipped,
		"fetched_at": result.FetchedAt,
	})
}
