package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sentra-bridge/device"
)

// WriteDeviceState records one device snapshot in the device_state
// measurement.
//
// This is the primary method for building state history: every poll diff
// and push update lands here via the Recorder. The write is non-blocking;
// data is batched and sent asynchronously.
//
// Tags carry identity (low cardinality), fields carry the observation.
// The numeric state is written alongside its label so dashboards can
// graph transitions and still render words.
//
// Parameters:
//   - d: Device snapshot to record
//   - at: Observation time; zero falls back to the device's last update
func (c *Client) WriteDeviceState(d *device.Device, at time.Time) {
	if !c.IsConnected() || d == nil {
		return
	}
	if at.IsZero() {
		at = d.LastUpdatedAt
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id":   d.ID,
			"device_type": string(d.Type),
		},
		map[string]interface{}{
			"state":       int64(d.ActualState),
			"label":       d.StateLabel(),
			"low_battery": d.LowBattery,
			"malfunction": d.Malfunction,
			"reconciled":  d.Reconciled(),
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionState records a push-stream connection transition in the
// stream_connection measurement.
//
// Gaps between "connected" points show exactly when the bridge was flying
// blind on polling alone.
func (c *Client) WriteConnectionState(state string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}

	point := write.NewPoint(
		"stream_connection",
		nil,
		map[string]interface{}{
			"state":     state,
			"connected": state == "connected",
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WritePollSummary records one full-poll outcome in the poll measurement.
//
// Parameters:
//   - deviceCount: Devices projected from the poll
//   - status: Poll status label (e.g. "ok", "degraded")
//   - took: Wall-clock poll duration
func (c *Client) WritePollSummary(deviceCount int, status string, took time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"poll",
		map[string]string{
			"status": status,
		},
		map[string]interface{}{
			"device_count": int64(deviceCount),
			"duration_ms":  float64(took.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"component": "stream"},
//	    map[string]interface{}{"messages": 1042, "dropped": 0})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., vendor-reported event
// times).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
