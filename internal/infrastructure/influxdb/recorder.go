package influxdb

import (
	"github.com/nerrad567/sentra-bridge/events"
)

// Recorder streams bridge events into InfluxDB measurements.
//
// Device additions and updates land in device_state, push-connection
// transitions in stream_connection. Removals are not recorded; the series
// simply stops. The broker delivers synchronously, but handlers write
// through the non-blocking batched WriteAPI, so no buffering layer is
// needed here.
type Recorder struct {
	client      *Client
	unsubscribe func()
}

// NewRecorder builds a recorder over a connected client.
func NewRecorder(client *Client) *Recorder {
	return &Recorder{client: client}
}

// Start subscribes to the broker. Call Stop to detach.
func (r *Recorder) Start(broker *events.Broker) error {
	unsub, err := broker.Subscribe(r.record, events.WithTopics(
		events.TopicDeviceAdded,
		events.TopicDeviceUpdated,
		events.TopicConnection,
	))
	if err != nil {
		return err
	}
	r.unsubscribe = unsub
	return nil
}

// Stop detaches from the broker. Safe to call without Start, and safe to
// call twice.
func (r *Recorder) Stop() {
	if r.unsubscribe == nil {
		return
	}
	r.unsubscribe()
	r.unsubscribe = nil
}

func (r *Recorder) record(ev events.Event) {
	switch ev.Topic {
	case events.TopicDeviceAdded, events.TopicDeviceUpdated:
		if ev.Device != nil {
			r.client.WriteDeviceState(ev.Device, ev.At)
		}
	case events.TopicConnection:
		r.client.WriteConnectionState(ev.Connection, ev.At)
	}
}
