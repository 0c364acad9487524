package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/events"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
)

// republishQueueSize bounds the buffer between the event broker and the
// publish worker. The broker delivers synchronously, so the buffer is what
// keeps a slow MQTT broker from stalling the bridge's poll loop. 256 covers
// a full-account diff several times over.
const republishQueueSize = 256

// Conn is the slice of the MQTT client the republisher publishes through.
// *Client satisfies it; tests substitute a recorder.
type Conn interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Source is the view of the device bridge the republisher mirrors.
type Source interface {
	// Devices returns a snapshot of every catalogued device.
	Devices() []*device.Device

	// Broker exposes the event broker the republisher subscribes to.
	Broker() *events.Broker
}

// RefreshFunc triggers a full vendor poll in response to a message on the
// refresh topic. The context is the republisher's Start context.
type RefreshFunc func(ctx context.Context) error

// Republisher mirrors the bridge's device registry onto retained MQTT
// topics so dashboards and automations can consume panel state without
// touching the vendor API.
//
// Topic layout (see Topics):
//   - {prefix}/{type}/{id}/state       retained state summary (JSON)
//   - {prefix}/{type}/{id}/attributes  retained raw vendor attributes
//   - {prefix}/bridge/connection       retained push-connection status
//   - {prefix}/bridge/refresh          incoming poll trigger
//
// Event handling runs on a single worker goroutine fed through a bounded
// queue; when the queue overflows, events are dropped and counted, and the
// next full snapshot heals the gap. The bridge availability topic is owned
// by Client, not duplicated here.
type Republisher struct {
	conn    Conn
	source  Source
	topics  Topics
	qos     byte
	retain  bool
	logger  Logger
	refresh RefreshFunc

	// types remembers each device's type so retained topics can be
	// cleared after removal, when the registry no longer knows it.
	mu      sync.Mutex
	types   map[string]device.Type
	dropped uint64

	queue       chan events.Event
	quit        chan struct{}
	stopfin     chan struct{}
	unsubscribe func()
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// NewRepublisher builds a republisher over an established connection.
//
// Parameters:
//   - conn: Connected MQTT client (or test double)
//   - source: Device bridge exposing Devices() and Broker()
//   - cfg: MQTT configuration (topic prefix, QoS, retain flag)
//   - logger: Optional logger; nil logs nowhere
//
// Call Start to begin mirroring and Stop to tear it down.
func NewRepublisher(conn Conn, source Source, cfg config.MQTTConfig, logger Logger) *Republisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Republisher{
		conn:    conn,
		source:  source,
		topics:  Topics{Prefix: cfg.TopicPrefix},
		qos:     byte(cfg.QoS),
		retain:  cfg.Retain,
		logger:  logger,
		types:   make(map[string]device.Type),
		queue:   make(chan events.Event, republishQueueSize),
		quit:    make(chan struct{}),
		stopfin: make(chan struct{}),
	}
}

// SetRefresh registers the callback invoked when a message arrives on the
// refresh topic. Call before Start; without it the refresh topic is not
// subscribed.
func (r *Republisher) SetRefresh(fn RefreshFunc) {
	r.refresh = fn
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start begins mirroring the source onto MQTT.
//
// It subscribes to the event broker first so nothing is missed, publishes
// a retained snapshot of every known device, subscribes to the refresh
// topic, then launches the worker that drains the event queue. Events that
// arrive during the snapshot wait in the queue and replay afterwards;
// republishing the same retained state is harmless.
//
// The context bounds refresh polls triggered over MQTT. Start does not
// block; call Stop to shut down.
func (r *Republisher) Start(ctx context.Context) error {
	unsub, err := r.source.Broker().Subscribe(r.enqueue)
	if err != nil {
		return err
	}
	r.unsubscribe = unsub

	for _, d := range r.source.Devices() {
		r.publishDevice(d)
	}

	if r.refresh != nil {
		handler := func(topic string, payload []byte) error {
			if err := r.refresh(ctx); err != nil {
				r.logger.Warn("refresh request failed", "error", err)
			}
			return nil
		}
		if err := r.conn.Subscribe(r.topics.Refresh(), r.qos, handler); err != nil {
			unsub()
			r.unsubscribe = nil
			return fmt.Errorf("subscribe refresh topic: %w", err)
		}
	}

	go r.run()
	return nil
}

// Stop tears the mirror down: the broker subscription goes first so no new
// events arrive, then the refresh subscription, then the worker. Events
// still queued are discarded; retained topics are republished on the next
// Start. Safe to call without Start, and safe to call twice.
func (r *Republisher) Stop() {
	if r.unsubscribe == nil {
		return
	}
	r.unsubscribe()
	r.unsubscribe = nil

	if r.refresh != nil {
		if err := r.conn.Unsubscribe(r.topics.Refresh()); err != nil && !errors.Is(err, ErrNotConnected) {
			r.logger.Warn("refresh topic unsubscribe failed", "error", err)
		}
	}

	close(r.quit)
	<-r.stopfin
}

// Dropped reports how many events the bounded queue has discarded.
func (r *Republisher) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// =============================================================================
// Event Flow
// =============================================================================

// enqueue hands an event to the worker without blocking the broker. The
// broker delivers on the publisher's goroutine, so this must return
// immediately even when the MQTT broker is slow or down.
func (r *Republisher) enqueue(ev events.Event) {
	select {
	case r.queue <- ev:
	default:
		r.mu.Lock()
		r.dropped++
		total := r.dropped
		r.mu.Unlock()
		r.logger.Warn("republish queue full, event dropped",
			"topic", string(ev.Topic),
			"device_id", ev.DeviceID,
			"dropped_total", total)
	}
}

func (r *Republisher) run() {
	defer close(r.stopfin)
	for {
		select {
		case <-r.quit:
			return
		case ev := <-r.queue:
			r.handleEvent(ev)
		}
	}
}

func (r *Republisher) handleEvent(ev events.Event) {
	switch ev.Topic {
	case events.TopicDeviceAdded, events.TopicDeviceUpdated:
		if ev.Device != nil {
			r.publishDevice(ev.Device)
		}
	case events.TopicDeviceRemoved:
		r.clearDevice(ev.DeviceID)
	case events.TopicConnection:
		r.publishConnection(ev.Connection, ev.At)
	}
}

// =============================================================================
// Publishing
// =============================================================================

// statePayload is the JSON shape published to device state topics. States
// are published as words, not wire integers, so payloads are readable in
// any broker explorer.
type statePayload struct {
	ID           string      `json:"id"`
	Type         device.Type `json:"type"`
	Name         string      `json:"name"`
	State        string      `json:"state"`
	DesiredState string      `json:"desired_state,omitempty"`
	Reconciled   bool        `json:"reconciled"`
	LowBattery   bool        `json:"low_battery"`
	Malfunction  bool        `json:"malfunction"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (r *Republisher) publishDevice(d *device.Device) {
	r.mu.Lock()
	r.types[d.ID] = d.Type
	r.mu.Unlock()

	p := statePayload{
		ID:          d.ID,
		Type:        d.Type,
		Name:        d.Name,
		State:       d.StateLabel(),
		Reconciled:  d.Reconciled(),
		LowBattery:  d.LowBattery,
		Malfunction: d.Malfunction,
		UpdatedAt:   d.LastUpdatedAt,
	}
	if d.DesiredState != nil {
		p.DesiredState = device.StateLabel(d.Type, *d.DesiredState)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		r.logger.Error("state payload marshal failed", "device_id", d.ID, "error", err)
		return
	}
	if err := r.conn.Publish(r.topics.DeviceState(string(d.Type), d.ID), payload, r.qos, r.retain); err != nil {
		r.logger.Warn("state publish failed", "device_id", d.ID, "error", err)
	}

	if len(d.RawAttributes) == 0 {
		return
	}
	attrs, err := json.Marshal(d.RawAttributes)
	if err != nil {
		r.logger.Error("attribute payload marshal failed", "device_id", d.ID, "error", err)
		return
	}
	if err := r.conn.Publish(r.topics.DeviceAttributes(string(d.Type), d.ID), attrs, r.qos, r.retain); err != nil {
		r.logger.Warn("attribute publish failed", "device_id", d.ID, "error", err)
	}
}

// clearDevice deletes a removed device's retained topics by publishing
// zero-byte retained payloads, the MQTT convention for discarding a
// retained message. Removal events carry no device snapshot, hence the
// types map.
func (r *Republisher) clearDevice(id string) {
	r.mu.Lock()
	typ, ok := r.types[id]
	delete(r.types, id)
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("removed device has no recorded type, retained topics left in place",
			"device_id", id)
		return
	}
	if err := r.conn.Publish(r.topics.DeviceState(string(typ), id), nil, r.qos, true); err != nil {
		r.logger.Warn("state topic clear failed", "device_id", id, "error", err)
	}
	if err := r.conn.Publish(r.topics.DeviceAttributes(string(typ), id), nil, r.qos, true); err != nil {
		r.logger.Warn("attribute topic clear failed", "device_id", id, "error", err)
	}
}

func (r *Republisher) publishConnection(state string, at time.Time) {
	payload := fmt.Sprintf(`{"state":%q,"timestamp":%q}`,
		state, at.UTC().Format(time.RFC3339))
	if err := r.conn.Publish(r.topics.Connection(), []byte(payload), r.qos, true); err != nil {
		r.logger.Warn("connection status publish failed", "error", err)
	}
}
