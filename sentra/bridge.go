package sentra

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/events"
	"github.com/nerrad567/sentra-bridge/graph"
	"github.com/nerrad567/sentra-bridge/stream"
)

// BridgeConfig wires a Bridge. Client is required.
type BridgeConfig struct {
	// Client is the authenticated vendor client.
	Client *Client

	// DedupWindow suppresses repeated identical binary-sensor reports.
	// Zero or less disables suppression.
	DedupWindow time.Duration

	// Stream carries push client tuning. Tokens, Handler, OnStateChange
	// and Logger are owned by the Bridge and overwritten.
	Stream stream.Config

	// Logger defaults to a no-op.
	Logger Logger
}

// Bridge binds the vendor client, resource graph, device registry, push
// stream and event broker into one unit presenting a single consistent
// view of the account.
//
// The graph is swapped wholesale per poll under the mutex; push patches
// flow through the stream dispatcher into the registry one at a time, so
// readers never observe a half-applied update.
type Bridge struct {
	client     *Client
	registry   *device.Registry
	broker     *events.Broker
	dispatcher *stream.Dispatcher
	streamC    *stream.Client
	logger     Logger

	mu         sync.RWMutex
	graph      *graph.Graph
	lastPoll   time.Time
	lastStatus PollStatus
	skipped    []string
	stopStream context.CancelFunc
}

// NewBridge builds a Bridge around an authenticated client.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	b := &Bridge{
		client:   cfg.Client,
		registry: device.NewRegistry(cfg.DedupWindow),
		broker:   events.NewBroker(logger),
		logger:   logger,
		graph:    graph.New(),
	}
	b.registry.SetLogger(logger)
	b.dispatcher = stream.NewDispatcher(b, logger)

	sc := cfg.Stream
	sc.Tokens = cfg.Client
	sc.Handler = b.dispatcher
	sc.Logger = logger
	sc.OnStateChange = func(s stream.ConnectionState) {
		b.broker.Publish(events.ConnectionEvent(string(s), time.Now()))
	}
	streamClient, err := stream.NewClient(sc)
	if err != nil {
		return nil, err
	}
	b.streamC = streamClient
	return b, nil
}

// Initialize performs the first full poll so consumers start from a
// complete picture.
func (b *Bridge) Initialize(ctx context.Context) error {
	_, err := b.FetchFullState(ctx)
	return err
}

// FetchFullState polls the account, swaps in the fresh graph, reconciles
// the registry against the projected devices and publishes the diff.
func (b *Bridge) FetchFullState(ctx context.Context) (*PollResult, error) {
	res, err := b.client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.graph = res.Graph
	b.lastPoll = res.FetchedAt
	b.lastStatus = res.Status
	b.skipped = res.Skipped
	b.mu.Unlock()

	diff := b.registry.ReplaceAll(res.Devices)
	b.publishDiff(diff, res.FetchedAt)
	return res, nil
}

func (b *Bridge) publishDiff(diff device.Diff, at time.Time) {
	for _, id := range diff.Added {
		b.publishDevice(events.TopicDeviceAdded, id, at)
	}
	for _, id := range diff.Updated {
		b.publishDevice(events.TopicDeviceUpdated, id, at)
	}
	for _, id := range diff.Removed {
		b.broker.Publish(events.Event{Topic: events.TopicDeviceRemoved, DeviceID: id, At: at})
	}
}

func (b *Bridge) publishDevice(topic events.Topic, id string, at time.Time) {
	d, err := b.registry.Get(id)
	if err != nil {
		return
	}
	b.broker.Publish(events.DeviceEvent(topic, d, at))
}

// StartStream runs the push client until ctx is cancelled or Shutdown is
// called. It blocks, reconnecting as needed; run it on its own goroutine.
func (b *Bridge) StartStream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.stopStream = cancel
	b.mu.Unlock()
	defer cancel()
	return b.streamC.Run(ctx)
}

// Shutdown stops the push stream. Safe to call repeatedly, or with no
// stream running.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	cancel := b.stopStream
	b.stopStream = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// DeviceType reports the registry's type for a pushed device id. Part of
// the stream sink.
func (b *Bridge) DeviceType(id string) (device.Type, bool) {
	d, err := b.registry.Get(id)
	if err != nil {
		return "", false
	}
	return d.Type, true
}

// ApplyState folds a pushed state change into the registry and announces
// accepted changes. Part of the stream sink.
func (b *Bridge) ApplyState(id string, s device.State, at time.Time) (bool, error) {
	accepted, err := b.registry.ApplyState(id, s, at)
	if err != nil || !accepted {
		return accepted, err
	}
	b.publishDevice(events.TopicDeviceUpdated, id, at)
	return true, nil
}

// ApplyAttributes folds pushed attribute changes into the registry. Part
// of the stream sink.
func (b *Bridge) ApplyAttributes(id string, attrs map[string]any, at time.Time) error {
	if err := b.registry.ApplyAttributes(id, attrs, at); err != nil {
		return err
	}
	b.publishDevice(events.TopicDeviceUpdated, id, at)
	return nil
}

// Arm sends the arming command and records the state the partition
// should settle in. The next push or poll confirmation reconciles it.
func (b *Bridge) Arm(ctx context.Context, partitionID string, mode ArmMode, opts ArmOptions) error {
	if err := b.client.Arm(ctx, partitionID, mode, opts); err != nil {
		return err
	}
	b.noteDesired(partitionID, mode.DesiredState())
	return nil
}

// Disarm disarms a partition.
func (b *Bridge) Disarm(ctx context.Context, partitionID string) error {
	if err := b.client.Disarm(ctx, partitionID); err != nil {
		return err
	}
	b.noteDesired(partitionID, device.PartitionDisarmed)
	return nil
}

// ClearFaults clears a partition's sensor fault annunciations.
func (b *Bridge) ClearFaults(ctx context.Context, partitionID string) error {
	return b.client.ClearFaults(ctx, partitionID)
}

// Lock locks a lock.
func (b *Bridge) Lock(ctx context.Context, lockID string) error {
	if err := b.client.Lock(ctx, lockID); err != nil {
		return err
	}
	b.noteDesired(lockID, device.LockLocked)
	return nil
}

// Unlock unlocks a lock.
func (b *Bridge) Unlock(ctx context.Context, lockID string) error {
	if err := b.client.Unlock(ctx, lockID); err != nil {
		return err
	}
	b.noteDesired(lockID, device.LockUnlocked)
	return nil
}

// OpenGarage opens a garage door.
func (b *Bridge) OpenGarage(ctx context.Context, doorID string) error {
	if err := b.client.OpenGarage(ctx, doorID); err != nil {
		return err
	}
	b.noteDesired(doorID, device.GarageOpen)
	return nil
}

// CloseGarage closes a garage door.
func (b *Bridge) CloseGarage(ctx context.Context, doorID string) error {
	if err := b.client.CloseGarage(ctx, doorID); err != nil {
		return err
	}
	b.noteDesired(doorID, device.GarageClosed)
	return nil
}

// LightOn turns a light on, optionally setting brightness.
func (b *Bridge) LightOn(ctx context.Context, lightID string, level int) error {
	if err := b.client.LightOn(ctx, lightID, level); err != nil {
		return err
	}
	b.noteDesired(lightID, device.LightOn)
	return nil
}

// LightOff turns a light off.
func (b *Bridge) LightOff(ctx context.Context, lightID string) error {
	if err := b.client.LightOff(ctx, lightID); err != nil {
		return err
	}
	b.noteDesired(lightID, device.LightOff)
	return nil
}

// SetLightLevel sets dimmer brightness, which also turns the light on.
func (b *Bridge) SetLightLevel(ctx context.Context, lightID string, level int) error {
	if err := b.client.SetLightLevel(ctx, lightID, level); err != nil {
		return err
	}
	b.noteDesired(lightID, device.LightOn)
	return nil
}

// SetThermostat applies one thermostat change.
func (b *Bridge) SetThermostat(ctx context.Context, thermostatID string, settings ThermostatSettings) error {
	if err := b.client.SetThermostat(ctx, thermostatID, settings); err != nil {
		return err
	}
	if settings.Mode != device.StateUnknown {
		b.noteDesired(thermostatID, settings.Mode)
	}
	return nil
}

// noteDesired records the optimistic desired state and announces the
// device so consumers see the pending change.
func (b *Bridge) noteDesired(id string, s device.State) {
	if s == device.StateUnknown {
		return
	}
	if err := b.registry.SetDesired(id, s); err != nil {
		b.logger.Debug("desired state not recorded",
			"device_id", id,
			"error", err)
		return
	}
	b.publishDevice(events.TopicDeviceUpdated, id, time.Now())
}

// Devices returns a copy of every catalogued device.
func (b *Bridge) Devices() []*device.Device {
	return b.registry.List()
}

// Device returns a copy of one device by id.
func (b *Bridge) Device(id string) (*device.Device, error) {
	return b.registry.Get(id)
}

// Registry exposes the device registry.
func (b *Bridge) Registry() *device.Registry {
	return b.registry
}

// Broker exposes the event broker for subscriptions.
func (b *Bridge) Broker() *events.Broker {
	return b.broker
}

// Graph returns the last poll's resource graph. It is replaced wholesale
// by the next poll; treat it as read-only.
func (b *Bridge) Graph() *graph.Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graph
}

// StreamHistory returns the push client's ring of recent raw payloads.
func (b *Bridge) StreamHistory() []stream.HistoryEntry {
	return b.streamC.History()
}

// BridgeStatus is a point-in-time operational summary.
type BridgeStatus struct {
	LastPollAt    time.Time              `json:"last_poll_at"`
	PollStatus    PollStatus             `json:"poll_status"`
	PollSkipped   []string               `json:"poll_skipped,omitempty"`
	DeviceCount   int                    `json:"device_count"`
	DevicesByType map[device.Type]int    `json:"devices_by_type"`
	Stream        stream.Stats           `json:"stream"`
	Dispatch      stream.DispatcherStats `json:"dispatch"`
	Subscribers   int                    `json:"subscribers"`
}

// Status reports bridge health for status surfaces.
func (b *Bridge) Status() BridgeStatus {
	b.mu.RLock()
	lastPoll := b.lastPoll
	status := b.lastStatus
	skipped := append([]string(nil), b.skipped...)
	b.mu.RUnlock()

	return BridgeStatus{
		LastPollAt:    lastPoll,
		PollStatus:    status,
		PollSkipped:   skipped,
		DeviceCount:   b.registry.Count(),
		DevicesByType: b.registry.CountByType(),
		Stream:        b.streamC.Stats(),
		Dispatch:      b.dispatcher.Stats(),
		Subscribers:   b.broker.SubscriberCount(),
	}
}
