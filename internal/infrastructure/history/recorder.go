package history

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/sentra-bridge/events"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
)

// Recorder tuning constants.
const (
	// recorderQueueSize bounds the buffer between the event broker and
	// the write worker. The broker delivers synchronously, so the buffer
	// is what keeps a lock-contended database from stalling the bridge's
	// poll loop.
	recorderQueueSize = 256

	// writeTimeout bounds a single history insert.
	writeTimeout = 5 * time.Second

	// pruneTimeout bounds a retention sweep. The first sweep after a long
	// downtime can delete a lot of rows.
	pruneTimeout = time.Minute

	// pruneInterval is how often the retention sweep runs. Short enough
	// that daemons restarted daily still prune.
	pruneInterval = 6 * time.Hour

	// hoursPerDay converts the configured retention to a duration.
	hoursPerDay = 24
)

// Logger is the minimal logging surface the recorder needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder streams bridge events into the history store.
//
// Device additions and updates land in device_history, push-connection
// transitions in connection_history. Removals are not recorded; the
// device's rows simply stop growing and age out with retention.
//
// Unlike the InfluxDB recorder, writes here are synchronous SQLite
// statements, so they run on a worker goroutine fed through a bounded
// queue rather than on the broker's delivery goroutine. The same worker
// runs the retention sweep.
type Recorder struct {
	store     *Store
	retention time.Duration
	logger    Logger

	mu      sync.Mutex
	dropped uint64

	queue       chan events.Event
	quit        chan struct{}
	stopfin     chan struct{}
	unsubscribe func()
}

// NewRecorder builds a recorder over an open store.
//
// Parameters:
//   - store: Open history store
//   - cfg: History configuration (retention)
//   - logger: Optional logger; nil logs nowhere
//
// Call Start to begin recording and Stop to tear it down.
func NewRecorder(store *Store, cfg config.HistoryConfig, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		store:     store,
		retention: time.Duration(cfg.RetentionDays) * hoursPerDay * time.Hour,
		logger:    logger,
		queue:     make(chan events.Event, recorderQueueSize),
		quit:      make(chan struct{}),
		stopfin:   make(chan struct{}),
	}
}

// Start subscribes to the broker and launches the write worker. When
// retention is configured the worker prunes once at startup and then on
// an interval.
//
// The context bounds database writes; cancel it only after Stop, or
// in-flight inserts fail as cancelled.
func (r *Recorder) Start(ctx context.Context, broker *events.Broker) error {
	unsub, err := broker.Subscribe(r.enqueue, events.WithTopics(
		events.TopicDeviceAdded,
		events.TopicDeviceUpdated,
		events.TopicConnection,
	))
	if err != nil {
		return err
	}
	r.unsubscribe = unsub

	go r.run(ctx)
	return nil
}

// Stop detaches from the broker and waits for the worker to exit. Events
// still queued are discarded. Safe to call without Start, and safe to
// call twice.
func (r *Recorder) Stop() {
	if r.unsubscribe == nil {
		return
	}
	r.unsubscribe()
	r.unsubscribe = nil

	close(r.quit)
	<-r.stopfin
}

// Dropped reports how many events the bounded queue has discarded.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// enqueue hands an event to the worker without blocking the broker.
func (r *Recorder) enqueue(ev events.Event) {
	select {
	case r.queue <- ev:
	default:
		r.mu.Lock()
		r.dropped++
		total := r.dropped
		r.mu.Unlock()
		r.logger.Warn("history queue full, event dropped",
			"topic", string(ev.Topic),
			"device_id", ev.DeviceID,
			"dropped_total", total)
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.stopfin)

	var sweep <-chan time.Time
	if r.retention > 0 {
		r.prune(ctx)
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-r.quit:
			return
		case <-sweep:
			r.prune(ctx)
		case ev := <-r.queue:
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev events.Event) {
	opCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	switch ev.Topic {
	case events.TopicDeviceAdded, events.TopicDeviceUpdated:
		if ev.Device == nil {
			return
		}
		if err := r.store.RecordDeviceState(opCtx, ev.Device, ev.At); err != nil {
			r.logger.Error("recording device history",
				"device_id", ev.DeviceID, "error", err)
		}
	case events.TopicConnection:
		if err := r.store.RecordConnection(opCtx, ev.Connection, ev.At); err != nil {
			r.logger.Error("recording connection history",
				"state", ev.Connection, "error", err)
		}
	}
}

func (r *Recorder) prune(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	if _, err := r.store.Prune(opCtx, r.retention); err != nil {
		r.logger.Error("pruning history", "error", err)
	}
}
