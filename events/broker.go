package events

import (
	"errors"
	"sync"
	"time"
)

// ErrNilHandler is returned by Subscribe when no handler is given.
var ErrNilHandler = errors.New("events: handler cannot be nil")

// Handler receives events on the publisher's goroutine. Handlers should
// not block; anything slow belongs on the subscriber's own goroutine.
type Handler func(Event)

// Logger is the minimal logging surface the broker needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type subscription struct {
	handler   Handler
	topics    map[Topic]struct{}
	deviceIDs map[string]struct{}
}

func (s *subscription) matches(ev Event) bool {
	if s.topics != nil {
		if _, ok := s.topics[ev.Topic]; !ok {
			return false
		}
	}
	if s.deviceIDs != nil {
		if _, ok := s.deviceIDs[ev.DeviceID]; !ok {
			return false
		}
	}
	return true
}

// SubscribeOption narrows a subscription.
type SubscribeOption func(*subscription)

// WithTopics limits delivery to the named topics.
func WithTopics(topics ...Topic) SubscribeOption {
	return func(s *subscription) {
		s.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}
}

// WithDeviceIDs limits delivery to events about the given devices.
// Events carrying no device id, such as connection changes, are dropped
// by this filter; subscribe separately for those.
func WithDeviceIDs(ids ...string) SubscribeOption {
	return func(s *subscription) {
		s.deviceIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			s.deviceIDs[id] = struct{}{}
		}
	}
}

// Broker fans events out to subscribers. Delivery is synchronous and in
// no particular order across subscribers.
type Broker struct {
	logger Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
}

// NewBroker builds a broker. A nil logger logs nowhere.
func NewBroker(logger Logger) *Broker {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Broker{
		logger: logger,
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe registers handler and returns the matching unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Broker) Subscribe(handler Handler, opts ...SubscribeOption) (func(), error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	sub := &subscription{handler: handler}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

// Publish delivers ev to every matching subscriber. A zero At is
// stamped with the current time. Panicking handlers are logged and
// skipped so one bad subscriber cannot starve the rest.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.deliver(sub, ev)
	}
}

func (b *Broker) deliver(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic recovered",
				"topic", string(ev.Topic), "device_id", ev.DeviceID, "panic", r)
		}
	}()
	sub.handler(ev)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
