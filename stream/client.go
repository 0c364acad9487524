package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// TokenSource supplies the dial URL for the push endpoint. The vendor's
// stream tokens are short-lived, so the client asks for a fresh URL on
// every connection attempt.
type TokenSource interface {
	StreamURL(ctx context.Context) (string, error)
}

// MessageHandler receives classified messages on the read-loop
// goroutine, one at a time, in arrival order.
type MessageHandler interface {
	HandleMessage(msg any)
}

// Logger is the minimal logging surface the stream package needs. A
// *slog.Logger satisfies it, as does the daemon's logging wrapper.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConnectionState describes where the client is in its lifecycle.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDispatching  ConnectionState = "dispatching"
	StateClosed       ConnectionState = "closed"
)

// Defaults applied by NewClient when the matching Config field is zero.
const (
	DefaultKeepAliveInterval = 60 * time.Second
	DefaultMaxMissedPings    = 10
	DefaultHistorySize       = 25

	writeWait = 10 * time.Second
)

// Config wires a Client. Tokens and Handler are required; everything
// else has a sensible default.
type Config struct {
	// Tokens supplies a fresh dial URL per connection attempt.
	Tokens TokenSource

	// Handler receives every classified message.
	Handler MessageHandler

	// OnStateChange, when set, is invoked for connectivity transitions
	// (connecting, connected, disconnected, closed). The per-message
	// dispatching flicker is visible through State() but not announced.
	OnStateChange func(ConnectionState)

	// Logger defaults to a no-op.
	Logger Logger

	// KeepAliveInterval is the gap between pings.
	KeepAliveInterval time.Duration

	// MaxMissedPings tears the connection down once that many pings in a
	// row go unanswered.
	MaxMissedPings int

	// HistorySize bounds the diagnostic ring of raw payloads.
	HistorySize int

	// ReconnectDelay overrides the backoff schedule, which tests need.
	// Defaults to DefaultReconnectDelay.
	ReconnectDelay func(attempt int) time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Client maintains the push connection: dial, keep-alive, reconnect,
// classify, hand off. Run owns the connection; every other method is
// observational and safe from any goroutine.
type Client struct {
	cfg     Config
	history *historyRing

	mu            sync.RWMutex
	state         ConnectionState
	reconnects    uint64
	messages      uint64
	discarded     uint64
	lastMessageAt time.Time
}

// NewClient validates cfg and applies defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, ErrNoTokenSource
	}
	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if cfg.MaxMissedPings <= 0 {
		cfg.MaxMissedPings = DefaultMaxMissedPings
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.ReconnectDelay == nil {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:     cfg,
		state:   StateDisconnected,
		history: newHistoryRing(cfg.HistorySize),
	}, nil
}

// DefaultReconnectDelay returns the backoff before reconnect attempt n
// (1-based): 2n seconds, floored at 10s and capped at 50s.
func DefaultReconnectDelay(attempt int) time.Duration {
	secs := 2 * attempt
	if secs < 10 {
		secs = 10
	}
	if secs > 50 {
		secs = 50
	}
	return time.Duration(secs) * time.Second
}

// Run connects and serves the push feed until ctx is cancelled. Every
// failure reconnects after a backoff; cancellation is the only way out.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateClosed)

	var attempt int
	for {
		c.setState(StateConnecting)
		conn, err := c.connect(ctx)
		if err == nil {
			attempt = 0
			c.setState(StateConnected)
			err = c.serveConn(ctx, conn)
			conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setState(StateDisconnected)
		attempt++
		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()
		delay := c.cfg.ReconnectDelay(attempt)
		c.cfg.Logger.Warn("push connection lost",
			"error", err, "attempt", attempt, "retry_in", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	dialURL, err := c.cfg.Tokens.StreamURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream: fetch dial url: %w", err)
	}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream: dial: %w (http %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("stream: dial: %w", err)
	}
	return conn, nil
}

// serveConn reads until the connection dies. The keep-alive goroutine
// and the cancellation hook both kill the conn, which surfaces here as a
// read error.
func (c *Client) serveConn(ctx context.Context, conn *websocket.Conn) error {
	var missed atomic.Int32
	conn.SetPongHandler(func(string) error {
		missed.Store(0)
		return nil
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.keepAlive(ctx, conn, &missed, pingDone)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.receive(payload)
	}
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, missed *atomic.Int32, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if int(missed.Add(1)) > c.cfg.MaxMissedPings {
				c.cfg.Logger.Warn("keep-alive pongs stopped, dropping connection",
					"missed", c.cfg.MaxMissedPings)
				conn.Close()
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.cfg.Logger.Warn("keep-alive ping failed, dropping connection", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) receive(payload []byte) {
	c.history.add(payload)

	raw, err := decodeRaw(payload)
	if err != nil {
		c.noteDiscard()
		c.cfg.Logger.Warn("undecodable push payload", "error", err)
		return
	}
	msg, err := Classify(raw)
	if err != nil {
		c.noteDiscard()
		c.cfg.Logger.Warn("discarding push message", "error", err)
		return
	}

	c.mu.Lock()
	c.messages++
	c.lastMessageAt = time.Now()
	c.mu.Unlock()

	c.setState(StateDispatching)
	c.cfg.Handler.HandleMessage(msg)
	c.setState(StateConnected)
}

func (c *Client) noteDiscard() {
	c.mu.Lock()
	c.discarded++
	c.mu.Unlock()
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev == s || c.cfg.OnStateChange == nil {
		return
	}
	if s == StateDispatching || (prev == StateDispatching && s == StateConnected) {
		return
	}
	c.cfg.OnStateChange(s)
}

// State returns the current lifecycle state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats is a point-in-time snapshot of the client's counters.
type Stats struct {
	State         ConnectionState
	Reconnects    uint64
	Messages      uint64
	Discarded     uint64
	LastMessageAt time.Time
}

// Stats reports connection health for status surfaces.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		State:         c.state,
		Reconnects:    c.reconnects,
		Messages:      c.messages,
		Discarded:     c.discarded,
		LastMessageAt: c.lastMessageAt,
	}
}

// History returns the retained raw payloads, oldest first.
func (c *Client) History() []HistoryEntry {
	return c.history.snapshot()
}
