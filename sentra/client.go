package sentra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// Client defaults.
const (
	// DefaultBaseURL is the vendor portal root all API paths resolve
	// against.
	DefaultBaseURL = "https://portal.sentrahome.io/"

	// DefaultStreamEndpoint is the push feed dial address. A fresh
	// websocket token is appended as the auth query parameter.
	DefaultStreamEndpoint = "wss://push.sentrahome.io/"

	// DefaultUserAgent identifies this library to the vendor.
	DefaultUserAgent = "sentra-bridge"

	// defaultRetryMax is how many reattempts follow a retryable failure.
	defaultRetryMax = 3

	// defaultRetryWait seeds the exponential backoff between attempts.
	defaultRetryWait = 500 * time.Millisecond

	// maxRetryWait caps the backoff regardless of attempt count.
	maxRetryWait = 30 * time.Second

	// defaultTimeout bounds a single round trip when the caller supplies
	// no HTTP client of their own.
	defaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Logger is the minimal logging interface this package writes to. The
// default discards everything.
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

// Client is an authenticated vendor API client. All methods are safe for
// concurrent use.
type Client struct {
	baseURL        *url.URL
	streamEndpoint string
	sessionToken   string
	userAgent      string
	httpClient     *http.Client
	retryMax       int
	retryWait      time.Duration
	logger         Logger

	pollGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different portal root, most usefully
// an httptest server.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("sentra: parse base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.baseURL = u
		return nil
	}
}

// WithStreamEndpoint overrides the push feed dial address.
func WithStreamEndpoint(raw string) Option {
	return func(c *Client) error {
		c.streamEndpoint = raw
		return nil
	}
}

// WithSessionToken sets the opaque vendor session token. Required.
func WithSessionToken(token string) Option {
	return func(c *Client) error {
		c.sessionToken = token
		return nil
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("sentra: nil HTTP client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// WithRetry adjusts the retry budget: max reattempts after the first try,
// and the wait that seeds the exponential backoff.
func WithRetry(max int, wait time.Duration) Option {
	return func(c *Client) error {
		if max < 0 {
			return errors.New("sentra: negative retry count")
		}
		c.retryMax = max
		if wait > 0 {
			c.retryWait = wait
		}
		return nil
	}
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// NewClient builds a Client. A session token is required; everything else
// has a default.
func NewClient(opts ...Option) (*Client, error) {
	base, err := url.Parse(DefaultBaseURL)
	if err != nil {
		return nil, fmt.Errorf("sentra: parse default base URL: %w", err)
	}
	c := &Client{
		baseURL:        base,
		streamEndpoint: DefaultStreamEndpoint,
		userAgent:      DefaultUserAgent,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		retryMax:       defaultRetryMax,
		retryWait:      defaultRetryWait,
		logger:         noopLogger{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.sessionToken == "" {
		return nil, ErrNoSessionToken
	}
	return c, nil
}

// endpoint resolves a relative API path against the portal root.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// getDocument GETs an API path and parses the JSON:API document.
func (c *Client) getDocument(ctx context.Context, path string, query url.Values) (*jsonapi.Document, error) {
	doc, err := c.do(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("sentra: GET %s: empty response: %w", path, jsonapi.ErrMalformedResponse)
	}
	return doc, nil
}

// postAction POSTs a device action. Every action body carries
// statePollOnly false so the panel executes rather than merely reporting.
func (c *Client) postAction(ctx context.Context, path string, body map[string]any) error {
	payload := map[string]any{"statePollOnly": false}
	for k, v := range body {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sentra: encode action body: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint(path, nil), raw)
	return err
}

// do sends one request, retrying 429 and 5xx responses with exponential
// backoff. A Retry-After header, when present and larger, overrides the
// computed delay.
func (c *Client) do(ctx context.Context, method, rawurl string, body []byte) (*jsonapi.Document, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		doc, retryAfter, err := c.doOnce(ctx, method, rawurl, body)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable(err) || attempt >= c.retryMax {
			return nil, lastErr
		}
		delay := c.retryWait << attempt
		if delay <= 0 || delay > maxRetryWait {
			delay = maxRetryWait
		}
		if retryAfter > delay {
			delay = retryAfter
		}
		c.logger.Warn("retrying vendor request",
			"method", method,
			"url", rawurl,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// retryable reports whether err is worth reattempting.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer)
}

func (c *Client) doOnce(ctx context.Context, method, rawurl string, body []byte) (*jsonapi.Document, time.Duration, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawurl, rd)
	if err != nil {
		return nil, 0, fmt.Errorf("sentra: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("sentra: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("sentra: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, 0, nil
		}
		doc, err := jsonapi.ParseDocument(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("sentra: %s %s: %w", method, req.URL.Path, err)
		}
		return doc, 0, nil
	}

	verr := &VendorError{StatusCode: resp.StatusCode}
	if doc, perr := jsonapi.ParseDocument(raw); perr == nil {
		verr.Errors = doc.Errors
	}
	return nil, retryAfterHint(resp.Header), verr
}

// retryAfterHint parses a Retry-After header as delta seconds or an HTTP
// date. Zero means no hint.
func retryAfterHint(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
