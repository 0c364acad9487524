package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/events"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/history"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/sentra-bridge/sentra"
	"github.com/nerrad567/sentra-bridge/stream"
)

const testToken = "test-token-0123456789abcdef"

// Canned portal documents: one system, one partition, one lock.
const (
	identityDoc   = `{"data": [{"id": 100, "type": "identity", "attributes": {"firstName": "Alex", "timezone": "Europe/London"}}]}`
	systemsDoc    = `{"data": [{"id": "sys-1", "type": "systems/system", "attributes": {"description": "Home"}}]}`
	partitionsDoc = `{"data": [{"id": "p1", "type": "devices/partition", "attributes": {"description": "Main Panel", "state": 1, "desiredState": 1}}]}`
	locksDoc      = `{"data": [{"id": "lock-1", "type": "devices/lock", "attributes": {"description": "Front Door Lock", "state": 1, "desiredState": 1}}]}`
	emptyListDoc  = `{"data": []}`
	wsTokenDoc    = `{"value": "push-token"}`
)

func vendorRoutes() map[string]string {
	return map[string]string{
		"/web/api/identities":           identityDoc,
		"/web/api/systems/systems":      systemsDoc,
		"/web/api/devices/partitions":   partitionsDoc,
		"/web/api/devices/sensors":      emptyListDoc,
		"/web/api/devices/locks":        locksDoc,
		"/web/api/devices/lights":       emptyListDoc,
		"/web/api/devices/garageDoors":  emptyListDoc,
		"/web/api/devices/thermostats":  emptyListDoc,
		"/web/api/devices/waterSensors": emptyListDoc,
		"/web/api/video/cameras":        emptyListDoc,
		"/web/api/websockets/token":     wsTokenDoc,
	}
}

// testBridge builds an initialised Bridge over a canned vendor portal.
// The mux comes back so tests can hang bespoke handlers on extra vendor
// paths (action endpoints, failure injection).
func testBridge(t *testing.T, routes map[string]string) (*sentra.Bridge, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.api+json")
			fmt.Fprint(w, body)
		})
	}
	vendor := httptest.NewServer(mux)
	t.Cleanup(vendor.Close)

	c, err := sentra.NewClient(
		sentra.WithBaseURL(vendor.URL),
		sentra.WithSessionToken("sess-token"),
		sentra.WithRetry(0, time.Millisecond),
		sentra.WithStreamEndpoint("ws://127.0.0.1:1/"),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	b, err := sentra.NewBridge(sentra.BridgeConfig{
		Client: c,
		Stream: stream.Config{
			ReconnectDelay: func(int) time.Duration { return time.Millisecond },
		},
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return b, mux
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testAPIConfig(port int) config.APIConfig {
	return config.APIConfig{
		Host:      "127.0.0.1",
		Port:      port,
		AuthToken: testToken,
		Timeouts: config.APITimeoutConfig{
			Read:  5,
			Write: 5,
			Idle:  5,
		},
	}
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Path:           "/api/v1/events",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
}

// newTestServer wires a Server over b for router-level tests: the hub and
// the broker relay run, but no listener is bound.
func newTestServer(t *testing.T, b *sentra.Bridge, hist *history.Store) *Server {
	t.Helper()

	srv, err := New(Deps{
		Config:  testAPIConfig(0),
		WS:      testWSConfig(),
		Logger:  testLogger(),
		Bridge:  b,
		History: hist,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	go srv.hub.Run(ctx)

	if err := srv.subscribeBridgeEvents(); err != nil {
		t.Fatalf("subscribeBridgeEvents() error = %v", err)
	}
	t.Cleanup(srv.unsubscribe)

	return srv
}

// testServer is the common case: canned portal, no history store.
func testServer(t *testing.T) (*Server, *http.ServeMux) {
	t.Helper()
	b, mux := testBridge(t, vendorRoutes())
	return newTestServer(t, b, nil), mux
}

// authedRequest builds a request carrying the test bearer token.
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// startTestServer runs a Server on a real listener for lifecycle and
// WebSocket tests. Each caller needs a distinct port.
func startTestServer(t *testing.T, port int) (*Server, string) {
	t.Helper()

	b, _ := testBridge(t, vendorRoutes())
	srv, err := New(Deps{
		Config:  testAPIConfig(port),
		WS:      testWSConfig(),
		Logger:  testLogger(),
		Bridge:  b,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	// Give the listener a moment to bind
	time.Sleep(100 * time.Millisecond)
	return srv, fmt.Sprintf("127.0.0.1:%d", port)
}

// ─── Health and Middleware ─────────────────────────────────────────

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
}

// ─── Authentication ────────────────────────────────────────────────

func TestAuth_MissingToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_WrongToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_QueryToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices?token="+testToken, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuth_EmptyConfiguredTokenFailsClosed(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	cfg := testAPIConfig(0)
	cfg.AuthToken = ""
	srv, err := New(Deps{
		Config:  cfg,
		WS:      testWSConfig(),
		Logger:  testLogger(),
		Bridge:  b,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── Device Endpoints ──────────────────────────────────────────────

func TestListDevices(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Devices []*device.Device `json:"devices"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// system + partition + lock
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	if len(resp.Devices) != 3 {
		t.Errorf("len(devices) = %d, want 3", len(resp.Devices))
	}
}

func TestListDevices_FilterByType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices?type=lock", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Devices []*device.Device `json:"devices"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
	if len(resp.Devices) != 1 || resp.Devices[0].ID != "lock-1" {
		t.Errorf("devices = %+v, want just lock-1", resp.Devices)
	}
}

func TestListDevices_UnknownType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices?type=toaster", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices/lock-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var d device.Device
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.ID != "lock-1" {
		t.Errorf("id = %q, want lock-1", d.ID)
	}
	if d.Type != device.TypeLock {
		t.Errorf("type = %q, want lock", d.Type)
	}
	if d.ActualState != device.LockLocked {
		t.Errorf("actual state = %d, want locked (%d)", d.ActualState, device.LockLocked)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices/ghost", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Device Actions ────────────────────────────────────────────────

func TestDeviceAction_Unlock(t *testing.T) {
	b, mux := testBridge(t, vendorRoutes())
	mux.HandleFunc("/web/api/devices/locks/lock-1/unlock", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, emptyListDoc)
	})
	srv := newTestServer(t, b, nil)
	router := srv.buildRouter()

	body := strings.NewReader(`{"action": "unlock"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/lock-1/actions", body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	// The bridge records the optimistic desired state
	d, err := b.Device("lock-1")
	if err != nil {
		t.Fatalf("Device(lock-1) error = %v", err)
	}
	if d.DesiredState == nil || *d.DesiredState != device.LockUnlocked {
		t.Errorf("DesiredState = %v, want unlocked", d.DesiredState)
	}
}

func TestDeviceAction_Arm(t *testing.T) {
	b, mux := testBridge(t, vendorRoutes())
	var gotBody map[string]any
	mux.HandleFunc("/web/api/devices/partitions/p1/armAway", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, emptyListDoc)
	})
	srv := newTestServer(t, b, nil)
	router := srv.buildRouter()

	body := strings.NewReader(`{"action": "arm", "mode": "away", "no_entry_delay": true}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/p1/actions", body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	if gotBody["noEntryDelay"] != true {
		t.Errorf("vendor body = %v, want noEntryDelay true", gotBody)
	}

	d, err := b.Device("p1")
	if err != nil {
		t.Fatalf("Device(p1) error = %v", err)
	}
	if d.DesiredState == nil || *d.DesiredState != device.PartitionArmedAway {
		t.Errorf("DesiredState = %v, want armed away", d.DesiredState)
	}
}

func TestDeviceAction_Validation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", `{`, http.StatusBadRequest},
		{"missing action", `{}`, http.StatusBadRequest},
		{"unknown action", `{"action": "self_destruct"}`, http.StatusBadRequest},
		{"arm without mode", `{"action": "arm"}`, http.StatusBadRequest},
		{"arm with bad mode", `{"action": "arm", "mode": "maximum"}`, http.StatusBadRequest},
		{"level out of range", `{"action": "set_level", "level": 500}`, http.StatusBadRequest},
		{"thermostat no change", `{"action": "set_thermostat"}`, http.StatusBadRequest},
		{"thermostat bad mode", `{"action": "set_thermostat", "mode": "plasma"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/lock-1/actions", strings.NewReader(tt.body)))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDeviceAction_UnknownDevice(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"action": "unlock"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/ghost/actions", body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeviceAction_VendorRejects(t *testing.T) {
	// No unlock route registered: the vendor answers 404, which surfaces
	// as a local 404 rather than a bridge fault.
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"action": "unlock"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/lock-1/actions", body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestDeviceAction_VendorServerError(t *testing.T) {
	b, mux := testBridge(t, vendorRoutes())
	mux.HandleFunc("/web/api/devices/locks/lock-1/lock", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := newTestServer(t, b, nil)
	router := srv.buildRouter()

	body := strings.NewReader(`{"action": "lock"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/devices/lock-1/actions", body))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusBadGateway, w.Body.String())
	}

	var resp Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeVendor {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeVendor)
	}
}

// ─── Status and Poll ───────────────────────────────────────────────

func TestStatus(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.PollStatus != string(sentra.PollClean) {
		t.Errorf("poll_status = %q, want clean", resp.PollStatus)
	}
	if resp.DeviceCount != 3 {
		t.Errorf("device_count = %d, want 3", resp.DeviceCount)
	}
	if resp.DevicesByType[device.TypeLock] != 1 {
		t.Errorf("devices_by_type[lock] = %d, want 1", resp.DevicesByType[device.TypeLock])
	}
	if resp.Stream.State != string(stream.StateDisconnected) {
		t.Errorf("stream.state = %q, want disconnected", resp.Stream.State)
	}
	// The server's own relay is subscribed
	if resp.Subscribers < 1 {
		t.Errorf("subscribers = %d, want at least 1", resp.Subscribers)
	}
	if resp.Export.MQTTConnected || resp.Export.InfluxConnected || resp.Export.HistoryEnabled {
		t.Errorf("export = %+v, want everything off", resp.Export)
	}
}

func TestPoll(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/poll", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != string(sentra.PollClean) {
		t.Errorf("status = %v, want clean", resp["status"])
	}
	if resp["devices"] != float64(3) {
		t.Errorf("devices = %v, want 3", resp["devices"])
	}
}

// ─── History Endpoints ─────────────────────────────────────────────

func testHistoryStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDeviceHistory(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	store := testHistoryStore(t)
	srv := newTestServer(t, b, store)
	router := srv.buildRouter()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lock := &device.Device{ID: "lock-1", Type: device.TypeLock, ActualState: device.LockLocked}
	if err := store.RecordDeviceState(context.Background(), lock, at); err != nil {
		t.Fatalf("RecordDeviceState() error = %v", err)
	}
	lock.ActualState = device.LockUnlocked
	if err := store.RecordDeviceState(context.Background(), lock, at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordDeviceState() error = %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices/lock-1/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		DeviceID string                `json:"device_id"`
		History  []history.DeviceEntry `json:"history"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Newest first
	if resp.History[0].Label != "unlocked" {
		t.Errorf("history[0].label = %q, want unlocked", resp.History[0].Label)
	}
}

func TestDeviceHistory_SinceFilter(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	store := testHistoryStore(t)
	srv := newTestServer(t, b, store)
	router := srv.buildRouter()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lock := &device.Device{ID: "lock-1", Type: device.TypeLock, ActualState: device.LockLocked}
	if err := store.RecordDeviceState(context.Background(), lock, at); err != nil {
		t.Fatalf("RecordDeviceState() error = %v", err)
	}
	lock.ActualState = device.LockUnlocked
	if err := store.RecordDeviceState(context.Background(), lock, at.Add(time.Hour)); err != nil {
		t.Fatalf("RecordDeviceState() error = %v", err)
	}

	target := "/api/v1/devices/lock-1/history?since=" + at.Add(30*time.Minute).Format(time.RFC3339)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestDeviceHistory_Validation(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	store := testHistoryStore(t)
	srv := newTestServer(t, b, store)
	router := srv.buildRouter()

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown device", "/api/v1/devices/ghost/history", http.StatusNotFound},
		{"bad limit", "/api/v1/devices/lock-1/history?limit=banana", http.StatusBadRequest},
		{"zero limit", "/api/v1/devices/lock-1/history?limit=0", http.StatusBadRequest},
		{"limit too large", "/api/v1/devices/lock-1/history?limit=999", http.StatusBadRequest},
		{"bad since", "/api/v1/devices/lock-1/history?since=yesterday", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(http.MethodGet, tt.target, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestDeviceHistory_Unavailable(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/devices/lock-1/history", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestConnectionHistory(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	store := testHistoryStore(t)
	srv := newTestServer(t, b, store)
	router := srv.buildRouter()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordConnection(context.Background(), "connected", at); err != nil {
		t.Fatalf("RecordConnection() error = %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/connection/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		History []history.ConnectionEntry `json:"history"`
		Count   int                       `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.History[0].State != "connected" {
		t.Errorf("history = %+v, want one connected entry", resp.History)
	}
}

func TestConnectionHistory_Unavailable(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/connection/history", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ─── Hub and Event Relay ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"device.updated": {}},
	}
	hub.Register(client)

	hub.Broadcast("device.updated", map[string]any{"device_id": "lock-1"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent {
			t.Errorf("type = %q, want %q", wsMsg.Type, WSTypeEvent)
		}
		if wsMsg.EventType != "device.updated" {
			t.Errorf("event_type = %q, want device.updated", wsMsg.EventType)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"connection.changed": {}},
	}
	hub.Register(client)

	hub.Broadcast("device.updated", map[string]any{"device_id": "lock-1"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK, no message received
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestRelayEvent(t *testing.T) {
	b, _ := testBridge(t, vendorRoutes())
	srv := newTestServer(t, b, nil)

	client := &WSClient{
		hub:  srv.hub,
		send: make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{
			"device.updated":     {},
			"connection.changed": {},
		},
	}
	srv.hub.Register(client)

	// Device update flows through the broker to the hub
	d, err := b.Device("lock-1")
	if err != nil {
		t.Fatalf("Device(lock-1) error = %v", err)
	}
	b.Broker().Publish(events.DeviceEvent(events.TopicDeviceUpdated, d, time.Now()))

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != "device.updated" {
			t.Errorf("event_type = %q, want device.updated", wsMsg.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed device event")
	}

	// Connection transitions carry the state name
	b.Broker().Publish(events.ConnectionEvent("connected", time.Now()))

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != "connection.changed" {
			t.Errorf("event_type = %q, want connection.changed", wsMsg.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed connection event")
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	srv, addr := startTestServer(t, 19180)

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := http.Get("http://" + addr + "/healthz"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_HealthCheckNotStarted(t *testing.T) {
	srv, _ := testServer(t)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() error = nil, want error before Start")
	}
}

func TestNew_RequiresBridge(t *testing.T) {
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() error = nil, want error without bridge")
	}
	if _, err := New(Deps{}); err == nil {
		t.Error("New() error = nil, want error without logger")
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────

func TestWebSocket_FullConnection(t *testing.T) {
	srv, addr := startTestServer(t, 19181)

	wsURL := "ws://" + addr + "/api/v1/events?token=" + testToken
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	// Subscribe to device updates
	subscribeMsg := WSMessage{
		Type: WSTypeSubscribe,
		ID:   "sub-1",
		Payload: WSSubscribePayload{
			Channels: []string{"device.updated"},
		},
	}
	if err := ws.WriteJSON(subscribeMsg); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeResponse {
		t.Errorf("response type = %s, want %s", response.Type, WSTypeResponse)
	}
	if response.ID != "sub-1" {
		t.Errorf("response ID = %s, want sub-1", response.ID)
	}
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}

	// A broker event reaches the subscribed client
	d, err := srv.bridge.Device("lock-1")
	if err != nil {
		t.Fatalf("Device(lock-1) error = %v", err)
	}
	srv.bridge.Broker().Publish(events.DeviceEvent(events.TopicDeviceUpdated, d, time.Now()))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event WSMessage
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %s, want %s", event.Type, WSTypeEvent)
	}
	if event.EventType != "device.updated" {
		t.Errorf("event_type = %s, want device.updated", event.EventType)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	_, addr := startTestServer(t, 19182)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/v1/events?token="+testToken, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if response.Type != WSTypePong {
		t.Errorf("response type = %s, want %s", response.Type, WSTypePong)
	}
	if response.ID != "ping-1" {
		t.Errorf("response ID = %s, want ping-1", response.ID)
	}
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	_, addr := startTestServer(t, 19183)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/v1/events?token="+testToken, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(WSMessage{Type: "teleport"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeError {
		t.Errorf("response type = %s, want %s", response.Type, WSTypeError)
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	_, addr := startTestServer(t, 19184)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/v1/events", nil)
	if err == nil {
		t.Fatal("dial succeeded without token, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", resp)
	}
}

// ─── Request Parsing Helpers ───────────────────────────────────────

func TestParseHistoryLimit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"empty uses default", "", defaultHistoryLimit, false},
		{"explicit", "25", 25, false},
		{"max", "200", 200, false},
		{"over max", "201", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, true},
		{"garbage", "lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHistoryLimit(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHistoryLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHistoryLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseArmMode(t *testing.T) {
	tests := []struct {
		raw  string
		want sentra.ArmMode
		ok   bool
	}{
		{"stay", sentra.ArmStay, true},
		{"away", sentra.ArmAway, true},
		{"night", sentra.ArmNight, true},
		{"", "", false},
		{"armStay", "", false},
	}
	for _, tt := range tests {
		got, ok := parseArmMode(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseArmMode(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseThermostatMode(t *testing.T) {
	tests := []struct {
		raw  string
		want device.State
		ok   bool
	}{
		{"off", device.ThermostatOff, true},
		{"heat", device.ThermostatHeat, true},
		{"cool", device.ThermostatCool, true},
		{"auto", device.ThermostatAuto, true},
		{"aux_heat", device.ThermostatAuxHeat, true},
		{"plasma", device.StateUnknown, false},
	}
	for _, tt := range tests {
		got, ok := parseThermostatMode(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseThermostatMode(%q) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
