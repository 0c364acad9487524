// Sentra Bridge - Home Security Panel Gateway
//
// This is the main entry point for the sentra-bridge daemon. It maintains
// a live mirror of a Sentra-monitored security system and exposes it to
// local consumers:
//   - REST + WebSocket API for dashboards and the sentractl CLI
//   - Retained MQTT topics for home-automation platforms
//   - Optional InfluxDB and SQLite history for long-term state records
//
// The vendor portal remains the source of truth; the daemon holds no
// authority over the panel beyond relaying commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/sentra-bridge/internal/api"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/history"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/sentra-bridge/sentra"
	"github.com/nerrad567/sentra-bridge/stream"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Sentra Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the vendor bridge and take the first full poll. A daemon that
	// cannot reach the portal at startup has nothing to serve.
	bridge, err := buildBridge(cfg, log)
	if err != nil {
		return fmt.Errorf("building vendor bridge: %w", err)
	}
	if err := bridge.Initialize(ctx); err != nil {
		return fmt.Errorf("initial vendor poll: %w", err)
	}
	log.Info("device catalogue initialised", "devices", bridge.Registry().Count())

	// Open local history store (optional)
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer func() {
			log.Info("closing history store")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing history store", "error", closeErr)
			}
		}()
		log.Info("history store opened", "path", store.Path())

		recorder := history.NewRecorder(store, cfg.History, log)
		if startErr := recorder.Start(ctx, bridge.Broker()); startErr != nil {
			return fmt.Errorf("starting history recorder: %w", startErr)
		}
		defer recorder.Stop()
	} else {
		log.Info("history disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		republisher := mqtt.NewRepublisher(mqttClient, bridge, cfg.MQTT, log)
		republisher.SetRefresh(func(ctx context.Context) error {
			_, refreshErr := bridge.FetchFullState(ctx)
			return refreshErr
		})
		if startErr := republisher.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT republisher: %w", startErr)
		}
		defer republisher.Stop()
	} else {
		log.Info("MQTT export disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		recorder := influxdb.NewRecorder(influxClient)
		if startErr := recorder.Start(bridge.Broker()); startErr != nil {
			return fmt.Errorf("starting InfluxDB recorder: %w", startErr)
		}
		defer recorder.Stop()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the REST + WebSocket API
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Bridge:  bridge,
		History: store,
		MQTT:    mqttClient,
		Influx:  influxClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)

	// Start the push event stream (if enabled)
	if cfg.Stream.Enabled {
		go func() {
			if streamErr := bridge.StartStream(ctx); streamErr != nil && !errors.Is(streamErr, context.Canceled) {
				log.Error("push stream stopped", "error", streamErr)
			}
		}()
		defer bridge.Shutdown()
		log.Info("push stream started")
	} else {
		log.Info("push stream disabled")
	}

	// Scheduled polls catch whatever the push stream missed
	go pollLoop(ctx, bridge, cfg.GetPollInterval(), log)
	log.Info("poll scheduler started", "interval", cfg.GetPollInterval())

	// Verify all connections are healthy
	if err := healthCheck(ctx, store, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Push stream
	// 2. API server
	// 3. InfluxDB recorder and client (if enabled)
	// 4. MQTT republisher and client (if enabled)
	// 5. History recorder and store (if enabled)

	log.Info("Sentra Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SENTRABRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENTRABRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildBridge constructs the vendor client and bridge from configuration.
//
// Parameters:
//   - cfg: Application configuration
//   - log: Logger instance
//
// Returns:
//   - *sentra.Bridge: Bridge ready for Initialize
//   - error: If the client or bridge cannot be constructed
func buildBridge(cfg *config.Config, log *logging.Logger) (*sentra.Bridge, error) {
	opts := []sentra.Option{
		sentra.WithBaseURL(cfg.Vendor.BaseURL),
		sentra.WithSessionToken(cfg.Vendor.SessionToken),
		sentra.WithUserAgent(cfg.Vendor.UserAgent),
		sentra.WithRetry(cfg.Vendor.Retry.Max, cfg.GetRetryWait()),
		sentra.WithHTTPClient(&http.Client{Timeout: cfg.GetVendorTimeout()}),
		sentra.WithLogger(log),
	}
	if cfg.Vendor.StreamURL != "" {
		opts = append(opts, sentra.WithStreamEndpoint(cfg.Vendor.StreamURL))
	}

	client, err := sentra.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vendor client: %w", err)
	}

	bridge, err := sentra.NewBridge(sentra.BridgeConfig{
		Client:      client,
		DedupWindow: cfg.GetDedupWindow(),
		Stream: stream.Config{
			KeepAliveInterval: cfg.GetKeepAliveInterval(),
			MaxMissedPings:    cfg.Stream.MaxMissedPings,
			HistorySize:       cfg.Stream.HistorySize,
		},
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}
	return bridge, nil
}

// pollLoop runs scheduled full polls until the context is cancelled. The
// push stream carries most updates; the poll catches membership changes
// and anything dropped while reconnecting.
//
// Parameters:
//   - ctx: Context for cancellation
//   - bridge: Bridge to poll through
//   - interval: Gap between polls
//   - log: Logger instance
func pollLoop(ctx context.Context, bridge *sentra.Bridge, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			result, err := bridge.FetchFullState(ctx)
			if err != nil {
				api.PollsTotal.WithLabelValues("error").Inc()
				log.Error("scheduled poll failed", "error", err)
				continue
			}
			api.PollsTotal.WithLabelValues(string(result.Status)).Inc()
			api.PollDuration.Observe(time.Since(start).Seconds())
			api.DevicesCatalogued.Set(float64(bridge.Registry().Count()))
			log.Debug("scheduled poll complete",
				"status", result.Status,
				"devices", len(result.Devices),
				"skipped", result.Skipped,
			)
		}
	}
}

// healthCheck verifies all running components are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - store: History store to check (may be nil if disabled)
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, store *history.Store, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if store != nil {
		if err := store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	// Vendor reachability was proven by the startup poll; the stream
	// reconnects on its own schedule and is observable via /status.

	return nil
}
