package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for sentra-bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Vendor    VendorConfig    `yaml:"vendor"`
	Poll      PollConfig      `yaml:"poll"`
	Stream    StreamConfig    `yaml:"stream"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// VendorConfig contains Sentra portal connection settings.
type VendorConfig struct {
	// BaseURL is the portal API root. Override for test harnesses.
	BaseURL string `yaml:"base_url"`

	// StreamURL is the push endpoint the event stream dials.
	StreamURL string `yaml:"stream_url"`

	// SessionToken authenticates every portal request. Set via the
	// SENTRABRIDGE_VENDOR_TOKEN environment variable rather than the file.
	SessionToken string `yaml:"session_token"`

	UserAgent string `yaml:"user_agent"`

	// Timeout is the per-request HTTP timeout in seconds.
	Timeout int `yaml:"timeout"`

	Retry VendorRetryConfig `yaml:"retry"`
}

// VendorRetryConfig contains retry behaviour for portal requests.
type VendorRetryConfig struct {
	// Max is the number of retries after the first attempt.
	Max int `yaml:"max"`

	// Wait is the base backoff delay in milliseconds; it doubles per attempt.
	Wait int `yaml:"wait"`
}

// PollConfig contains full-state polling settings.
type PollConfig struct {
	// Interval between full catalogue polls, in seconds.
	Interval int `yaml:"interval"`
}

// StreamConfig contains push event stream settings.
type StreamConfig struct {
	Enabled bool `yaml:"enabled"`

	// KeepAliveInterval is the gap between keep-alive pings, in seconds.
	KeepAliveInterval int `yaml:"keepalive_interval"`

	// MaxMissedPings tears the connection down once that many pings in a
	// row go unanswered.
	MaxMissedPings int `yaml:"max_missed_pings"`

	// HistorySize bounds the diagnostic ring of raw stream payloads.
	HistorySize int `yaml:"history_size"`

	// DedupWindow suppresses repeated identical binary-sensor reports for
	// this many seconds.
	DedupWindow int `yaml:"dedup_window"`
}

// MQTTConfig contains MQTT republishing settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
	Retain  bool             `yaml:"retain"`

	// TopicPrefix roots every published topic (e.g. "sentra" yields
	// sentra/lock/<id>/state).
	TopicPrefix string `yaml:"topic_prefix"`

	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AuthToken is the bearer token required on every API request. Set via
	// the SENTRABRIDGE_API_TOKEN environment variable rather than the file.
	AuthToken string `yaml:"auth_token"`

	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket event feed settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HistoryConfig contains SQLite event history settings.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays prunes history rows older than this. 0 keeps forever.
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SENTRABRIDGE_SECTION_KEY
// For example: SENTRABRIDGE_VENDOR_TOKEN, SENTRABRIDGE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Vendor: VendorConfig{
			BaseURL:   "https://portal.sentrahome.io/",
			StreamURL: "wss://push.sentrahome.io/",
			UserAgent: "sentra-bridge",
			Timeout:   30,
			Retry: VendorRetryConfig{
				Max:  3,
				Wait: 500,
			},
		},
		Poll: PollConfig{
			Interval: 300,
		},
		Stream: StreamConfig{
			Enabled:           true,
			KeepAliveInterval: 60,
			MaxMissedPings:    10,
			HistorySize:       25,
			DedupWindow:       180,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sentra-bridge",
			},
			QoS:         1,
			Retain:      true,
			TopicPrefix: "sentra",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/events",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "./data/sentra-bridge.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SENTRABRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Vendor - session token (IMPORTANT: prefer this over the config file)
	if v := os.Getenv("SENTRABRIDGE_VENDOR_TOKEN"); v != "" {
		cfg.Vendor.SessionToken = v
	}
	if v := os.Getenv("SENTRABRIDGE_VENDOR_BASE_URL"); v != "" {
		cfg.Vendor.BaseURL = v
	}

	// MQTT
	if v := os.Getenv("SENTRABRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENTRABRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENTRABRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SENTRABRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SENTRABRIDGE_API_TOKEN"); v != "" {
		cfg.API.AuthToken = v
	}

	// InfluxDB
	if v := os.Getenv("SENTRABRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// History
	if v := os.Getenv("SENTRABRIDGE_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Vendor validation
	if c.Vendor.BaseURL == "" {
		errs = append(errs, "vendor.base_url is required")
	}
	if c.Vendor.SessionToken == "" {
		errs = append(errs, "vendor.session_token is required (set SENTRABRIDGE_VENDOR_TOKEN environment variable)")
	}
	if c.Vendor.Retry.Max < 0 {
		errs = append(errs, "vendor.retry.max must not be negative")
	}

	// Poll validation - the portal rate-limits aggressive clients, and a
	// tripped limiter locks out the push stream along with polling.
	if c.Poll.Interval < 30 {
		errs = append(errs, "poll.interval must be at least 30 seconds")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// API auth token is REQUIRED
	// Arm, disarm and unlock requests reach a live security panel. An
	// empty or guessable token would let anyone who can reach the port
	// drive the panel.
	const minAPITokenLength = 16
	if c.API.AuthToken == "" {
		errs = append(errs, "api.auth_token is required (set SENTRABRIDGE_API_TOKEN environment variable)")
	} else if len(c.API.AuthToken) < minAPITokenLength {
		errs = append(errs, "api.auth_token must be at least 16 characters")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetVendorTimeout returns the portal HTTP timeout as a Duration.
func (c *Config) GetVendorTimeout() time.Duration {
	return time.Duration(c.Vendor.Timeout) * time.Second
}

// GetRetryWait returns the base portal retry delay as a Duration.
func (c *Config) GetRetryWait() time.Duration {
	return time.Duration(c.Vendor.Retry.Wait) * time.Millisecond
}

// GetPollInterval returns the full-poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Second
}

// GetKeepAliveInterval returns the stream keep-alive interval as a Duration.
func (c *Config) GetKeepAliveInterval() time.Duration {
	return time.Duration(c.Stream.KeepAliveInterval) * time.Second
}

// GetDedupWindow returns the binary-sensor suppression window as a Duration.
func (c *Config) GetDedupWindow() time.Duration {
	return time.Duration(c.Stream.DedupWindow) * time.Second
}
