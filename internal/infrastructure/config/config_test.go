package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
vendor:
  base_url: "https://portal.example.test/"
  session_token: "file-session-token"
  user_agent: "sentra-bridge-test"
poll:
  interval: 120
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 8080
  auth_token: "test-api-token-0123456789"
history:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Vendor.BaseURL != "https://portal.example.test/" {
		t.Errorf("Vendor.BaseURL = %q, want %q", cfg.Vendor.BaseURL, "https://portal.example.test/")
	}

	if cfg.Poll.Interval != 120 {
		t.Errorf("Poll.Interval = %d, want 120", cfg.Poll.Interval)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.History.Path != "/tmp/test.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/tmp/test.db")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
vendor:
  base_url: "https://portal.example.test/"
  session_token: ""
api:
  port: 8080
  auth_token: "test-api-token-0123456789"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty vendor.session_token, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validAPIToken is a token that meets the 16-character minimum requirement
	validAPIToken := "test-api-token-0123456789"

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080, AuthToken: validAPIToken},
			},
			wantErr: false,
		},
		{
			name: "missing session token",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "missing base URL",
			config: &Config{
				Vendor: VendorConfig{SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "poll interval too low",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 5},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 3},
				API:    APIConfig{Port: 8080, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 0, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 70000, AuthToken: validAPIToken},
			},
			wantErr: true,
		},
		{
			name: "missing API token",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080},
			},
			wantErr: true,
		},
		{
			name: "API token too short",
			config: &Config{
				Vendor: VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:   PollConfig{Interval: 300},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Port: 8080, AuthToken: "short"},
			},
			wantErr: true,
		},
		{
			name: "history enabled without path",
			config: &Config{
				Vendor:  VendorConfig{BaseURL: "https://portal.example.test/", SessionToken: "sess"},
				Poll:    PollConfig{Interval: 300},
				MQTT:    MQTTConfig{QoS: 1},
				API:     APIConfig{Port: 8080, AuthToken: validAPIToken},
				History: HistoryConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Vendor: VendorConfig{
			Timeout: 20,
			Retry:   VendorRetryConfig{Wait: 500},
		},
		Poll:   PollConfig{Interval: 120},
		Stream: StreamConfig{DedupWindow: 180},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.GetVendorTimeout(); got != 20*time.Second {
		t.Errorf("GetVendorTimeout() = %v, want 20s", got)
	}

	if got := cfg.GetRetryWait(); got != 500*time.Millisecond {
		t.Errorf("GetRetryWait() = %v, want 500ms", got)
	}

	if got := cfg.GetPollInterval(); got != 2*time.Minute {
		t.Errorf("GetPollInterval() = %v, want 2m", got)
	}

	if got := cfg.GetDedupWindow(); got != 3*time.Minute {
		t.Errorf("GetDedupWindow() = %v, want 3m", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("SENTRABRIDGE_VENDOR_TOKEN", "env-session-token")
	t.Setenv("SENTRABRIDGE_VENDOR_BASE_URL", "https://portal.override.test/")
	t.Setenv("SENTRABRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SENTRABRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("SENTRABRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("SENTRABRIDGE_API_HOST", "192.168.1.1")
	t.Setenv("SENTRABRIDGE_API_TOKEN", "env-api-token-0123456789")
	t.Setenv("SENTRABRIDGE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("SENTRABRIDGE_HISTORY_PATH", "/custom/path.db")

	applyEnvOverrides(cfg)

	if cfg.Vendor.SessionToken != "env-session-token" {
		t.Errorf("Vendor.SessionToken = %q, want %q", cfg.Vendor.SessionToken, "env-session-token")
	}

	if cfg.Vendor.BaseURL != "https://portal.override.test/" {
		t.Errorf("Vendor.BaseURL = %q, want %q", cfg.Vendor.BaseURL, "https://portal.override.test/")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.AuthToken != "env-api-token-0123456789" {
		t.Errorf("API.AuthToken = %q, want %q", cfg.API.AuthToken, "env-api-token-0123456789")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.History.Path != "/custom/path.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/custom/path.db")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Vendor.BaseURL == "" {
		t.Error("defaultConfig should have non-empty Vendor.BaseURL")
	}

	if cfg.Vendor.UserAgent == "" {
		t.Error("defaultConfig should have non-empty Vendor.UserAgent")
	}

	if cfg.Poll.Interval != 300 {
		t.Errorf("defaultConfig Poll.Interval = %d, want 300", cfg.Poll.Interval)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Stream.DedupWindow != 180 {
		t.Errorf("defaultConfig Stream.DedupWindow = %d, want 180", cfg.Stream.DedupWindow)
	}
}
