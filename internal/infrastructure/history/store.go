package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts the configured busy timeout to milliseconds.
	msPerSecond = 1000

	// connectTimeout is the timeout for verifying database connectivity.
	connectTimeout = 5 * time.Second

	// defaultLimit is the number of rows returned when no limit is given.
	defaultLimit = 50

	// maxLimit caps a caller-supplied limit.
	maxLimit = 200
)

// schema is applied at every Open. All statements are idempotent, so an
// existing database passes through untouched.
const schema = `
CREATE TABLE IF NOT EXISTS device_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id   TEXT    NOT NULL,
	device_type TEXT    NOT NULL,
	state       INTEGER NOT NULL,
	label       TEXT    NOT NULL,
	low_battery INTEGER NOT NULL DEFAULT 0,
	malfunction INTEGER NOT NULL DEFAULT 0,
	recorded_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
) STRICT;
CREATE INDEX IF NOT EXISTS idx_device_history_device ON device_history(device_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_device_history_time ON device_history(recorded_at DESC);

CREATE TABLE IF NOT EXISTS connection_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	state       TEXT NOT NULL,
	recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
) STRICT;
CREATE INDEX IF NOT EXISTS idx_connection_history_time ON connection_history(recorded_at DESC);
`

// DeviceEntry is one recorded device state observation.
type DeviceEntry struct {
	ID          int64        `json:"id"`
	DeviceID    string       `json:"device_id"`
	DeviceType  device.Type  `json:"device_type"`
	State       device.State `json:"state"`
	Label       string       `json:"label"`
	LowBattery  bool         `json:"low_battery"`
	Malfunction bool         `json:"malfunction"`
	RecordedAt  time.Time    `json:"recorded_at"`
}

// ConnectionEntry is one recorded push-connection transition.
type ConnectionEntry struct {
	ID         int64     `json:"id"`
	State      string    `json:"state"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store persists device state changes and connection transitions to a
// local SQLite database. It owns the connection for its lifetime; call
// Close on shutdown.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the history database connection.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Verifies the connection with a ping
//  5. Bootstraps the schema (idempotent)
//  6. Sets file permissions to 0600
//
// Parameters:
//   - cfg: History configuration (path, WAL mode, busy timeout)
//
// Returns:
//   - *Store: Connected store
//   - error: ErrDisabled if history is off, otherwise the setup failure
func Open(cfg config.HistoryConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	// Build connection string with pragmas
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)

	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// SQLite supports one writer; a single shared connection also keeps
	// reads and writes on the same WAL snapshot.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("bootstrapping history schema: %w", err)
	}

	// Owner read/write only; state history reveals occupancy patterns.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Intentional: best effort

	return &Store{db: db, path: cfg.Path}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (s *Store) Path() string {
	return s.path
}

// HealthCheck verifies the database is accessible and functioning.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("history health check failed: %w", err)
	}
	return nil
}

// RecordDeviceState appends one row to the device history.
//
// A zero at falls back to the device's LastUpdatedAt, then to the current
// time, so replayed events keep their original timestamps.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - d: Device snapshot to record
//   - at: Observation time
//
// Returns:
//   - error: If validation or the insert fails
func (s *Store) RecordDeviceState(ctx context.Context, d *device.Device, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	if d == nil {
		return fmt.Errorf("device is required")
	}
	if d.ID == "" {
		return fmt.Errorf("device ID is required")
	}

	if at.IsZero() {
		at = d.LastUpdatedAt
	}
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_history (device_id, device_type, state, label, low_battery, malfunction, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		string(d.Type),
		int64(d.ActualState),
		d.StateLabel(),
		d.LowBattery,
		d.Malfunction,
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording device state: %w", err)
	}
	return nil
}

// DeviceHistory returns the most recent entries for one device, newest
// first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Device to query
//   - limit: Maximum entries (0 or negative uses the default of 50, capped at 200)
//
// Returns:
//   - []DeviceEntry: Entries in reverse chronological order
//   - error: If the query fails
func (s *Store) DeviceHistory(ctx context.Context, deviceID string, limit int) ([]DeviceEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpen
	}
	if deviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, device_type, state, label, low_battery, malfunction, recorded_at
		 FROM device_history
		 WHERE device_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var entries []DeviceEntry
	for rows.Next() {
		var (
			e          DeviceEntry
			devType    string
			state      int64
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &devType, &state, &e.Label, &e.LowBattery, &e.Malfunction, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning device history row: %w", err)
		}
		e.DeviceType = device.Type(devType)
		e.State = device.State(state)
		e.RecordedAt = parseTimestamp(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device history: %w", err)
	}
	return entries, nil
}

// RecordConnection appends one push-connection transition.
//
// A zero at records the current time.
func (s *Store) RecordConnection(ctx context.Context, state string, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	if state == "" {
		return fmt.Errorf("connection state is required")
	}
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connection_history (state, recorded_at) VALUES (?, ?)`,
		state,
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording connection state: %w", err)
	}
	return nil
}

// ConnectionHistory returns the most recent connection transitions,
// newest first. Limit handling matches DeviceHistory.
func (s *Store) ConnectionHistory(ctx context.Context, limit int) ([]ConnectionEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpen
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state, recorded_at
		 FROM connection_history
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying connection history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var entries []ConnectionEntry
	for rows.Next() {
		var (
			e          ConnectionEntry
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.State, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning connection history row: %w", err)
		}
		e.RecordedAt = parseTimestamp(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the given age from both tables.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - olderThan: Age threshold; zero or negative keeps everything
//
// Returns:
//   - int64: Number of rows deleted
//   - error: If either delete fails
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotOpen
	}
	if olderThan <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)

	var total int64
	for _, table := range []string{"device_history", "connection_history"} {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE recorded_at < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("counting pruned %s rows: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// parseTimestamp handles both RFC3339 strings written by this store and
// the second-precision strftime default applied by SQLite.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", s); err == nil {
		return t
	}
	return time.Time{}
}
