// Package history persists device state changes and push-connection
// transitions to a local SQLite database.
//
// This package manages:
//   - Database lifecycle with WAL mode for concurrent access
//   - Idempotent schema bootstrap at open (no external migration step)
//   - Append-only device and connection history with bounded queries
//   - Retention-based pruning
//
// The Recorder subscribes to the event broker and writes through a
// bounded queue on its own goroutine, so a lock-contended database never
// stalls event delivery. Queries (newest first, limit-clamped) back the
// REST API's history endpoints.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//   - History reveals occupancy patterns; treat the file like a credential
//
// Performance Characteristics:
//   - WAL mode allows reads during writes
//   - Busy timeout prevents lock contention errors
//   - STRICT tables catch type drift at insert time
//
// Usage:
//
//	store, err := history.Open(cfg.History)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := history.NewRecorder(store, cfg.History, logger)
//	if err := rec.Start(ctx, bridge.Broker()); err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Stop()
package history
