// Package influxdb provides InfluxDB connectivity for sentra-bridge.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, measurement writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Device state history (every poll diff and push update)
//   - Push-stream connection transitions
//   - Poll outcome summaries
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "sentra",
//	    Bucket: "bridge",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	recorder := influxdb.NewRecorder(client)
//	if err := recorder.Start(bridge.Broker()); err != nil {
//	    log.Fatal(err)
//	}
//	defer recorder.Stop()
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead when push events arrive
// in bursts.
package influxdb
