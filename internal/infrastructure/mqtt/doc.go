// Package mqtt provides MQTT client connectivity for sentra-bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Republishing of device state from the bridge's event broker
//
// # Architecture
//
// The daemon mirrors the vendor account onto retained MQTT topics so home
// automation consumers (dashboards, rule engines) read panel state from
// the broker instead of hammering the vendor API.
//
//	Vendor API ↔ Bridge ↔ Event Broker ↔ Republisher ↔ MQTT Broker ↔ Consumers
//
// Topic layout, rooted at the configured prefix (default "sentra"):
//
//	sentra/{type}/{id}/state       retained per-device state summary
//	sentra/{type}/{id}/attributes  retained raw vendor attributes
//	sentra/bridge/availability     online/offline with LWT
//	sentra/bridge/connection       push-stream connection status
//	sentra/bridge/refresh          publish here to trigger a full poll
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - State payloads describe a live security panel; broker ACLs should
//     restrict who can read them
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	repub := mqtt.NewRepublisher(client, bridge, cfg.MQTT, logger)
//	repub.SetRefresh(func(ctx context.Context) error {
//	    _, err := bridge.FetchFullState(ctx)
//	    return err
//	})
//	if err := repub.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer repub.Stop()
package mqtt
