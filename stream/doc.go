// Package stream maintains the push connection to the vendor and routes
// its messages into device state changes.
//
// The vendor push feed is a WebSocket carrying flat JSON messages with no
// envelope; the message shape is recognised by which keys are present.
// The client owns the connection lifecycle (token fetch, keep-alive,
// reconnect); the dispatcher owns routing (which message, for which
// device type, means what).
//
// # Architecture
//
//	 vendor push endpoint
//	          │ wss
//	          ▼
//	┌──────────────────────┐   classified    ┌──────────────────────────┐
//	│        Client        │  messages.go    │        Dispatcher        │
//	│     (client.go)      │────structs─────▶│     (dispatcher.go)      │
//	│                      │                 │                          │
//	│ • token → dial       │                 │ • (code, device type)    │
//	│ • keep-alive pings   │                 │   handler table          │
//	│ • reconnect backoff  │                 │ • unknown code: discard  │
//	│ • history ring       │                 │ • stale id: discard      │
//	└──────────────────────┘                 └────────────┬─────────────┘
//	                                                      │ Sink
//	                                                      ▼
//	                                          registry / bridge
//
// # Ordering
//
// Messages are classified and handed to the dispatcher on the read-loop
// goroutine, one at a time, in arrival order. Handlers therefore never
// race each other; anything slow belongs behind the Sink, not in a
// handler.
//
// # Degradation
//
// An unrecognised message shape, an event code with no handler for the
// device's type, or a device id the registry does not know are all logged
// and discarded. The stream never stops over vendor surprises; the next
// poll trues everything up.
package stream
