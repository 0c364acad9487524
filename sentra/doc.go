// Package sentra is the top of the stack: an authenticated client for the
// vendor's portal API, full-account polling, device actions, and a Bridge
// that ties the client, resource graph, device registry, push stream and
// event broker into one long-running unit.
//
//	           ┌──────────────────────────────────────────────┐
//	           │                   Bridge                     │
//	           │                                              │
//	 vendor ──►│  Client ──► FetchAll ──► graph.Graph (swap)  │
//	  HTTP     │                │                             │
//	           │                └──► device.Registry ◄──┐     │
//	           │                          │             │     │
//	 vendor ──►│  stream.Client ──► stream.Dispatcher ──┘     │
//	  push     │                          │                   │
//	           │                          ▼                   │
//	           │                    events.Broker ──► subscribers
//	           └──────────────────────────────────────────────┘
//
// # Polling
//
// FetchAll walks the account top-down: identity, then systems, then one
// catalogue document per device type, following page[number] pagination
// until the last page. Each poll builds a fresh graph off to the side;
// the Bridge swaps it in atomically so readers never observe a graph
// mid-rebuild. Concurrent polls are coalesced: callers that arrive while
// a poll is in flight share its result.
//
// # Degradation
//
// A failed device-type endpoint degrades the poll rather than failing it:
// the type's devices are simply absent from the result and the endpoint is
// recorded in PollResult.Skipped. Authentication failures and cancellation
// abort the whole poll; a cancelled poll publishes nothing.
//
// # Actions
//
// Action calls (Arm, Lock, LightOn, ...) POST to the device's endpoint.
// On acceptance the Bridge records the desired state on the registry; the
// next confirmation, pushed or polled, reconciles it.
package sentra
