// Package device projects vendor resources into devices and keeps their
// state current.
//
// The package is the reconciliation layer between raw vendor documents and
// consumers: a catalogue of recognised device types and their state value
// spaces, a projection that turns one graph resource into one Device, and
// a registry holding the projected set, replaced wholesale per poll and
// patched per pushed event.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                        Device Reconciler                             │
//	│                                                                      │
//	│  ┌───────────────┐   ┌────────────────┐   ┌───────────────────────┐  │
//	│  │    Catalog    │   │   Projection   │   │       Registry        │  │
//	│  │ (catalog.go)  │──▶│  (project.go)  │──▶│     (registry.go)     │  │
//	│  │               │   │                │   │                       │  │
//	│  │ • Types       │   │ • Project      │   │ • ReplaceAll snapshot │  │
//	│  │ • State enums │   │ • MergeUpdate  │   │ • ApplyState / attrs  │  │
//	│  │ • Wire names  │   │ • Known fields │   │ • Desired vs actual   │  │
//	│  └───────────────┘   └────────────────┘   │ • Dedup (dedup.go)    │  │
//	│                                           └───────────────────────┘  │
//	└──────────────────────────────────────────────────────────────────────┘
//	                                                      │ deep copies
//	                                                      ▼
//	                                     MQTT / HTTP API / history / CLI
//
// # State model
//
// States are small wire integers whose meaning depends on the device type;
// 0 is unknown everywhere. Each device tracks the last reported actual
// state and, when a command is in flight or the vendor reports one, a
// desired state. The two converge when the vendor confirms; devices stuck
// diverged past a timeout surface through Registry.Unreconciled.
//
// # Snapshot and patch
//
// A poll produces the complete device set and replaces the registry's
// contents in one swap; devices missing from the snapshot are removed and
// are not resurrected by late events. Between polls, pushed events patch
// individual devices. Binary sensors repeat unchanged states, so those
// patches pass through a per-device suppression window first.
//
// All reads return deep copies. The registry is safe for concurrent use.
package device
