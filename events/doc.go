// Package events is the in-process notification bus between the bridge
// core and its consumers (MQTT republisher, API websocket hub, CLI
// watch, history recorder).
//
// The Broker delivers synchronously on the publisher's goroutine, so the
// core never races ahead of its own announcements. Handlers are isolated
// from each other: a panicking subscriber is logged and skipped, never
// fatal. Subscriptions can be narrowed by topic and by device id.
package events
