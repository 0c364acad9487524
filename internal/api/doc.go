// Package api implements the daemon-local HTTP REST API and WebSocket
// server for Sentra Bridge.
//
// This package provides:
//   - REST endpoints for the device catalogue, history, and panel actions
//   - WebSocket hub for real-time bridge event broadcasts
//   - Prometheus metrics at /metrics
//   - Bearer-token authentication on every /api/v1 route
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for non-loopback deployments
//
// # Architecture
//
// The API server sits between local consumers (dashboards, automations,
// the sentractl CLI) and the vendor bridge. Actions flow through the
// bridge's vendor client with optimistic desired state; confirmations
// flow back through the event broker, which the server relays to
// WebSocket subscribers and the Prometheus counters.
//
// # Security
//
// Every /api/v1 route requires the configured bearer token. WebSocket
// clients pass the same token as a query parameter since browsers cannot
// set headers on upgrade requests. The vendor session token is never
// exposed over this API.
//
// # Graceful Degradation
//
// The server operates without the history store: the history endpoints
// answer 503 while the catalogue, actions, and event stream keep working.
package api
