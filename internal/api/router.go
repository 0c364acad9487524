package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Liveness probe and Prometheus scrape target (no auth; keep the
	// daemon on the loopback or front these with a reverse proxy)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes (bearer token required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Bridge status and on-demand refresh
		r.Get("/status", s.handleStatus)
		r.Post("/poll", s.handlePoll)

		// Device catalogue endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/history", s.handleDeviceHistory)
				r.Post("/actions", s.handleDeviceAction)
			})
		})

		// Stream connection history
		r.Get("/connection/history", s.handleConnectionHistory)
	})

	// WebSocket (auth via bearer or query token, validated by middleware;
	// registered outside the group so the path stays configurable)
	r.With(s.authMiddleware).Get(s.wsPath(), s.handleWebSocket)

	return r
}

// wsPath returns the configured WebSocket endpoint path.
func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/api/v1/events"
}

// handleHealthz returns the server liveness status.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
