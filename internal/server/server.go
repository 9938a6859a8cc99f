// Package server exposes the collected registry over HTTP.
//
// All endpoints are read-only and never trigger a collection round;
// collection is fully decoupled from request handling.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pelotoniq/metricsd/internal/metric"
)

const shutdownTimeout = 5 * time.Second

// Server serves /health, /metrics and /business-summary.
type Server struct {
	addr     string
	registry *metric.Registry
	server   *http.Server
}

// New creates the exposition server over a registry and its Prometheus
// gatherer.
func New(addr string, registry *metric.Registry, gatherer prometheus.Gatherer) *Server {
	s := &Server{addr: addr, registry: registry}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /business-summary", s.handleBusinessSummary)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the route handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// A bind failure is returned immediately and is fatal to the process.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting exposition server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutting down exposition server")
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness only; it does not depend on collection
// ever having succeeded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleBusinessSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildSummary(s.registry.Snapshot()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
