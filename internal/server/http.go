// Package server provides the optional HTTP endpoint for monitoring a
// running streamer: health, per-target status, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realldz/yoosee-intercom/internal/client"
	"github.com/realldz/yoosee-intercom/internal/config"
)

// HTTPServer exposes streamer status over HTTP
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	manager *client.Manager

	startTime time.Time
}

// NewHTTPServer creates the status server; it does not listen until Start.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, manager *client.Manager) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		manager:   manager,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/targets", h.handleTargets)
	mux.HandleFunc("/stats", h.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Start begins serving in the background.
func (h *HTTPServer) Start() error {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server failed", slog.String("error", err.Error()))
		}
	}()

	h.logger.Info("HTTP status server started", slog.String("address", h.server.Addr))
	return nil
}

// Stop shuts the server down gracefully.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP status server...")
	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).String(),
		"targets":   h.manager.Count(),
		"timestamp": time.Now().UTC(),
	})
}

func (h *HTTPServer) handleTargets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"targets": h.manager.Snapshots(),
	})
}

func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshots := h.manager.Snapshots()

	var queued int
	var bytesSent int64
	streaming := 0
	for _, s := range snapshots {
		queued += s.QueueLen
		bytesSent += s.BytesSent
		if s.State == client.StateStreaming {
			streaming++
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"targets":           len(snapshots),
		"streaming_targets": streaming,
		"queued_chunks":     queued,
		"bytes_sent":        bytesSent,
		"drained":           h.manager.Drained(),
		"uptime":            time.Since(h.startTime).String(),
	})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("Failed to encode response", slog.String("error", err.Error()))
	}
}
