// Package server exposes the HTTP health/readiness/metrics endpoints for
// the indexer's components: the database, the RPC client, and the
// checkpoint reader.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sui-indexer/onchain-indexer/internal/logging"
)

// ComponentHealth tracks health of one dependency.
type ComponentHealth struct {
	Name      string      `json:"name"`
	Healthy   bool        `json:"healthy"`
	LastCheck time.Time   `json:"last_check"`
	LastError string      `json:"last_error,omitempty"`
	Metrics   interface{} `json:"metrics,omitempty"`
}

// HealthStatus represents overall service health.
type HealthStatus struct {
	Status     string                      `json:"status"`
	Version    string                      `json:"version"`
	Uptime     string                      `json:"uptime"`
	Watermark  uint64                      `json:"watermark"`
	Components map[string]*ComponentHealth `json:"components"`
	Timestamp  time.Time                   `json:"timestamp"`
}

// WatermarkFunc reports the current processed watermark for the /health
// response; the checkpoint worker's telemetry counters supply it.
type WatermarkFunc func() uint64

// HealthServer serves /health, /ready and /metrics.
type HealthServer struct {
	logger    *logging.ComponentLogger
	port      int
	version   string
	startTime time.Time
	watermark WatermarkFunc
	server    *http.Server

	mu         sync.RWMutex
	components map[string]*ComponentHealth
}

// NewHealthServer creates a new health server.
func NewHealthServer(logger *logging.ComponentLogger, port int, version string, watermark WatermarkFunc) *HealthServer {
	return &HealthServer{
		logger:     logger,
		port:       port,
		version:    version,
		startTime:  time.Now(),
		watermark:  watermark,
		components: make(map[string]*ComponentHealth),
	}
}

// RegisterComponent registers a component for health monitoring.
func (h *HealthServer) RegisterComponent(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = &ComponentHealth{Name: name, LastCheck: time.Now()}
}

// UpdateComponentHealth updates a component's health status.
func (h *HealthServer) UpdateComponentHealth(name string, healthy bool, err error, metrics interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	component, exists := h.components[name]
	if !exists {
		component = &ComponentHealth{Name: name}
		h.components[name] = component
	}

	component.Healthy = healthy
	component.LastCheck = time.Now()
	component.Metrics = metrics
	if err != nil {
		component.LastError = err.Error()
	} else {
		component.LastError = ""
	}
}

// Start starts the health server.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth())
	mux.HandleFunc("/ready", h.handleReady())
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", h.port),
		Handler: mux,
	}

	h.logger.Info().Int("port", h.port).Msg("starting health server")

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error().Err(err).Msg("health server error")
		}
	}()

	return nil
}

// Stop stops the health server.
func (h *HealthServer) Stop() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		status := "healthy"
		unhealthyCount := 0
		for _, comp := range h.components {
			if !comp.Healthy {
				unhealthyCount++
			}
		}
		if unhealthyCount > 0 {
			if unhealthyCount == len(h.components) {
				status = "unhealthy"
			} else {
				status = "degraded"
			}
		}

		var watermark uint64
		if h.watermark != nil {
			watermark = h.watermark()
		}

		health := HealthStatus{
			Status:     status,
			Version:    h.version,
			Uptime:     time.Since(h.startTime).String(),
			Watermark:  watermark,
			Components: h.components,
			Timestamp:  time.Now(),
		}

		statusCode := http.StatusOK
		if status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

func (h *HealthServer) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		dbHealthy := true
		if comp, exists := h.components["database"]; exists {
			dbHealthy = comp.Healthy
		}

		if dbHealthy {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready\n"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready\n"))
		}
	}
}
