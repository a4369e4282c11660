package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// Prometheus metrics
	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_polls_total",
		Help: "Total history polls against the ledger node",
	})

	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_poll_errors_total",
		Help: "History polls that failed",
	})

	transitionsObservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_transitions_observed_total",
		Help: "New transitions observed in the node's history",
	})

	transitionsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_transitions_published_total",
		Help: "Transitions observed with an availability-network height",
	})

	recordsRetrievedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_records_retrieved_total",
		Help: "Published transition records successfully retrieved",
	})

	retrievalsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_monitor_retrievals_failed_total",
		Help: "Published transition records that could not be retrieved",
	})

	lastSequenceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_da_client_monitor_last_sequence",
		Help: "Highest transition sequence observed",
	})

	lastCelestiaHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_da_client_monitor_last_celestia_height",
		Help: "Highest availability-network publication height observed",
	})
)

// HealthServer manages the HTTP health and metrics endpoints for
// monitor mode.
type HealthServer struct {
	monitor   *Monitor
	port      string
	logger    *zap.Logger
	startTime time.Time
	srv       *http.Server
}

// NewHealthServer creates a new health server.
func NewHealthServer(monitor *Monitor, port string, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		monitor:   monitor,
		port:      port,
		logger:    logger.With(zap.String("component", "health")),
		startTime: time.Now(),
	}
}

// Start starts the health and metrics HTTP server.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.handleHealth)

	// Ready endpoint (for k8s readiness probes)
	mux.HandleFunc("/ready", h.handleReady)

	// Live endpoint (for k8s liveness probes)
	mux.HandleFunc("/live", h.handleLive)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + h.port
	h.logger.Info("health server listening", zap.String("addr", addr))

	h.srv = &http.Server{Addr: addr, Handler: mux}
	return h.srv.ListenAndServe()
}

// Shutdown stops the health server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}

// handleHealth returns detailed health information
func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.monitor.GetStats()

	health := map[string]interface{}{
		"status":         "healthy",
		"service":        h.monitor.config.Service.Name,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"stats": map[string]interface{}{
			"polls_total":           stats.PollsTotal,
			"poll_errors":           stats.PollErrors,
			"transitions_observed":  stats.TransitionsObserved,
			"transitions_published": stats.TransitionsPublished,
			"records_retrieved":     stats.RecordsRetrieved,
			"retrievals_failed":     stats.RetrievalsFailed,
			"last_sequence":         stats.LastSequence,
			"last_celestia_height":  stats.LastCelestiaHeight,
			"last_poll_time":        stats.LastPollTime,
		},
		"config": map[string]interface{}{
			"api_url":               h.monitor.config.Node.APIURL,
			"poll_interval_seconds": h.monitor.config.Service.PollIntervalSeconds,
			"retriever_attempts":    h.monitor.config.Retriever.MaxAttempts,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleReady returns readiness status (for k8s)
func (h *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ready")
}

// handleLive returns liveness status (for k8s)
func (h *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "live")
}
