package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withObsrvr/ledger-da-client/client"
	"github.com/withObsrvr/ledger-da-client/retriever"
	"github.com/withObsrvr/ledger-da-client/session"
)

func newMonitorCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Follow the node's history and retrieve newly published transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadMonitorConfig(configPath)
			if err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := client.New(config.Node.APIURL,
				client.WithLogger(logger),
				client.WithHTTPClient(&http.Client{Timeout: config.RequestTimeout()}),
			)
			monitor := NewMonitor(config, c, logger)

			health := NewHealthServer(monitor, config.Service.HealthPort, logger)
			go func() {
				if err := health.Start(); err != nil && err != http.ErrServerClosed {
					logger.Error("health server stopped", zap.Error(err))
				}
			}()
			defer health.Shutdown(context.Background())

			return monitor.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to monitor config YAML (optional)")
	return cmd
}

// MonitorStats is a snapshot of the monitor's counters.
type MonitorStats struct {
	PollsTotal           uint64
	PollErrors           uint64
	TransitionsObserved  uint64
	TransitionsPublished uint64
	RecordsRetrieved     uint64
	RetrievalsFailed     uint64
	LastSequence         uint64
	LastCelestiaHeight   uint64
	LastPollTime         time.Time
}

// Monitor follows the node's transition history and, for every newly
// published availability height, drives the retriever to fetch the
// transition record.
type Monitor struct {
	config  *MonitorConfig
	client  *client.Client
	retr    *retriever.Retriever
	tracker *session.Tracker
	logger  *zap.Logger

	mu        sync.RWMutex
	stats     MonitorStats
	seen      map[uint64]bool // sequences already observed
	retrieved map[uint64]bool // availability heights already handled
}

func NewMonitor(config *MonitorConfig, c *client.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		config:    config,
		client:    c,
		retr:      newMonitorRetriever(config, c, logger),
		tracker:   session.NewTracker(),
		logger:    logger.With(zap.String("component", "monitor")),
		seen:      make(map[uint64]bool),
		retrieved: make(map[uint64]bool),
	}
}

func newMonitorRetriever(config *MonitorConfig, c *client.Client, logger *zap.Logger) *retriever.Retriever {
	return retriever.New(c,
		retriever.WithLogger(logger),
		retriever.WithMaxAttempts(config.Retriever.MaxAttempts),
		retriever.WithBaseDelay(config.RetrieverBaseDelay()),
	)
}

// Run polls until the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor starting",
		zap.String("api_url", m.config.Node.APIURL),
		zap.Duration("poll_interval", m.config.PollInterval()),
	)

	// Transitions published before startup are hydrated, not re-fetched.
	if entries, err := m.client.History(ctx); err == nil {
		m.tracker.Hydrate(entries)
		m.mu.Lock()
		for _, e := range entries {
			m.seen[e.Sequence] = true
			if e.CelestiaHeight != nil {
				m.retrieved[*e.CelestiaHeight] = true
			}
		}
		m.mu.Unlock()
		m.logger.Info("hydrated from history", zap.Int("entries", len(entries)))
	} else {
		m.logger.Warn("initial history fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.config.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return nil
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	m.mu.Lock()
	m.stats.PollsTotal++
	m.stats.LastPollTime = time.Now()
	m.mu.Unlock()
	pollsTotal.Inc()

	entries, err := m.client.History(ctx)
	if err != nil {
		m.mu.Lock()
		m.stats.PollErrors++
		m.mu.Unlock()
		pollErrorsTotal.Inc()
		m.logger.Warn("history poll failed", zap.Error(err))
		return
	}
	m.tracker.Hydrate(entries)

	var toRetrieve []uint64
	m.mu.Lock()
	for _, e := range entries {
		if !m.seen[e.Sequence] {
			m.seen[e.Sequence] = true
			m.stats.TransitionsObserved++
			transitionsObservedTotal.Inc()
			if e.Sequence > m.stats.LastSequence {
				m.stats.LastSequence = e.Sequence
				lastSequenceGauge.Set(float64(e.Sequence))
			}
			m.logger.Info("new transition observed",
				zap.Uint64("sequence", e.Sequence),
				zap.String("root", e.Root.String()),
			)
		}
		if e.CelestiaHeight == nil || m.retrieved[*e.CelestiaHeight] {
			continue
		}
		m.retrieved[*e.CelestiaHeight] = true
		m.stats.TransitionsPublished++
		transitionsPublishedTotal.Inc()
		if *e.CelestiaHeight > m.stats.LastCelestiaHeight {
			m.stats.LastCelestiaHeight = *e.CelestiaHeight
			lastCelestiaHeightGauge.Set(float64(*e.CelestiaHeight))
		}
		toRetrieve = append(toRetrieve, *e.CelestiaHeight)
	}
	m.mu.Unlock()

	for _, height := range toRetrieve {
		m.retrieve(ctx, height)
	}
}

func (m *Monitor) retrieve(ctx context.Context, height uint64) {
	m.retr.Select(ctx, height)
	snap, err := m.retr.Wait(ctx)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch snap.State {
	case retriever.StateSuccess:
		m.stats.RecordsRetrieved++
		recordsRetrievedTotal.Inc()
		m.logger.Info("transition record retrieved",
			zap.Uint64("height", height),
			zap.Uint64("sequence", snap.Record.Sequence),
			zap.Int("proof_size_bytes", snap.Record.ProofSizeBytes),
		)
	case retriever.StateFailed:
		m.stats.RetrievalsFailed++
		retrievalsFailedTotal.Inc()
		m.logger.Warn("transition record retrieval failed",
			zap.Uint64("height", height),
			zap.String("reason", snap.Message),
		)
	}
}

// GetStats returns a snapshot of the monitor's counters.
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
