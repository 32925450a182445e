// Package logging provides structured logging for the indexer: a thin
// ComponentLogger wrapping a configured zerolog.Logger plus a handful of
// domain-shaped helper methods for the things this service logs often.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger provides structured logging for the checkpoint indexer.
type ComponentLogger struct {
	logger    zerolog.Logger
	component string
	version   string
}

// NewComponentLogger creates a new component logger.
func NewComponentLogger(component, version string) *ComponentLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Str("version", version).
		Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return &ComponentLogger{
		logger:    logger,
		component: component,
		version:   version,
	}
}

func (cl *ComponentLogger) Info() *zerolog.Event  { return cl.logger.Info() }
func (cl *ComponentLogger) Debug() *zerolog.Event { return cl.logger.Debug() }
func (cl *ComponentLogger) Warn() *zerolog.Event  { return cl.logger.Warn() }
func (cl *ComponentLogger) Error() *zerolog.Event { return cl.logger.Error() }
func (cl *ComponentLogger) Fatal() *zerolog.Event { return cl.logger.Fatal() }

// With creates a child logger with additional context.
func (cl *ComponentLogger) With() zerolog.Context {
	return cl.logger.With()
}

// GetLogger returns the underlying zerolog logger.
func (cl *ComponentLogger) GetLogger() zerolog.Logger {
	return cl.logger
}

// StartupConfig holds the fields logged once at process start.
type StartupConfig struct {
	RunMode               string
	RpcURL                string
	HealthPort            int
	OnchainIndexerEnabled bool
	ArbitrageEnabled      bool
	LiquidationEnabled    bool
	DevMode               bool
	StartCheckpointNumber uint64
	IndexerWorkerCount    int
}

// LogStartup logs startup configuration.
func (cl *ComponentLogger) LogStartup(cfg StartupConfig) {
	cl.Info().
		Str("run_mode", cfg.RunMode).
		Str("rpc_url", cfg.RpcURL).
		Int("health_port", cfg.HealthPort).
		Bool("onchain_indexer_enabled", cfg.OnchainIndexerEnabled).
		Bool("arbitrage_enabled", cfg.ArbitrageEnabled).
		Bool("liquidation_enabled", cfg.LiquidationEnabled).
		Bool("dev_mode", cfg.DevMode).
		Uint64("start_checkpoint_number", cfg.StartCheckpointNumber).
		Int("indexer_worker_count", cfg.IndexerWorkerCount).
		Msg("starting onchain indexer")
}

// CheckpointMetrics holds the per-checkpoint summary the worker logs
// after every checkpoint.
type CheckpointMetrics struct {
	SequenceNumber   uint64
	TransactionCount int
	EventCount       int
	DedupedCount     int
	Succeeded        int
	Failed           int
	ProcessingTime   time.Duration
	LagMs            int64
}

// LogCheckpoint logs the outcome of processing one checkpoint.
func (cl *ComponentLogger) LogCheckpoint(m CheckpointMetrics) {
	cl.Info().
		Uint64("sequence_number", m.SequenceNumber).
		Int("transactions", m.TransactionCount).
		Int("events", m.EventCount).
		Int("deduped", m.DedupedCount).
		Int("succeeded", m.Succeeded).
		Int("failed", m.Failed).
		Dur("processing_time", m.ProcessingTime).
		Int64("lag_ms", m.LagMs).
		Msg("processed checkpoint")
}

// SetLevel sets the logging level.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Warn().Str("level", level).Msg("unknown log level, defaulting to info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
