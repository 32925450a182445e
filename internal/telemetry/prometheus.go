package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus series for the checkpoint pipeline, registered once at
// package init via promauto.
var (
	checkpointsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onchain_indexer_checkpoints_processed_total",
		Help: "Total number of checkpoints fully processed",
	})

	eventsDedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onchain_indexer_events_deduped_total",
		Help: "Total number of events collapsed by intra-checkpoint dedup",
	})

	handlerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onchain_indexer_handler_failures_total",
		Help: "Total number of event-level handler failures",
	})

	processingDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "onchain_indexer_checkpoint_processing_seconds",
		Help:    "Time taken to process one checkpoint",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	watermarkGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onchain_indexer_watermark",
		Help: "Highest fully processed checkpoint sequence number",
	})

	lagGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onchain_indexer_checkpoint_lag_ms",
		Help: "Milliseconds between checkpoint timestamp and processing time",
	})

	alertBackoffFactorGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onchain_indexer_alert_backoff_factor",
		Help: "Current lag-alert exponential backoff factor",
	})
)

// ObserveCheckpoint updates the Prometheus series for one processed
// checkpoint.
func ObserveCheckpoint(watermark uint64, lagMs int64, dedupedCount, failedCount int, processingSeconds float64) {
	checkpointsProcessedTotal.Inc()
	eventsDedupedTotal.Add(float64(dedupedCount))
	handlerFailuresTotal.Add(float64(failedCount))
	processingDurationHistogram.Observe(processingSeconds)
	watermarkGauge.Set(float64(watermark))
	lagGauge.Set(float64(lagMs))
}

// SetAlertBackoffFactor exports the current backoff factor.
func SetAlertBackoffFactor(factor int32) {
	alertBackoffFactorGauge.Set(float64(factor))
}
