// Package telemetry keeps the indexer's running aggregates of processing
// time and lag in plain atomics, plus the lag-alert backoff schedule and
// periodic snapshot persistence.
package telemetry

import (
	"math"
	"sync/atomic"

	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// Counters holds the atomic running aggregates. Every field is updated
// with plain atomic read-modify-write; no locks, nothing here blocks.
type Counters struct {
	totalCheckpoints          atomic.Uint64
	totalProcessedCheckpoints atomic.Uint64
	totalProcessingTimeMs     atomic.Uint64
	totalLagMs                atomic.Uint64
	maxProcessingTimeMs       atomic.Uint64
	minProcessingTimeMs       atomic.Uint64
	maxLagMs                  atomic.Uint64
	minLagMs                  atomic.Uint64
	latestSeqNumber           atomic.Uint64
	latestTimestampMs         atomic.Uint64
}

// NewCounters returns a Counters with the min aggregates initialized to
// "infinity" so the first observation always wins.
func NewCounters() *Counters {
	c := &Counters{}
	c.minProcessingTimeMs.Store(math.MaxUint64)
	c.minLagMs.Store(math.MaxUint64)
	return c
}

// SeedFrom restores the counters from the most recently persisted Metric
// row, so post-restart averages stay representative of the full history
// and the watermark resumes where the last run stopped. A nil seed leaves
// defaults.
func (c *Counters) SeedFrom(m *store.Metric) {
	if m == nil {
		return
	}
	c.totalCheckpoints.Store(m.TotalCheckpoints)
	c.totalProcessedCheckpoints.Store(m.TotalProcessedCheckpoints)
	c.totalProcessingTimeMs.Store(m.TotalProcessingTimeMs)
	c.totalLagMs.Store(m.TotalLagMs)
	if m.MinProcessingTimeMs > 0 {
		c.minProcessingTimeMs.Store(m.MinProcessingTimeMs)
	}
	c.maxProcessingTimeMs.Store(m.MaxProcessingTimeMs)
	if m.MinLagMs > 0 {
		c.minLagMs.Store(m.MinLagMs)
	}
	c.maxLagMs.Store(m.MaxLagMs)
	c.latestSeqNumber.Store(m.Watermark)
	c.latestTimestampMs.Store(m.LatestTimestampMs)
}

// Watermark returns the highest fully processed checkpoint sequence number.
func (c *Counters) Watermark() uint64 { return c.latestSeqNumber.Load() }

// LatestTimestampMs returns the timestamp of the most recently processed
// checkpoint.
func (c *Counters) LatestTimestampMs() uint64 { return c.latestTimestampMs.Load() }

// RecordCheckpoint folds one checkpoint's processing time and lag into the
// running aggregates and advances the watermark/latest-timestamp if the
// new sequence number is higher; a re-delivered older checkpoint never
// regresses them.
func (c *Counters) RecordCheckpoint(processingMs uint64, lagMs uint64, seqNumber, timestampMs uint64) {
	c.totalCheckpoints.Add(1)
	c.totalProcessedCheckpoints.Add(1)
	c.totalProcessingTimeMs.Add(processingMs)
	c.totalLagMs.Add(lagMs)

	casMax(&c.maxProcessingTimeMs, processingMs)
	casMin(&c.minProcessingTimeMs, processingMs)
	casMax(&c.maxLagMs, lagMs)
	casMin(&c.minLagMs, lagMs)

	casMax(&c.latestSeqNumber, seqNumber)
	casMax(&c.latestTimestampMs, timestampMs)
}

func casMax(a *atomic.Uint64, v uint64) {
	for {
		cur := a.Load()
		if v <= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func casMin(a *atomic.Uint64, v uint64) {
	for {
		cur := a.Load()
		if v >= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Snapshot computes a Metric row from the current aggregates: averages
// are total/count, or 0 if count is 0.
func (c *Counters) Snapshot() store.Metric {
	totalProcessed := c.totalProcessedCheckpoints.Load()

	var avgProcessing, avgLag float64
	if totalProcessed > 0 {
		avgProcessing = float64(c.totalProcessingTimeMs.Load()) / float64(totalProcessed)
		avgLag = float64(c.totalLagMs.Load()) / float64(totalProcessed)
	}

	minProcessing := c.minProcessingTimeMs.Load()
	if minProcessing == math.MaxUint64 {
		minProcessing = 0
	}
	minLag := c.minLagMs.Load()
	if minLag == math.MaxUint64 {
		minLag = 0
	}

	return store.Metric{
		Watermark:                 c.latestSeqNumber.Load(),
		LatestTimestampMs:         c.latestTimestampMs.Load(),
		TotalCheckpoints:          c.totalCheckpoints.Load(),
		TotalProcessedCheckpoints: totalProcessed,
		TotalProcessingTimeMs:     c.totalProcessingTimeMs.Load(),
		MinProcessingTimeMs:       minProcessing,
		MaxProcessingTimeMs:       c.maxProcessingTimeMs.Load(),
		TotalLagMs:                c.totalLagMs.Load(),
		MinLagMs:                  minLag,
		MaxLagMs:                  c.maxLagMs.Load(),
		AvgProcessingTimeMs:       avgProcessing,
		AvgLagMs:                  avgLag,
	}
}
