package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersFoldMinMaxAndTotals(t *testing.T) {
	c := NewCounters()
	c.RecordCheckpoint(10, 100, 1, 1000)
	c.RecordCheckpoint(30, 50, 2, 2000)
	c.RecordCheckpoint(20, 300, 3, 3000)

	m := c.Snapshot()
	require.Equal(t, uint64(3), m.TotalProcessedCheckpoints)
	require.Equal(t, uint64(60), m.TotalProcessingTimeMs)
	require.Equal(t, uint64(10), m.MinProcessingTimeMs)
	require.Equal(t, uint64(30), m.MaxProcessingTimeMs)
	require.Equal(t, uint64(50), m.MinLagMs)
	require.Equal(t, uint64(300), m.MaxLagMs)
	require.Equal(t, uint64(3), m.Watermark)
	require.Equal(t, uint64(3000), m.LatestTimestampMs)
	require.InDelta(t, 20.0, m.AvgProcessingTimeMs, 0.001)
	require.InDelta(t, 150.0, m.AvgLagMs, 0.001)
}

func TestCountersWatermarkNeverRegresses(t *testing.T) {
	c := NewCounters()
	c.RecordCheckpoint(1, 1, 9, 900)
	c.RecordCheckpoint(1, 1, 7, 700) // re-delivered older checkpoint
	require.Equal(t, uint64(9), c.Watermark())
	require.Equal(t, uint64(900), c.LatestTimestampMs())
}

func TestCountersEmptySnapshotHasZeroAverages(t *testing.T) {
	m := NewCounters().Snapshot()
	require.Zero(t, m.AvgProcessingTimeMs)
	require.Zero(t, m.AvgLagMs)
	require.Zero(t, m.MinProcessingTimeMs, "the infinity sentinel is not exported")
	require.Zero(t, m.MinLagMs)
}

func TestSeedFromRestoresAveragesAcrossRestart(t *testing.T) {
	before := NewCounters()
	for i := 0; i < 1000; i++ {
		before.RecordCheckpoint(10, 100, uint64(i+1), uint64(i+1)*1000)
	}
	persisted := before.Snapshot()

	// Restart: a fresh Counters seeded from the persisted row must keep
	// the next computed average representative of the prior 1,000
	// checkpoints, with total time reconstructed rather than reset.
	after := NewCounters()
	after.SeedFrom(&persisted)
	after.RecordCheckpoint(1010, 100, 1001, 1001000)

	m := after.Snapshot()
	require.Equal(t, uint64(1001), m.TotalProcessedCheckpoints)
	require.InDelta(t, (1000*10.0+1010.0)/1001.0, m.AvgProcessingTimeMs, 0.001)
	require.Equal(t, uint64(10), m.MinProcessingTimeMs)
	require.Equal(t, uint64(1010), m.MaxProcessingTimeMs)
	require.Equal(t, uint64(1001), m.Watermark)
}

func TestSeedFromNilLeavesDefaults(t *testing.T) {
	c := NewCounters()
	c.SeedFrom(nil)
	require.Equal(t, uint64(math.MaxUint64), c.minProcessingTimeMs.Load())
	require.Zero(t, c.Watermark())
}
