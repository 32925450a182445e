package telemetry

import (
	"context"
	"fmt"

	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// SnapshotInterval is how many processed checkpoints separate persisted
// Metric rows.
const SnapshotInterval = 1000

// Snapshotter persists a Metric row from Counters every SnapshotInterval
// processed checkpoints.
type Snapshotter struct {
	store    store.Store
	counters *Counters
}

func NewSnapshotter(s store.Store, counters *Counters) *Snapshotter {
	return &Snapshotter{store: s, counters: counters}
}

// MaybeSnapshot persists a Metric row if processedCount lands on the
// snapshot boundary.
func (s *Snapshotter) MaybeSnapshot(ctx context.Context, processedCount uint64) error {
	if processedCount == 0 || processedCount%SnapshotInterval != 0 {
		return nil
	}
	m := s.counters.Snapshot()
	if err := s.store.InsertMetric(ctx, m); err != nil {
		return fmt.Errorf("telemetry: insert metric snapshot: %w", err)
	}
	return nil
}
