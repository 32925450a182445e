// Package checkpoint implements the per-checkpoint processing pipeline:
// deterministic intra-checkpoint dedup, bounded-concurrency dispatch,
// watermark advance, telemetry update, lag-alert scheduling and periodic
// metrics snapshots.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/logging"
	"github.com/sui-indexer/onchain-indexer/internal/registry"
	"github.com/sui-indexer/onchain-indexer/internal/store"
	"github.com/sui-indexer/onchain-indexer/internal/telemetry"
)

// dispatchConcurrency bounds the per-checkpoint event fan-out.
const dispatchConcurrency = 10

// dispatchItem is one surviving (event, tx digest) pair after dedup.
type dispatchItem struct {
	handler   handler.Handler
	eventType string
	sender    string
	contents  []byte
	txDigest  string
}

// Clock abstracts wall-clock time so tests can drive lag/alert scenarios
// deterministically without sleeping.
type Clock func() time.Time

// Worker runs the checkpoint-processing algorithm over a Source.
type Worker struct {
	registry    *registry.Handlers
	counters    *telemetry.Counters
	alert       *telemetry.AlertSchedule
	snapshotter *telemetry.Snapshotter
	logger      *logging.ComponentLogger
	clock       Clock

	devMode        bool
	startSeq       uint64
	lagThresholdMs int64
}

// Config carries the per-worker settings sourced from config.Config.
type Config struct {
	DevMode               bool
	StartCheckpointNumber uint64
	LagThresholdMs        int64
}

func NewWorker(reg *registry.Handlers, counters *telemetry.Counters, alert *telemetry.AlertSchedule, snapshotter *telemetry.Snapshotter, logger *logging.ComponentLogger, cfg Config) *Worker {
	return &Worker{
		registry:       reg,
		counters:       counters,
		alert:          alert,
		snapshotter:    snapshotter,
		logger:         logger,
		clock:          time.Now,
		devMode:        cfg.DevMode,
		startSeq:       cfg.StartCheckpointNumber,
		lagThresholdMs: cfg.LagThresholdMs,
	}
}

// Run drains checkpoints from the given channels until either closes, or
// ctx is cancelled, or (in dev mode) one checkpoint has been processed.
// Cancellation is cooperative: a checkpoint already being dispatched is
// allowed to finish before Run returns.
func (w *Worker) Run(ctx context.Context, checkpoints <-chan chain.Checkpoint, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("checkpoint: source error: %w", err)
			}
		case cp, ok := <-checkpoints:
			if !ok {
				return nil
			}
			if err := w.Process(ctx, cp); err != nil {
				return err
			}
			if w.devMode {
				return nil
			}
		}
	}
}

// Process runs one checkpoint through the full algorithm: dedup, bounded
// dispatch, telemetry, watermark advance, lag alert, periodic snapshot.
// A database failure anywhere in dispatch aborts the checkpoint without
// advancing the watermark, so it will be re-delivered; every other
// per-event failure is logged and skipped.
func (w *Worker) Process(ctx context.Context, cp chain.Checkpoint) error {
	// Dev-mode gate: a single checkpoint past the configured start is all a
	// debug run ever processes.
	if w.devMode && cp.SequenceNumber > w.startSeq+1 {
		return nil
	}

	start := w.clock()

	items, eventCount, dedupedCount := w.dedupe(cp)

	succeeded, failed, err := w.dispatch(ctx, items)
	if err != nil {
		return fmt.Errorf("checkpoint %d: %w", cp.SequenceNumber, err)
	}

	elapsed := w.clock().Sub(start)
	lagMs := w.clock().UnixMilli() - int64(cp.TimestampMs)
	if lagMs < 0 {
		lagMs = 0
	}

	w.counters.RecordCheckpoint(uint64(elapsed.Milliseconds()), uint64(lagMs), cp.SequenceNumber, cp.TimestampMs)
	telemetry.ObserveCheckpoint(w.counters.Watermark(), lagMs, dedupedCount, failed, elapsed.Seconds())

	fires := w.alert.Evaluate(w.clock().Unix(), lagMs, w.lagThresholdMs)
	telemetry.SetAlertBackoffFactor(w.alert.Factor())
	if fires {
		w.logger.Warn().
			Uint64("sequence_number", cp.SequenceNumber).
			Int64("lag_ms", lagMs).
			Int32("backoff_factor", w.alert.Factor()).
			Msg("checkpoint lag exceeds threshold")
	}

	if err := w.snapshotter.MaybeSnapshot(ctx, w.counters.Snapshot().TotalProcessedCheckpoints); err != nil {
		w.logger.Error().Err(err).Msg("metrics snapshot failed")
	}

	w.logger.LogCheckpoint(logging.CheckpointMetrics{
		SequenceNumber:   cp.SequenceNumber,
		TransactionCount: len(cp.Transactions),
		EventCount:       eventCount,
		DedupedCount:     dedupedCount,
		Succeeded:        succeeded,
		Failed:           failed,
		ProcessingTime:   elapsed,
		LagMs:            lagMs,
	})

	return nil
}

// dedupe builds identity -> (event, tx digest) by walking transactions and
// their events in delivery order, overwriting any prior entry for the
// same identity, so the latest occurrence per identity survives. Events
// with no registered handler are ignored silently; the registry
// partitions already gate whole venue families.
func (w *Worker) dedupe(cp chain.Checkpoint) (items []dispatchItem, eventCount, dedupedCount int) {
	byIdentity := make(map[chain.Identity]dispatchItem)
	order := make([]chain.Identity, 0)

	for _, tx := range cp.Transactions {
		for _, ev := range tx.Events {
			eventCount++
			h := w.registry.Lookup(ev.Type)
			if h == nil {
				continue
			}
			identity, err := h.EventIdentity(ev.Type, ev.Contents)
			if err != nil {
				// An unparseable identity is keyed by event type and
				// transaction digest, so it never collapses into a valid
				// event's identity; the event is still dispatched, and
				// ProcessRawEvent will surface and log the same error.
				identity = chain.Identity(fmt.Sprintf("invalid|%s|%s", ev.Type, tx.Digest))
			}
			if _, exists := byIdentity[identity]; !exists {
				order = append(order, identity)
			} else {
				dedupedCount++
			}
			byIdentity[identity] = dispatchItem{
				handler:   h,
				eventType: ev.Type,
				sender:    ev.Sender,
				contents:  ev.Contents,
				txDigest:  tx.Digest,
			}
		}
	}

	items = make([]dispatchItem, 0, len(order))
	for _, id := range order {
		items = append(items, byIdentity[id])
	}
	return items, eventCount, dedupedCount
}

// dispatch runs the surviving items through their handlers under the
// concurrency bound. Handlers are commutative across distinct identities,
// so dispatch order is unconstrained beyond the semaphore.
func (w *Worker) dispatch(ctx context.Context, items []dispatchItem) (succeeded, failed int, fatalErr error) {
	sem := semaphore.NewWeighted(dispatchConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	type result struct {
		outcome   handler.Outcome
		eventType string
		err       error
	}
	results := make(chan result, len(items))

	for _, item := range items {
		item := item
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcome, err := item.handler.ProcessRawEvent(gctx, item.eventType, item.sender, item.contents, item.txDigest)
			results <- result{outcome: outcome, eventType: item.eventType, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	close(results)

	for r := range results {
		if r.err == nil {
			succeeded++
			w.logger.Debug().
				Str("event_type", r.eventType).
				Str("outcome", r.outcome.Kind.String()).
				Msg("event processed")
			continue
		}
		if isDatabaseError(r.err) {
			return succeeded, failed, r.err
		}
		failed++
		w.logger.Error().Err(r.err).Str("event_type", r.eventType).Msg("event handler failed")
	}

	return succeeded, failed, nil
}

// isDatabaseError reports whether err originated from the store layer,
// which fails the whole checkpoint. Everything else a handler returns —
// InvalidPayload, UnknownEventType, OwnershipMismatch, NotFound, or an
// RPC failure the client ultimately gave up retrying — is event-level
// and non-fatal.
func isDatabaseError(err error) bool {
	return errors.Is(err, store.ErrDatabase)
}
