// Package reader defines the inbound checkpoint contract. The concrete
// raw-checkpoint reader ships separately; this package only describes the
// interface the checkpoint worker consumes, plus an in-memory Source used
// by tests and ad-hoc inspection tooling.
package reader

import (
	"context"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
)

// Source delivers checkpoints in ascending sequence order, at-least-once,
// starting at a configurable initial sequence. Callers drain both channels
// until ctx is cancelled; cancellation is cooperative — the source stops
// delivering and the channels close.
type Source interface {
	Checkpoints(ctx context.Context) (<-chan chain.Checkpoint, <-chan error)
}

// SliceSource is a Source backed by a fixed, in-memory slice of
// checkpoints, used by tests to exercise the checkpoint worker without a
// live node.
type SliceSource struct {
	checkpoints []chain.Checkpoint
}

func NewSliceSource(checkpoints []chain.Checkpoint) *SliceSource {
	return &SliceSource{checkpoints: checkpoints}
}

// Checkpoints implements Source by replaying the configured slice and then
// closing both channels, as if the upstream had no more data.
func (s *SliceSource) Checkpoints(ctx context.Context) (<-chan chain.Checkpoint, <-chan error) {
	out := make(chan chain.Checkpoint)
	errs := make(chan error)

	go func() {
		defer close(out)
		defer close(errs)
		for _, cp := range s.checkpoints {
			select {
			case <-ctx.Done():
				return
			case out <- cp:
			}
		}
	}()

	return out, errs
}
