// Package oracle implements the handler for Pyth-style price feed update
// events.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/codec"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

const PythPriceFeedUpdateEventType = "0xpyth::pyth::PriceFeedUpdateEvent"

// Pyth applies a price-feed update to every Coin row that references the
// feed id, passing the signed-magnitude spot/EMA/exponent fields through
// unchanged rather than recomposing a signed value in Go.
type Pyth struct {
	store store.Store
	codec codec.Pyth
}

func NewPyth(st store.Store) *Pyth {
	return &Pyth{store: st}
}

func (h *Pyth) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	if eventType != PythPriceFeedUpdateEventType {
		return "", handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeUpdateRaw(contents)
	if err != nil {
		return "", handler.ErrInvalidPayload
	}
	return handler.Identity("pyth", "update", codec.FeedIDHex(rec.FeedIDBytes)), nil
}

func (h *Pyth) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	if eventType != PythPriceFeedUpdateEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeUpdateRaw(contents)
	if err != nil {
		return handler.Outcome{}, handler.ErrInvalidPayload
	}
	return h.applyUpdate(ctx, rec)
}

func (h *Pyth) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	if eventType != PythPriceFeedUpdateEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeUpdateJSON(value)
	if err != nil {
		return handler.Outcome{}, err
	}
	return h.applyUpdate(ctx, rec)
}

func (h *Pyth) applyUpdate(ctx context.Context, rec codec.PriceUpdateRecord) (handler.Outcome, error) {
	feedID := codec.FeedIDHex(rec.FeedIDBytes)
	if err := h.store.ApplyPriceSnapshot(ctx, store.PriceSnapshotUpsert{
		FeedID:        feedID,
		SpotMagnitude: rec.SpotMagnitude,
		SpotNegative:  rec.SpotNegative,
		EMAMagnitude:  rec.EMAMagnitude,
		EMANegative:   rec.EMANegative,
		ExpoMagnitude: rec.ExpoMagnitude,
		ExpoNegative:  rec.ExpoNegative,
		PublishTimeMs: rec.PublishTimestamp,
	}); err != nil {
		return handler.Outcome{}, fmt.Errorf("pyth: apply price snapshot: %w", err)
	}
	return handler.Outcome{
		Kind:          handler.KindOraclePrice,
		FeedID:        feedID,
		SpotMagnitude: rec.SpotMagnitude,
		SpotNegative:  rec.SpotNegative,
		PublishTimeMs: rec.PublishTimestamp,
	}, nil
}
