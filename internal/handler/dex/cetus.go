// Package dex implements the handlers for the concentrated-liquidity and
// constant-product DEX venue families.
package dex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guregu/null"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/codec"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// Event type identifiers recognized by the Cetus handler and wired into
// the dispatch registry.
const (
	CetusSwapEventType            = "0xcetus::pool::SwapEvent"
	CetusAddLiquidityEventType    = "0xcetus::pool::AddLiquidityEvent"
	CetusRemoveLiquidityEventType = "0xcetus::pool::RemoveLiquidityEvent"
)

// cetusPoolFields is the content.fields shape of a Cetus Pool object,
// enough of it to fill the canonical Pool record.
type cetusPoolFields struct {
	CurrentSqrtPrice string `json:"current_sqrt_price"`
	CurrentTickIndex struct {
		Bits uint32 `json:"bits"`
	} `json:"current_tick_index"`
	Liquidity   string `json:"liquidity"`
	FeeRate     string `json:"fee_rate"`
	TickSpacing string `json:"tick_spacing"`
	IsPause     bool   `json:"is_pause"`
}

// Cetus implements handler.Handler for the Cetus venue: concentrated
// liquidity, keyed on pool id alone (no owner in the dedup identity).
type Cetus struct {
	rpc   rpc.Client
	store store.Store
	codec codec.Cetus
}

func NewCetus(rpcClient rpc.Client, st store.Store) *Cetus {
	return &Cetus{rpc: rpcClient, store: st}
}

func (h *Cetus) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	poolID, _, err := h.poolFromRaw(eventType, contents)
	if err != nil {
		return "", err
	}
	return handler.Identity("cetus", identityKind(eventType), poolID), nil
}

func identityKind(eventType string) string {
	if eventType == CetusSwapEventType {
		return "swap"
	}
	return "liquidity"
}

// poolFromRaw decodes just enough of the raw event to name the pool id,
// shared by EventIdentity and ProcessRawEvent.
func (h *Cetus) poolFromRaw(eventType string, contents []byte) (poolID string, liq codec.LiquidityRecord, err error) {
	switch eventType {
	case CetusSwapEventType:
		rec, derr := h.codec.DecodeSwapRaw(contents)
		if derr != nil {
			return "", codec.LiquidityRecord{}, handler.ErrInvalidPayload
		}
		return rec.PoolID, codec.LiquidityRecord{}, nil
	case CetusAddLiquidityEventType:
		rec, derr := h.codec.DecodeAddLiquidityRaw(contents)
		if derr != nil {
			return "", codec.LiquidityRecord{}, handler.ErrInvalidPayload
		}
		return rec.PoolID, rec, nil
	case CetusRemoveLiquidityEventType:
		rec, derr := h.codec.DecodeRemoveLiquidityRaw(contents)
		if derr != nil {
			return "", codec.LiquidityRecord{}, handler.ErrInvalidPayload
		}
		return rec.PoolID, rec, nil
	default:
		return "", codec.LiquidityRecord{}, handler.ErrUnknownEventType
	}
}

func (h *Cetus) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	poolID, liq, err := h.poolFromRaw(eventType, contents)
	if err != nil {
		return handler.Outcome{}, err
	}

	if eventType == CetusSwapEventType {
		if err := h.refreshPool(ctx, poolID); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "cetus", PoolID: poolID}, nil
	}

	if err := h.applyLiquidity(ctx, poolID, liq); err != nil {
		return handler.Outcome{}, err
	}
	return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "cetus", PoolID: poolID}, nil
}

func (h *Cetus) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	switch eventType {
	case CetusSwapEventType:
		var ev struct {
			Pool string `json:"pool"`
		}
		if err := json.Unmarshal(value, &ev); err != nil || ev.Pool == "" {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		if err := h.refreshPool(ctx, ev.Pool); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "cetus", PoolID: ev.Pool}, nil
	case CetusAddLiquidityEventType:
		liq, err := h.codec.DecodeAddLiquidityJSON(value)
		if err != nil {
			return handler.Outcome{}, err
		}
		if err := h.applyLiquidity(ctx, liq.PoolID, liq); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "cetus", PoolID: liq.PoolID}, nil
	case CetusRemoveLiquidityEventType:
		liq, err := h.codec.DecodeRemoveLiquidityJSON(value)
		if err != nil {
			return handler.Outcome{}, err
		}
		if err := h.applyLiquidity(ctx, liq.PoolID, liq); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "cetus", PoolID: liq.PoolID}, nil
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

// refreshPool fetches the pool's current on-chain state and upserts the
// canonical Pool record; a swap only signals that the pool changed, the
// chain stays the source of truth for its fields.
func (h *Cetus) refreshPool(ctx context.Context, poolID string) error {
	obj, err := h.rpc.GetObjectWithOptions(ctx, poolID)
	if err != nil {
		return fmt.Errorf("cetus: fetch pool %s: %w", poolID, err)
	}

	var f cetusPoolFields
	if len(obj.Fields) > 0 {
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return handler.ErrInvalidPayload
		}
	}

	tick := codec.I32FromBits(f.CurrentTickIndex.Bits)

	return h.store.UpsertPool(ctx, store.PoolUpsert{
		Address:     poolID,
		Venue:       "cetus",
		Coins:       handler.PoolCoinsFromType(obj.Type),
		SqrtPrice:   null.StringFrom(f.CurrentSqrtPrice),
		Liquidity:   null.StringFrom(f.Liquidity),
		CurrentTick: null.IntFrom(int64(tick)),
		TickSpacing: parseIntField(f.TickSpacing),
		FeeRateBps:  parseIntField(f.FeeRate),
		Paused:      null.BoolFrom(f.IsPause),
	})
}

// applyLiquidity upserts the pool tick(s) touched by an add/remove
// liquidity event. Cetus liquidity events touch both bounds of the
// position's range.
func (h *Cetus) applyLiquidity(ctx context.Context, poolID string, liq codec.LiquidityRecord) error {
	for _, tick := range []int32{liq.TickLower, liq.TickUpper} {
		u := store.PoolTickUpsert{PoolAddress: poolID, TickIndex: tick}
		if liq.HasLiquidity {
			u.LiquidityNet = null.StringFrom(liq.Liquidity)
		}
		if err := h.store.UpsertPoolTick(ctx, u); err != nil {
			return fmt.Errorf("cetus: upsert tick: %w", err)
		}
	}
	return nil
}

func parseIntField(s string) null.Int {
	if s == "" {
		return null.Int{}
	}
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return null.Int{}
	}
	return null.IntFrom(v)
}
