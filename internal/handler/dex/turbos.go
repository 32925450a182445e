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

const (
	TurbosSwapEventType = "0xturbos::pool::SwapEvent"
	TurbosMintEventType = "0xturbos::pool::MintEvent"
	TurbosBurnEventType = "0xturbos::pool::BurnEvent"
)

type turbosPoolFields struct {
	SqrtPrice        string `json:"sqrt_price"`
	TickCurrentIndex struct {
		Bits uint32 `json:"bits"`
	} `json:"tick_current_index"`
	Liquidity   string `json:"liquidity"`
	Fee         string `json:"fee"`
	TickSpacing string `json:"tick_spacing"`
	Unlocked    bool   `json:"unlocked"`
}

// Turbos implements handler.Handler for the Turbos venue. Unlike Cetus,
// Turbos liquidity events key their dedup identity on (pool, owner) since
// two owners can touch the same pool's ticks independently within a
// checkpoint.
type Turbos struct {
	rpc   rpc.Client
	store store.Store
	codec codec.Turbos
}

func NewTurbos(rpcClient rpc.Client, st store.Store) *Turbos {
	return &Turbos{rpc: rpcClient, store: st}
}

func (h *Turbos) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	switch eventType {
	case TurbosSwapEventType:
		rec, err := h.codec.DecodeSwapRaw(contents)
		if err != nil {
			return "", handler.ErrInvalidPayload
		}
		return handler.Identity("turbos", "swap", rec.PoolID), nil
	case TurbosMintEventType, TurbosBurnEventType:
		ev, err := h.decodeLiquidityRaw(eventType, contents)
		if err != nil {
			return "", err
		}
		return handler.Identity("turbos", "liquidity", ev.PoolID, ev.Owner), nil
	default:
		return "", handler.ErrUnknownEventType
	}
}

func (h *Turbos) decodeLiquidityRaw(eventType string, contents []byte) (codec.TurbosLiquidityEvent, error) {
	var (
		ev  codec.TurbosLiquidityEvent
		err error
	)
	if eventType == TurbosMintEventType {
		ev, err = h.codec.DecodeMintRaw(contents)
	} else {
		ev, err = h.codec.DecodeBurnRaw(contents)
	}
	if err != nil {
		return codec.TurbosLiquidityEvent{}, handler.ErrInvalidPayload
	}
	return ev, nil
}

func (h *Turbos) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	switch eventType {
	case TurbosSwapEventType:
		rec, err := h.codec.DecodeSwapRaw(contents)
		if err != nil {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		if err := h.refreshPool(ctx, rec.PoolID); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "turbos", PoolID: rec.PoolID}, nil
	case TurbosMintEventType, TurbosBurnEventType:
		ev, err := h.decodeLiquidityRaw(eventType, contents)
		if err != nil {
			return handler.Outcome{}, err
		}
		if err := h.applyLiquidity(ctx, ev.LiquidityRecord); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "turbos", PoolID: ev.PoolID}, nil
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

func (h *Turbos) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	switch eventType {
	case TurbosSwapEventType:
		var ev struct {
			Pool string `json:"pool"`
		}
		if err := json.Unmarshal(value, &ev); err != nil || ev.Pool == "" {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		if err := h.refreshPool(ctx, ev.Pool); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "turbos", PoolID: ev.Pool}, nil
	case TurbosMintEventType:
		ev, err := h.codec.DecodeMintJSON(value)
		if err != nil {
			return handler.Outcome{}, err
		}
		if err := h.applyLiquidity(ctx, ev.LiquidityRecord); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "turbos", PoolID: ev.PoolID}, nil
	case TurbosBurnEventType:
		ev, err := h.codec.DecodeBurnJSON(value)
		if err != nil {
			return handler.Outcome{}, err
		}
		if err := h.applyLiquidity(ctx, ev.LiquidityRecord); err != nil {
			return handler.Outcome{}, err
		}
		return handler.Outcome{Kind: handler.KindDEXLiquidity, Venue: "turbos", PoolID: ev.PoolID}, nil
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

func (h *Turbos) refreshPool(ctx context.Context, poolID string) error {
	obj, err := h.rpc.GetObjectWithOptions(ctx, poolID)
	if err != nil {
		return fmt.Errorf("turbos: fetch pool %s: %w", poolID, err)
	}

	var f turbosPoolFields
	if len(obj.Fields) > 0 {
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return handler.ErrInvalidPayload
		}
	}

	tick := codec.I32FromBits(f.TickCurrentIndex.Bits)

	return h.store.UpsertPool(ctx, store.PoolUpsert{
		Address:     poolID,
		Venue:       "turbos",
		Coins:       handler.PoolCoinsFromType(obj.Type),
		SqrtPrice:   null.StringFrom(f.SqrtPrice),
		Liquidity:   null.StringFrom(f.Liquidity),
		CurrentTick: null.IntFrom(int64(tick)),
		TickSpacing: parseIntField(f.TickSpacing),
		FeeRateBps:  parseIntField(f.Fee),
		Paused:      null.BoolFrom(!f.Unlocked),
	})
}

func (h *Turbos) applyLiquidity(ctx context.Context, liq codec.LiquidityRecord) error {
	for _, tick := range []int32{liq.TickLower, liq.TickUpper} {
		u := store.PoolTickUpsert{PoolAddress: liq.PoolID, TickIndex: tick}
		if liq.HasLiquidity {
			u.LiquidityNet = null.StringFrom(liq.Liquidity)
		}
		if err := h.store.UpsertPoolTick(ctx, u); err != nil {
			return fmt.Errorf("turbos: upsert tick: %w", err)
		}
	}
	return nil
}
