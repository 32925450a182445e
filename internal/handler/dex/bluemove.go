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

const BluemoveSwapEventType = "0xbluemove::swap::SwapEvent"

type bluemovePoolFields struct {
	ReserveX string `json:"reserve_x"`
	ReserveY string `json:"reserve_y"`
}

// Bluemove implements handler.Handler for the Bluemove constant-product
// venue. No tick writes are ever produced.
type Bluemove struct {
	rpc   rpc.Client
	store store.Store
	codec codec.Bluemove
}

func NewBluemove(rpcClient rpc.Client, st store.Store) *Bluemove {
	return &Bluemove{rpc: rpcClient, store: st}
}

func (h *Bluemove) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	if eventType != BluemoveSwapEventType {
		return "", handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapRaw(contents)
	if err != nil {
		return "", handler.ErrInvalidPayload
	}
	return handler.Identity("bluemove", "swap", rec.PoolID), nil
}

func (h *Bluemove) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	if eventType != BluemoveSwapEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapRaw(contents)
	if err != nil {
		return handler.Outcome{}, handler.ErrInvalidPayload
	}
	if err := h.refreshPool(ctx, rec.PoolID); err != nil {
		return handler.Outcome{}, err
	}
	return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "bluemove", PoolID: rec.PoolID}, nil
}

func (h *Bluemove) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	if eventType != BluemoveSwapEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapJSON(value)
	if err != nil {
		return handler.Outcome{}, err
	}
	if err := h.refreshPool(ctx, rec.PoolID); err != nil {
		return handler.Outcome{}, err
	}
	return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "bluemove", PoolID: rec.PoolID}, nil
}

func (h *Bluemove) refreshPool(ctx context.Context, poolID string) error {
	obj, err := h.rpc.GetObjectWithOptions(ctx, poolID)
	if err != nil {
		return fmt.Errorf("bluemove: fetch pool %s: %w", poolID, err)
	}

	var f bluemovePoolFields
	if len(obj.Fields) > 0 {
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return handler.ErrInvalidPayload
		}
	}

	return h.store.UpsertPool(ctx, store.PoolUpsert{
		Address:  poolID,
		Venue:    "bluemove",
		Coins:    handler.PoolCoinsFromType(obj.Type),
		Reserves: []string{f.ReserveX, f.ReserveY},
		Paused:   null.Bool{},
	})
}
