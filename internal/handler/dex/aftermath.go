package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/guregu/null"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/codec"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

const AftermathSwapEventType = "0xaftermath::pool::SwapEventV2"

// aftermathPoolFields mirrors the pool object's normalized, decimal-scaled
// state: raw balances keyed by coin type and the per-coin decimal scalar
// (10^decimals) needed to recover the human-readable reserve.
type aftermathPoolFields struct {
	Balances       map[string]string `json:"balances"`
	DecimalScalars map[string]string `json:"decimal_scalars"`
}

// Aftermath implements handler.Handler for the Aftermath weighted
// constant-product venue.
type Aftermath struct {
	rpc   rpc.Client
	store store.Store
	codec codec.Aftermath
}

func NewAftermath(rpcClient rpc.Client, st store.Store) *Aftermath {
	return &Aftermath{rpc: rpcClient, store: st}
}

func (h *Aftermath) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	if eventType != AftermathSwapEventType {
		return "", handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapRaw(contents)
	if err != nil {
		return "", handler.ErrInvalidPayload
	}
	return handler.Identity("aftermath", "swap", rec.PoolID), nil
}

func (h *Aftermath) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	if eventType != AftermathSwapEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapRaw(contents)
	if err != nil {
		return handler.Outcome{}, handler.ErrInvalidPayload
	}
	if err := h.refreshPool(ctx, rec.PoolID); err != nil {
		return handler.Outcome{}, err
	}
	return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "aftermath", PoolID: rec.PoolID}, nil
}

func (h *Aftermath) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	if eventType != AftermathSwapEventType {
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	rec, err := h.codec.DecodeSwapJSON(value)
	if err != nil {
		return handler.Outcome{}, err
	}
	if err := h.refreshPool(ctx, rec.PoolID); err != nil {
		return handler.Outcome{}, err
	}
	return handler.Outcome{Kind: handler.KindDEXSwap, Venue: "aftermath", PoolID: rec.PoolID}, nil
}

func (h *Aftermath) refreshPool(ctx context.Context, poolID string) error {
	obj, err := h.rpc.GetObjectWithOptions(ctx, poolID)
	if err != nil {
		return fmt.Errorf("aftermath: fetch pool %s: %w", poolID, err)
	}

	var f aftermathPoolFields
	if len(obj.Fields) > 0 {
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return handler.ErrInvalidPayload
		}
	}

	coins := handler.PoolCoinsFromType(obj.Type)
	reserves := make([]string, 0, len(coins))
	for _, coin := range coins {
		reserves = append(reserves, descaleBalance(f.Balances[coin], f.DecimalScalars[coin]))
	}

	return h.store.UpsertPool(ctx, store.PoolUpsert{
		Address:  poolID,
		Venue:    "aftermath",
		Coins:    coins,
		Reserves: reserves,
		Paused:   null.Bool{},
	})
}

// descaleBalance divides a raw on-chain balance by its per-coin decimal
// scalar, rendering the human-readable reserve as a base-10 decimal
// string.
func descaleBalance(balance, scalar string) string {
	balInt, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return "0"
	}
	scalarInt, ok := new(big.Int).SetString(scalar, 10)
	if !ok || scalarInt.Sign() == 0 {
		return balInt.String()
	}
	return new(big.Rat).SetFrac(balInt, scalarInt).FloatString(9)
}
