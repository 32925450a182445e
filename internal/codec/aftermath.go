package codec

import "encoding/json"

// Aftermath decodes the weighted constant-product swap event. The pool's
// on-chain state (fetched separately via RPC, not decoded here) stores
// balances and weights scaled by per-coin decimals; the handler divides
// only the balances by those scalars before upsert and neither reads nor
// stores the weights.
type Aftermath struct{}

// DecodeSwapRaw decodes an Aftermath SwapEventV2: pool_id address, issuer
// address, referrer Option<address>, types_in Vec<String>, amounts_in
// Vec<u64>, types_out Vec<String>, amounts_out Vec<u64>, reserves Vec<u64>.
// Only pool_id is needed by the core.
func (Aftermath) DecodeSwapRaw(b []byte) (SwapRecord, error) {
	r := newByteReader(b)
	pool, err := r.address()
	if err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: pool}, nil
}

type aftermathSwapEventJSON struct {
	PoolID string `json:"pool_id"`
}

func (Aftermath) DecodeSwapJSON(data json.RawMessage) (SwapRecord, error) {
	var ev aftermathSwapEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	if ev.PoolID == "" {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: ev.PoolID}, nil
}
