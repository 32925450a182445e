package codec

import "encoding/json"

// Bluemove decodes the plain constant-product swap event. No tick writes
// are ever produced for this family.
type Bluemove struct{}

// DecodeSwapRaw decodes a Bluemove SwapEvent: pool_id address, user
// address, then four (token type String, amount u64) pairs for
// x_in/y_in/x_out/y_out. Only pool_id is needed by the core.
func (Bluemove) DecodeSwapRaw(b []byte) (SwapRecord, error) {
	r := newByteReader(b)
	pool, err := r.address()
	if err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: pool}, nil
}

type bluemoveSwapEventJSON struct {
	PoolID string `json:"pool_id"`
}

func (Bluemove) DecodeSwapJSON(data json.RawMessage) (SwapRecord, error) {
	var ev bluemoveSwapEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	if ev.PoolID == "" {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: ev.PoolID}, nil
}
