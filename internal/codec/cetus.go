package codec

import "encoding/json"

// Cetus decodes the concentrated-liquidity-market-maker event shapes for
// the Cetus venue: SwapEvent, AddLiquidityEvent, RemoveLiquidityEvent.
type Cetus struct{}

// DecodeSwapRaw decodes a Cetus SwapEvent. Layout: atob bool, pool address,
// partner address, amount_in/out u64, ref_amount u64, fee_amount u64,
// vault_a/b_amount u64, before/after_sqrt_price u128, steps u64.
func (Cetus) DecodeSwapRaw(b []byte) (SwapRecord, error) {
	r := newByteReader(b)
	if _, err := r.bool(); err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	pool, err := r.address()
	if err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: pool}, nil
}

type cetusLiquidityEventJSON struct {
	Pool           string  `json:"pool"`
	Position       string  `json:"position"`
	TickLower      i32JSON `json:"tick_lower"`
	TickUpper      i32JSON `json:"tick_upper"`
	Liquidity      string  `json:"liquidity"`
	AfterLiquidity string  `json:"after_liquidity"`
	AmountA        string  `json:"amount_a"`
	AmountB        string  `json:"amount_b"`
}

// i32JSON mirrors the I32{bits: u32} wrapper tick indices are serialized
// through on chain.
type i32JSON struct {
	Bits uint32 `json:"bits"`
}

// DecodeAddLiquidityRaw decodes a Cetus AddLiquidityEvent: pool address,
// position address, tick_lower/upper as u32 bits, liquidity/after_liquidity
// u128, amount_a/b u64.
func (Cetus) DecodeAddLiquidityRaw(b []byte) (LiquidityRecord, error) {
	return decodeCetusLikeLiquidityRaw(b)
}

// DecodeRemoveLiquidityRaw has the identical wire layout to add-liquidity.
func (Cetus) DecodeRemoveLiquidityRaw(b []byte) (LiquidityRecord, error) {
	return decodeCetusLikeLiquidityRaw(b)
}

func decodeCetusLikeLiquidityRaw(b []byte) (LiquidityRecord, error) {
	r := newByteReader(b)
	pool, err := r.address()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	position, err := r.address()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	tickLowerBits, err := r.u32()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	tickUpperBits, err := r.u32()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	liqLo, liqHi, err := r.u128()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	afterLo, afterHi, err := r.u128()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	amountA, err := r.u64()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	amountB, err := r.u64()
	if err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	return LiquidityRecord{
		PoolID:         pool,
		PositionID:     position,
		TickLower:      I32FromBits(tickLowerBits),
		TickUpper:      I32FromBits(tickUpperBits),
		Liquidity:      u128DecimalString(liqLo, liqHi),
		AfterLiquidity: u128DecimalString(afterLo, afterHi),
		AmountA:        amountA,
		AmountB:        amountB,
		HasLiquidity:   true,
	}, nil
}

// DecodeAddLiquidityJSON decodes the read-API JSON form, where liquidity
// fields arrive as decimal strings and ticks as {"bits": n} objects.
func (Cetus) DecodeAddLiquidityJSON(data json.RawMessage) (LiquidityRecord, error) {
	return decodeCetusLikeLiquidityJSON(data)
}

func (Cetus) DecodeRemoveLiquidityJSON(data json.RawMessage) (LiquidityRecord, error) {
	return decodeCetusLikeLiquidityJSON(data)
}

func decodeCetusLikeLiquidityJSON(data json.RawMessage) (LiquidityRecord, error) {
	var ev cetusLiquidityEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LiquidityRecord{}, ErrInvalidPayload
	}
	amountA, err := parseUint64(ev.AmountA)
	if err != nil {
		return LiquidityRecord{}, err
	}
	amountB, err := parseUint64(ev.AmountB)
	if err != nil {
		return LiquidityRecord{}, err
	}
	return LiquidityRecord{
		PoolID:         ev.Pool,
		PositionID:     ev.Position,
		TickLower:      I32FromBits(ev.TickLower.Bits),
		TickUpper:      I32FromBits(ev.TickUpper.Bits),
		Liquidity:      ev.Liquidity,
		AfterLiquidity: ev.AfterLiquidity,
		AmountA:        amountA,
		AmountB:        amountB,
		HasLiquidity:   true,
	}, nil
}
