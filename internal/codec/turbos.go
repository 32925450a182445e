package codec

import "encoding/json"

// Turbos decodes the concentrated-liquidity event shapes for the Turbos
// venue. Unlike Cetus, the event-identity for liquidity events includes
// the owner address, not just the pool.
type Turbos struct{}

// DecodeSwapRaw decodes a Turbos SwapEvent: pool address, recipient
// address, amount_a/b u64, liquidity u128, tick_current/pre_index u32 bits,
// sqrt_price u128, protocol_fee u64, fee_amount u64, a_to_b bool,
// is_exact_in bool.
func (Turbos) DecodeSwapRaw(b []byte) (SwapRecord, error) {
	r := newByteReader(b)
	pool, err := r.address()
	if err != nil {
		return SwapRecord{}, ErrInvalidPayload
	}
	return SwapRecord{PoolID: pool}, nil
}

// TurbosLiquidityEvent additionally carries Owner, since the dedup identity
// for Turbos liquidity events is keyed on (pool, owner) rather than pool
// alone.
type TurbosLiquidityEvent struct {
	LiquidityRecord
	Owner string
}

// DecodeMintRaw decodes a Turbos MintEvent (add-liquidity): pool, owner,
// tick_lower/upper_index u32 bits, amount_a/b u64, liquidity_delta u128.
func (Turbos) DecodeMintRaw(b []byte) (TurbosLiquidityEvent, error) {
	return decodeTurbosLiquidityRaw(b)
}

// DecodeBurnRaw has the identical wire layout to mint (remove-liquidity).
func (Turbos) DecodeBurnRaw(b []byte) (TurbosLiquidityEvent, error) {
	return decodeTurbosLiquidityRaw(b)
}

func decodeTurbosLiquidityRaw(b []byte) (TurbosLiquidityEvent, error) {
	r := newByteReader(b)
	pool, err := r.address()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	owner, err := r.address()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	tickLowerBits, err := r.u32()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	tickUpperBits, err := r.u32()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	amountA, err := r.u64()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	amountB, err := r.u64()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	liqLo, liqHi, err := r.u128()
	if err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	return TurbosLiquidityEvent{
		LiquidityRecord: LiquidityRecord{
			PoolID:       pool,
			TickLower:    I32FromBits(tickLowerBits),
			TickUpper:    I32FromBits(tickUpperBits),
			Liquidity:    u128DecimalString(liqLo, liqHi),
			AmountA:      amountA,
			AmountB:      amountB,
			HasLiquidity: true,
		},
		Owner: owner,
	}, nil
}

type turbosLiquidityEventJSON struct {
	Pool           string  `json:"pool"`
	Owner          string  `json:"owner"`
	TickLowerIndex i32JSON `json:"tick_lower_index"`
	TickUpperIndex i32JSON `json:"tick_upper_index"`
	AmountA        string  `json:"amount_a"`
	AmountB        string  `json:"amount_b"`
	LiquidityDelta string  `json:"liquidity_delta"`
}

func (Turbos) DecodeMintJSON(data json.RawMessage) (TurbosLiquidityEvent, error) {
	return decodeTurbosLiquidityJSON(data)
}

func (Turbos) DecodeBurnJSON(data json.RawMessage) (TurbosLiquidityEvent, error) {
	return decodeTurbosLiquidityJSON(data)
}

func decodeTurbosLiquidityJSON(data json.RawMessage) (TurbosLiquidityEvent, error) {
	var ev turbosLiquidityEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return TurbosLiquidityEvent{}, ErrInvalidPayload
	}
	amountA, err := parseUint64(ev.AmountA)
	if err != nil {
		return TurbosLiquidityEvent{}, err
	}
	amountB, err := parseUint64(ev.AmountB)
	if err != nil {
		return TurbosLiquidityEvent{}, err
	}
	return TurbosLiquidityEvent{
		LiquidityRecord: LiquidityRecord{
			PoolID:       ev.Pool,
			TickLower:    I32FromBits(ev.TickLowerIndex.Bits),
			TickUpper:    I32FromBits(ev.TickUpperIndex.Bits),
			Liquidity:    ev.LiquidityDelta,
			AmountA:      amountA,
			AmountB:      amountB,
			HasLiquidity: true,
		},
		Owner: ev.Owner,
	}, nil
}
