package codec

// SwapRecord is the canonical record produced by every DEX swap codec,
// regardless of venue family. Fields a given venue does not carry are
// left at their zero value.
type SwapRecord struct {
	PoolID string
}

// LiquidityRecord is produced by concentrated-liquidity add/remove-liquidity
// events. TickLower/TickUpper are already converted to signed ticks.
// Liquidity/AfterLiquidity are u128 magnitudes rendered as decimal
// strings; HasLiquidity reports whether the event carried them at all —
// when false the handler persists a presence-only tick record.
type LiquidityRecord struct {
	PoolID         string
	PositionID     string
	TickLower      int32
	TickUpper      int32
	Liquidity      string
	AfterLiquidity string
	AmountA        uint64
	AmountB        uint64
	HasLiquidity   bool
}

// LendingActionRecord is the canonical shape for deposit/withdraw/borrow/repay
// events across asset-index (Navi) and per-obligation (Scallop, SuiLend)
// lending platforms. ObligationID is empty for asset-index platforms.
type LendingActionRecord struct {
	Sender       string
	ObligationID string
	ReserveIndex uint8
	CoinType     string
	Amount       uint64
}

// PriceUpdateRecord is the canonical oracle price update. Price and Expo
// carry the on-chain signed-magnitude encoding unchanged; callers
// recompose the signed exponent themselves.
type PriceUpdateRecord struct {
	FeedIDBytes      []byte
	SpotMagnitude    uint64
	SpotNegative     bool
	EMAMagnitude     uint64
	EMANegative      bool
	ExpoMagnitude    uint64
	ExpoNegative     bool
	PublishTimestamp uint64
}
