// Package store implements the entity-refresh service: idempotent
// create-or-update persistence for every tracked entity in the data
// model, plus the shared-object read-through cache.
package store

import (
	"time"

	"github.com/guregu/null"
)

// Pool is the persisted view of a DEX pool, shared across venue families.
// Fields that a constant-product pool never populates (ticks, sqrt price)
// are simply left null.
type Pool struct {
	Address     string
	Venue       string
	Coins       []string
	Reserves    []string
	SqrtPrice   null.String
	Liquidity   null.String
	CurrentTick null.Int
	TickSpacing null.Int
	FeeRateBps  null.Int
	Paused      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PoolUpsert carries only the fields a handler decided to set; null.* zero
// values mean "do not change" per the entity-refresh contract.
type PoolUpsert struct {
	Address     string
	Venue       string
	Coins       []string
	Reserves    []string
	SqrtPrice   null.String
	Liquidity   null.String
	CurrentTick null.Int
	TickSpacing null.Int
	FeeRateBps  null.Int
	Paused      null.Bool
}

// PoolTick is keyed on (pool address, tick index). LiquidityGross/Net are
// null when only the tick's presence was observed (e.g. the add-liquidity
// event that created it carried no net/gross figures yet).
type PoolTick struct {
	PoolAddress    string
	TickIndex      int32
	LiquidityGross null.String
	LiquidityNet   null.String
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PoolTickUpsert struct {
	PoolAddress    string
	TickIndex      int32
	LiquidityGross null.String
	LiquidityNet   null.String
}

// Coin is keyed on its fully-qualified coin-type string.
type Coin struct {
	CoinType      string
	Decimals      null.Int
	Symbol        null.String
	Name          null.String
	PythFeedID    null.String
	SpotPrice     null.String
	EMAPrice      null.String
	PriceExpo     null.Int
	PriceNegative null.Bool
	PublishTimeMs null.Int
	UpdatedAt     time.Time
}

type CoinUpsert struct {
	CoinType   string
	Decimals   null.Int
	Symbol     null.String
	Name       null.String
	PythFeedID null.String
}

// PriceSnapshotUpsert applies a Pyth-style price update to every Coin row
// referencing FeedID. Magnitude/Negative mirror the on-chain
// signed-magnitude encoding unchanged; callers recompose the signed value.
type PriceSnapshotUpsert struct {
	FeedID        string
	SpotMagnitude uint64
	SpotNegative  bool
	EMAMagnitude  uint64
	EMANegative   bool
	ExpoMagnitude uint64
	ExpoNegative  bool
	PublishTimeMs uint64
}

// BorrowerStatus gives Ready and Processing distinct values. The checkpoint
// pipeline only ever sets Pending (when it first creates a borrower); the
// rest exist for the external portfolio-loader.
type BorrowerStatus int

const (
	BorrowerPending    BorrowerStatus = 0
	BorrowerReady      BorrowerStatus = 1
	BorrowerProcessing BorrowerStatus = 2
	BorrowerSucceeded  BorrowerStatus = 3
	BorrowerFailed     BorrowerStatus = -1
	BorrowerAbnormal   BorrowerStatus = -2
)

// Borrower is keyed on (platform, address).
type Borrower struct {
	Platform     string
	Address      string
	ObligationID null.String
	Status       BorrowerStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserDeposit is keyed on (platform, borrower, coin type).
type UserDeposit struct {
	Platform     string
	Borrower     string
	CoinType     string
	Amount       string
	ObligationID null.String
	UpdatedAt    time.Time
}

type UserDepositUpsert struct {
	Platform     string
	Borrower     string
	CoinType     string
	Amount       string
	ObligationID null.String
}

// UserBorrow is keyed on (platform, borrower, coin type).
type UserBorrow struct {
	Platform     string
	Borrower     string
	CoinType     string
	Amount       string
	ObligationID null.String
	BorrowIndex  null.String
	UpdatedAt    time.Time
}

type UserBorrowUpsert struct {
	Platform     string
	Borrower     string
	CoinType     string
	Amount       string
	ObligationID null.String
	BorrowIndex  null.String
}

// SharedObject caches a shared object's immutable initial-shared-version.
type SharedObject struct {
	ObjectID             string
	InitialSharedVersion uint64
	CreatedAt            time.Time
}

// Metric is one append-only telemetry snapshot row. Watermark is the
// highest fully processed checkpoint sequence number at snapshot time.
type Metric struct {
	ID                        string
	Watermark                 uint64
	LatestTimestampMs         uint64
	TotalCheckpoints          uint64
	TotalProcessedCheckpoints uint64
	TotalProcessingTimeMs     uint64
	MinProcessingTimeMs       uint64
	MaxProcessingTimeMs       uint64
	TotalLagMs                uint64
	MinLagMs                  uint64
	MaxLagMs                  uint64
	AvgProcessingTimeMs       float64
	AvgLagMs                  float64
	CreatedAt                 time.Time
}
