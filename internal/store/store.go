package store

import "context"

// Store is the entity-refresh service's write/read surface. It is the
// only writer of the tracked entities; handlers request upserts but never
// touch the database directly. Every upsert is create-if-absent, else
// selectively overwrite — a field left at its null.* zero value is left
// untouched on an existing row.
type Store interface {
	UpsertPool(ctx context.Context, u PoolUpsert) error
	UpsertPoolTick(ctx context.Context, u PoolTickUpsert) error
	UpsertCoin(ctx context.Context, u CoinUpsert) error
	ApplyPriceSnapshot(ctx context.Context, u PriceSnapshotUpsert) error

	// GetOrCreateBorrower returns the existing (platform, address) row or
	// creates one with status Pending. created reports which happened.
	GetOrCreateBorrower(ctx context.Context, platform, address string) (b Borrower, created bool, err error)
	SetBorrowerObligation(ctx context.Context, platform, address, obligationID string) error
	UpsertUserDeposit(ctx context.Context, u UserDepositUpsert) error
	UpsertUserBorrow(ctx context.Context, u UserBorrowUpsert) error

	// GetSharedObject serves the read-through cache; ok is false on a miss.
	GetSharedObject(ctx context.Context, objectID string) (obj SharedObject, ok bool, err error)
	PutSharedObject(ctx context.Context, objectID string, initialSharedVersion uint64) error

	LatestMetric(ctx context.Context) (*Metric, error)
	InsertMetric(ctx context.Context, m Metric) error
}
