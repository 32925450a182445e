package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/guregu/null"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sui-indexer/onchain-indexer/internal/logging"
)

// ErrDatabase marks every error this Store returns as originating from
// the repository rather than from a handler's own decode/ownership logic;
// callers use errors.Is(err, ErrDatabase) to tell the two apart, since a
// database failure fails the whole checkpoint while everything else only
// skips one event.
var ErrDatabase = errors.New("store: database operation failed")

// PostgresStore is the Store implementation backing the entity-refresh
// service. Every write is one parameterized statement built with
// squirrel's INSERT ... ON CONFLICT DO UPDATE builder, never a multi-row
// transaction: no upsert spans rows.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logging.ComponentLogger
	sb     sq.StatementBuilderType
}

// PostgresConfig configures the connection pool.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresStore opens the pool and returns a ready Store.
func NewPostgresStore(cfg PostgresConfig, logger *logging.ComponentLogger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	return &PostgresStore{
		db:     db,
		logger: logger,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertPool(ctx context.Context, u PoolUpsert) error {
	// A nil slice goes out as SQL NULL so the COALESCE below keeps the
	// stored value; json.Marshal would turn it into a JSON null instead.
	var coinsArg, reservesArg interface{}
	if u.Coins != nil {
		coinsJSON, err := json.Marshal(u.Coins)
		if err != nil {
			return fmt.Errorf("store: marshal pool coins: %w: %w", ErrDatabase, err)
		}
		coinsArg = coinsJSON
	}
	if u.Reserves != nil {
		reservesJSON, err := json.Marshal(u.Reserves)
		if err != nil {
			return fmt.Errorf("store: marshal pool reserves: %w: %w", ErrDatabase, err)
		}
		reservesArg = reservesJSON
	}

	q := s.sb.Insert("pools").
		Columns("address", "venue", "coins", "reserves", "sqrt_price", "liquidity",
			"current_tick", "tick_spacing", "fee_rate_bps", "paused", "updated_at").
		Values(u.Address, u.Venue, coinsArg, reservesArg,
			nullableString(u.SqrtPrice), nullableString(u.Liquidity),
			nullableInt(u.CurrentTick), nullableInt(u.TickSpacing), nullableInt(u.FeeRateBps),
			nullableBool(u.Paused), sq.Expr("now()")).
		Suffix(`ON CONFLICT (address) DO UPDATE SET
			venue = EXCLUDED.venue,
			coins = COALESCE(EXCLUDED.coins, pools.coins),
			reserves = COALESCE(EXCLUDED.reserves, pools.reserves),
			sqrt_price = COALESCE(EXCLUDED.sqrt_price, pools.sqrt_price),
			liquidity = COALESCE(EXCLUDED.liquidity, pools.liquidity),
			current_tick = COALESCE(EXCLUDED.current_tick, pools.current_tick),
			tick_spacing = COALESCE(EXCLUDED.tick_spacing, pools.tick_spacing),
			fee_rate_bps = COALESCE(EXCLUDED.fee_rate_bps, pools.fee_rate_bps),
			paused = COALESCE(EXCLUDED.paused, pools.paused),
			updated_at = now()`)

	return s.exec(ctx, q)
}

func (s *PostgresStore) UpsertPoolTick(ctx context.Context, u PoolTickUpsert) error {
	q := s.sb.Insert("pool_ticks").
		Columns("pool_address", "tick_index", "liquidity_gross", "liquidity_net", "updated_at").
		Values(u.PoolAddress, u.TickIndex, nullableString(u.LiquidityGross), nullableString(u.LiquidityNet), sq.Expr("now()")).
		Suffix(`ON CONFLICT (pool_address, tick_index) DO UPDATE SET
			liquidity_gross = COALESCE(EXCLUDED.liquidity_gross, pool_ticks.liquidity_gross),
			liquidity_net = COALESCE(EXCLUDED.liquidity_net, pool_ticks.liquidity_net),
			updated_at = now()`)

	return s.exec(ctx, q)
}

func (s *PostgresStore) UpsertCoin(ctx context.Context, u CoinUpsert) error {
	q := s.sb.Insert("coins").
		Columns("coin_type", "decimals", "symbol", "name", "pyth_feed_id", "updated_at").
		Values(u.CoinType, nullableInt(u.Decimals), nullableString(u.Symbol), nullableString(u.Name),
			nullableString(u.PythFeedID), sq.Expr("now()")).
		Suffix(`ON CONFLICT (coin_type) DO UPDATE SET
			decimals = COALESCE(EXCLUDED.decimals, coins.decimals),
			symbol = COALESCE(EXCLUDED.symbol, coins.symbol),
			name = COALESCE(EXCLUDED.name, coins.name),
			pyth_feed_id = COALESCE(EXCLUDED.pyth_feed_id, coins.pyth_feed_id),
			updated_at = now()`)

	return s.exec(ctx, q)
}

func (s *PostgresStore) ApplyPriceSnapshot(ctx context.Context, u PriceSnapshotUpsert) error {
	q := s.sb.Update("coins").
		Set("spot_price_magnitude", u.SpotMagnitude).
		Set("spot_price_negative", u.SpotNegative).
		Set("ema_price_magnitude", u.EMAMagnitude).
		Set("ema_price_negative", u.EMANegative).
		Set("price_expo_magnitude", u.ExpoMagnitude).
		Set("price_expo_negative", u.ExpoNegative).
		Set("publish_time_ms", u.PublishTimeMs).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"pyth_feed_id": u.FeedID})

	return s.exec(ctx, q)
}

func (s *PostgresStore) GetOrCreateBorrower(ctx context.Context, platform, address string) (Borrower, bool, error) {
	var b Borrower
	row := s.db.QueryRowxContext(ctx,
		`SELECT platform, address, obligation_id, status, created_at, updated_at
		 FROM borrowers WHERE platform = $1 AND address = $2`, platform, address)

	var obligationID sql.NullString
	err := row.Scan(&b.Platform, &b.Address, &obligationID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	switch {
	case err == nil:
		b.ObligationID = null.StringFromPtr(nullStringPtr(obligationID))
		return b, false, nil
	case err == sql.ErrNoRows:
		// fallthrough to create
	default:
		return Borrower{}, false, fmt.Errorf("store: lookup borrower: %w: %w", ErrDatabase, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO borrowers (platform, address, status, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (platform, address) DO NOTHING`, platform, address, BorrowerPending)
	if err != nil {
		return Borrower{}, false, fmt.Errorf("store: create borrower: %w: %w", ErrDatabase, err)
	}

	return Borrower{Platform: platform, Address: address, Status: BorrowerPending}, true, nil
}

func (s *PostgresStore) SetBorrowerObligation(ctx context.Context, platform, address, obligationID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE borrowers SET obligation_id = $3, updated_at = now()
		 WHERE platform = $1 AND address = $2`, platform, address, obligationID)
	if err != nil {
		return fmt.Errorf("store: set borrower obligation: %w: %w", ErrDatabase, err)
	}
	return nil
}

func (s *PostgresStore) UpsertUserDeposit(ctx context.Context, u UserDepositUpsert) error {
	q := s.sb.Insert("user_deposits").
		Columns("platform", "borrower", "coin_type", "amount", "obligation_id", "updated_at").
		Values(u.Platform, u.Borrower, u.CoinType, u.Amount, nullableString(u.ObligationID), sq.Expr("now()")).
		Suffix(`ON CONFLICT (platform, borrower, coin_type) DO UPDATE SET
			amount = EXCLUDED.amount,
			obligation_id = COALESCE(EXCLUDED.obligation_id, user_deposits.obligation_id),
			updated_at = now()`)

	return s.exec(ctx, q)
}

func (s *PostgresStore) UpsertUserBorrow(ctx context.Context, u UserBorrowUpsert) error {
	q := s.sb.Insert("user_borrows").
		Columns("platform", "borrower", "coin_type", "amount", "obligation_id", "borrow_index", "updated_at").
		Values(u.Platform, u.Borrower, u.CoinType, u.Amount, nullableString(u.ObligationID),
			nullableString(u.BorrowIndex), sq.Expr("now()")).
		Suffix(`ON CONFLICT (platform, borrower, coin_type) DO UPDATE SET
			amount = EXCLUDED.amount,
			obligation_id = COALESCE(EXCLUDED.obligation_id, user_borrows.obligation_id),
			borrow_index = COALESCE(EXCLUDED.borrow_index, user_borrows.borrow_index),
			updated_at = now()`)

	return s.exec(ctx, q)
}

func (s *PostgresStore) GetSharedObject(ctx context.Context, objectID string) (SharedObject, bool, error) {
	var obj SharedObject
	err := s.db.QueryRowxContext(ctx,
		`SELECT object_id, initial_shared_version, created_at FROM shared_objects WHERE object_id = $1`,
		objectID).Scan(&obj.ObjectID, &obj.InitialSharedVersion, &obj.CreatedAt)
	switch {
	case err == nil:
		return obj, true, nil
	case err == sql.ErrNoRows:
		return SharedObject{}, false, nil
	default:
		return SharedObject{}, false, fmt.Errorf("store: get shared object: %w: %w", ErrDatabase, err)
	}
}

func (s *PostgresStore) PutSharedObject(ctx context.Context, objectID string, initialSharedVersion uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shared_objects (object_id, initial_shared_version, created_at)
		 VALUES ($1, $2, now()) ON CONFLICT (object_id) DO NOTHING`,
		objectID, initialSharedVersion)
	if err != nil {
		return fmt.Errorf("store: put shared object: %w: %w", ErrDatabase, err)
	}
	return nil
}

func (s *PostgresStore) LatestMetric(ctx context.Context) (*Metric, error) {
	var m Metric
	err := s.db.QueryRowxContext(ctx,
		`SELECT id, watermark, latest_timestamp_ms, total_checkpoints, total_processed_checkpoints,
			total_processing_time_ms, min_processing_time_ms, max_processing_time_ms,
			total_lag_ms, min_lag_ms, max_lag_ms, avg_processing_time_ms, avg_lag_ms, created_at
		 FROM metrics ORDER BY watermark DESC LIMIT 1`).
		Scan(&m.ID, &m.Watermark, &m.LatestTimestampMs, &m.TotalCheckpoints, &m.TotalProcessedCheckpoints,
			&m.TotalProcessingTimeMs, &m.MinProcessingTimeMs, &m.MaxProcessingTimeMs,
			&m.TotalLagMs, &m.MinLagMs, &m.MaxLagMs, &m.AvgProcessingTimeMs, &m.AvgLagMs, &m.CreatedAt)
	switch {
	case err == nil:
		return &m, nil
	case err == sql.ErrNoRows:
		return nil, nil
	default:
		return nil, fmt.Errorf("store: latest metric: %w: %w", ErrDatabase, err)
	}
}

func (s *PostgresStore) InsertMetric(ctx context.Context, m Metric) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (id, watermark, latest_timestamp_ms, total_checkpoints, total_processed_checkpoints,
			total_processing_time_ms, min_processing_time_ms, max_processing_time_ms,
			total_lag_ms, min_lag_ms, max_lag_ms, avg_processing_time_ms, avg_lag_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())`,
		m.ID, m.Watermark, m.LatestTimestampMs, m.TotalCheckpoints, m.TotalProcessedCheckpoints,
		m.TotalProcessingTimeMs, m.MinProcessingTimeMs, m.MaxProcessingTimeMs,
		m.TotalLagMs, m.MinLagMs, m.MaxLagMs, m.AvgProcessingTimeMs, m.AvgLagMs)
	if err != nil {
		return fmt.Errorf("store: insert metric: %w: %w", ErrDatabase, err)
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, q sq.Sqlizer) error {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("store: build query: %w: %w", ErrDatabase, err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("store: exec: %w: %w", ErrDatabase, err)
	}
	return nil
}

func nullableString(v null.String) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullableInt(v null.Int) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullableBool(v null.Bool) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Bool
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
