package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"transferScope/internal/model"
	"transferScope/internal/storage/migrations"
)

// Store provides Postgres persistence for transfers, checkpoints and window metrics.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and applies pending schema migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrations.Apply(db, migrations.DialectPostgres)
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const insertTransferSQL = `
	INSERT INTO transfers (
		id, block_number, block_time, tx_hash, from_address, to_address, amount
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// PutTransferBatch inserts the batch inside one transaction.
// Rows already present are left untouched.
func (s *Store) PutTransferBatch(ctx context.Context, records []model.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(insertTransferSQL,
			record.ID,
			int64(record.BlockNumber),
			record.Timestamp.UTC(),
			record.TransactionHash,
			record.From,
			record.To,
			numeric(record.Amount),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for _, record := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert transfer %s: %w", record.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.TransferWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		volumeRaw, err := parseNumeric(m.VolumeRaw)
		if err != nil {
			return fmt.Errorf("volume_raw: %w", err)
		}
		maxRaw, err := parseNumeric(m.MaxTransferRaw)
		if err != nil {
			return fmt.Errorf("max_transfer_raw: %w", err)
		}
		batch.Queue(`
			INSERT INTO transfer_window_metrics (
				chain_id, contract, window_size_seconds, window_start_ts, window_end_ts,
				transfer_count, volume_raw, volume, max_transfer_raw,
				unique_senders, unique_receivers, first_block, last_block, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (chain_id, contract, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				transfer_count = EXCLUDED.transfer_count,
				volume_raw = EXCLUDED.volume_raw,
				volume = EXCLUDED.volume,
				max_transfer_raw = EXCLUDED.max_transfer_raw,
				unique_senders = EXCLUDED.unique_senders,
				unique_receivers = EXCLUDED.unique_receivers,
				first_block = EXCLUDED.first_block,
				last_block = EXCLUDED.last_block,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.Contract,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.TransferCount),
			volumeRaw,
			m.Volume,
			maxRaw,
			int64(m.UniqueSenders),
			int64(m.UniqueReceivers),
			int64(m.FirstBlock),
			int64(m.LastBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveState upserts last_processed for a name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(value))
	return err
}

func numeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		v = new(big.Int)
	}
	return pgtype.Numeric{Int: v, Exp: 0, Valid: true}
}

func parseNumeric(s string) (pgtype.Numeric, error) {
	if s == "" {
		return numeric(nil), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return pgtype.Numeric{}, fmt.Errorf("invalid integer %q", s)
	}
	return numeric(v), nil
}
