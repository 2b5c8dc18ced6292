package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"

	"transferScope/internal/model"
	"transferScope/internal/storage/migrations"
)

// Store is an embedded sink backed by a single sqlite file.
type Store struct {
	db *sqlx.DB
}

type transferRow struct {
	ID          string `db:"id"`
	BlockNumber int64  `db:"block_number"`
	BlockTimeMs int64  `db:"block_time_ms"`
	TxHash      string `db:"tx_hash"`
	From        string `db:"from_address"`
	To          string `db:"to_address"`
	Amount      string `db:"amount"`
}

// NewStore opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrations.Apply(db.DB, migrations.DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutTransferBatch inserts the batch inside one transaction.
// Rows already present are left untouched.
func (s *Store) PutTransferBatch(ctx context.Context, records []model.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO transfers (id, block_number, block_time_ms, tx_hash, from_address, to_address, amount)
		VALUES (:id, :block_number, :block_time_ms, :tx_hash, :from_address, :to_address, :amount)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		amount := "0"
		if record.Amount != nil {
			amount = record.Amount.String()
		}
		row := transferRow{
			ID:          record.ID,
			BlockNumber: int64(record.BlockNumber),
			BlockTimeMs: record.Timestamp.UnixMilli(),
			TxHash:      record.TransactionHash,
			From:        record.From,
			To:          record.To,
			Amount:      amount,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert transfer %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Transfers returns all stored transfers in insertion order.
func (s *Store) Transfers(ctx context.Context) ([]model.TransferRecord, error) {
	var rows []transferRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, block_number, block_time_ms, tx_hash, from_address, to_address, amount
		FROM transfers ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}

	out := make([]model.TransferRecord, 0, len(rows))
	for _, row := range rows {
		amount, ok := new(big.Int).SetString(row.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("transfer %s: invalid amount %q", row.ID, row.Amount)
		}
		out = append(out, model.TransferRecord{
			ID:              row.ID,
			BlockNumber:     uint64(row.BlockNumber),
			Timestamp:       time.UnixMilli(row.BlockTimeMs).UTC(),
			TransactionHash: row.TxHash,
			From:            row.From,
			To:              row.To,
			Amount:          amount,
		})
	}
	return out, nil
}

// LoadState returns last_processed for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	err := s.db.GetContext(ctx, &value, `SELECT last_processed FROM indexer_state WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE
		SET last_processed = excluded.last_processed, updated_at = excluded.updated_at
	`, name, int64(value), time.Now().Unix())
	return err
}
