package postgres

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transferScope/internal/model"
)

// Set TRANSFERSCOPE_TEST_PG_DSN to a disposable database to run these tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TRANSFERSCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TRANSFERSCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.pool.Exec(ctx, `TRUNCATE transfers, indexer_state`)
	require.NoError(t, err)
	return store
}

type storedTransfer struct {
	ID        string
	BlockTime time.Time
	Amount    string
}

func storedTransfers(t *testing.T, store *Store) []storedTransfer {
	t.Helper()
	rows, err := store.pool.Query(context.Background(),
		`SELECT id, block_time, amount::text FROM transfers ORDER BY block_number, id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []storedTransfer
	for rows.Next() {
		var row storedTransfer
		require.NoError(t, rows.Scan(&row.ID, &row.BlockTime, &row.Amount))
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

func transferBatch() []model.TransferRecord {
	ts := time.UnixMilli(1700000000123).UTC()
	top := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return []model.TransferRecord{
		{ID: "0000000010-0a1b2-000002", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x01", From: "TA", To: "TB", Amount: big.NewInt(100)},
		{ID: "0000000010-0a1b2-000005", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x02", From: "TB", To: "TC", Amount: top},
		{ID: "0000000011-0c3d4-000000", BlockNumber: 11, Timestamp: ts.Add(3 * time.Second), TransactionHash: "0x03", From: "TC", To: "TA", Amount: big.NewInt(0)},
	}
}

func TestPutTransferBatchStoresAndDedupes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	records := transferBatch()

	require.NoError(t, store.PutTransferBatch(ctx, records))
	require.NoError(t, store.PutTransferBatch(ctx, records))

	got := storedTransfers(t, store)
	require.Len(t, got, len(records))
	for i := range records {
		require.Equal(t, records[i].ID, got[i].ID)
		require.Equal(t, records[i].Amount.String(), got[i].Amount)
		require.True(t, records[i].Timestamp.Equal(got[i].BlockTime))
	}
}

func TestPutTransferBatchRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := transferBatch()
	records[2].ID = ""

	require.Error(t, store.PutTransferBatch(ctx, records))
	require.Empty(t, storedTransfers(t, store))
}

func TestStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadState(ctx, "indexer")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveState(ctx, "indexer", 42))
	require.NoError(t, store.SaveState(ctx, "indexer", 43))

	value, ok, err := store.LoadState(ctx, "indexer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(43), value)
}
