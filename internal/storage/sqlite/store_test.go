package sqlite

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transferScope/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func batch() []model.TransferRecord {
	ts := time.Unix(1700000000, 0).UTC()
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	return []model.TransferRecord{
		{ID: "0000000010-0a1b2-000002", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x01", From: "TA", To: "TB", Amount: big.NewInt(100)},
		{ID: "0000000010-0a1b2-000005", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x02", From: "TB", To: "TC", Amount: huge},
		{ID: "0000000011-0c3d4-000000", BlockNumber: 11, Timestamp: ts.Add(3 * time.Second), TransactionHash: "0x03", From: "TC", To: "TA", Amount: big.NewInt(0)},
	}
}

func TestPutTransferBatchPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	records := batch()

	require.NoError(t, store.PutTransferBatch(ctx, records))

	got, err := store.Transfers(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for i := range records {
		require.Equal(t, records[i].ID, got[i].ID)
		require.Equal(t, records[i].BlockNumber, got[i].BlockNumber)
		require.True(t, records[i].Timestamp.Equal(got[i].Timestamp))
		require.Equal(t, 0, records[i].Amount.Cmp(got[i].Amount))
	}
}

func TestPutTransferBatchIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutTransferBatch(ctx, batch()))
	require.NoError(t, store.PutTransferBatch(ctx, batch()))

	got, err := store.Transfers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestPutTransferBatchRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := batch()
	records[2].ID = ""

	require.Error(t, store.PutTransferBatch(ctx, records))

	got, err := store.Transfers(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestState(t *testing.T) {
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

	_, _, err = store.LoadState(ctx, "")
	require.Error(t, err)
}

func TestPutTransferBatchKeepsMillisecondTimestamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := batch()[:1]
	records[0].Timestamp = time.UnixMilli(1700000000123).UTC()
	require.NoError(t, store.PutTransferBatch(ctx, records))

	got, err := store.Transfers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, records[0].Timestamp.Equal(got[0].Timestamp), "got %s", got[0].Timestamp)
}
