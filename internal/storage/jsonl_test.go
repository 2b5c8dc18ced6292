package storage

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transferScope/internal/model"
)

func testRecords() []model.TransferRecord {
	ts := time.Unix(1700000000, 0).UTC()
	return []model.TransferRecord{
		{ID: "0000000010-0a1b2-000002", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x01", From: "TA", To: "TB", Amount: big.NewInt(100)},
		{ID: "0000000010-0a1b2-000005", BlockNumber: 10, Timestamp: ts, TransactionHash: "0x02", From: "TB", To: "TC", Amount: big.NewInt(200)},
		{ID: "0000000011-0c3d4-000000", BlockNumber: 11, Timestamp: ts.Add(3 * time.Second), TransactionHash: "0x03", From: "TC", To: "TA", Amount: big.NewInt(300)},
	}
}

func TestJsonlStoragePreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "transfers.jsonl")
	sink := NewJsonlStorage(path)

	records := testRecords()
	require.NoError(t, sink.PutTransferBatch(context.Background(), records[:2]))
	require.NoError(t, sink.PutTransferBatch(context.Background(), records[2:]))
	require.NoError(t, sink.PutTransferBatch(context.Background(), nil))

	var got []model.TransferRecord
	require.NoError(t, ReadTransfers(path, func(record model.TransferRecord) error {
		got = append(got, record)
		return nil
	}))

	require.Len(t, got, 3)
	for i := range records {
		require.Equal(t, records[i].ID, got[i].ID)
		require.Equal(t, 0, records[i].Amount.Cmp(got[i].Amount))
	}
}

func TestJsonlStorageCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.jsonl")
	sink := NewJsonlStorage(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, sink.PutTransferBatch(ctx, testRecords()))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestJsonlStorageOpenFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sink := NewJsonlStorage(filepath.Join(blocker, "transfers.jsonl"))
	require.Error(t, sink.PutTransferBatch(context.Background(), testRecords()))
}

func TestRawLogArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	archive := NewRawLogArchive(path)

	require.NoError(t, archive.PutLogBatch([]model.LogRecord{
		{BlockNumber: 1, Address: "0x1111111111111111111111111111111111111111", Data: "0x"},
		{BlockNumber: 2, Address: "0x1111111111111111111111111111111111111111", Data: "0x64"},
	}))

	var lines int
	require.NoError(t, ScanJSONL(path, func(line []byte) error {
		lines++
		return nil
	}))
	require.Equal(t, 2, lines)
}

func TestRejectLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	rejects := NewRejectLog(path)

	require.NoError(t, rejects.Put(model.DecodeErrorRecord{LogID: "0000000010-0a1b2-000002", Error: "short data"}))
	require.NoError(t, rejects.Put(model.DecodeErrorRecord{LogID: "0000000010-0a1b2-000003", Error: "short data"}))

	var ids []string
	require.NoError(t, ScanJSONL(path, func(line []byte) error {
		var rec model.DecodeErrorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		ids = append(ids, rec.LogID)
		return nil
	}))
	require.Equal(t, []string{"0000000010-0a1b2-000002", "0000000010-0a1b2-000003"}, ids)
}
