package aggregate

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"transferScope/internal/model"
	"transferScope/internal/storage"
)

type memorySink struct {
	calls   int
	windows map[time.Time]model.TransferWindowMetrics
}

func newMemorySink() *memorySink {
	return &memorySink{windows: make(map[time.Time]model.TransferWindowMetrics)}
}

func (s *memorySink) UpsertWindowMetrics(_ context.Context, metrics []model.TransferWindowMetrics) error {
	s.calls++
	for _, m := range metrics {
		s.windows[m.WindowStart] = m
	}
	return nil
}

func transfer(id string, block uint64, ts int64, from, to string, amount int64) model.TransferRecord {
	return model.TransferRecord{
		ID:              id,
		BlockNumber:     block,
		Timestamp:       time.Unix(ts, 0).UTC(),
		TransactionHash: "0x" + id,
		From:            from,
		To:              to,
		Amount:          big.NewInt(amount),
	}
}

func writeTransfers(t *testing.T, path string, records ...model.TransferRecord) {
	t.Helper()
	require.NoError(t, storage.NewJsonlStorage(path).PutTransferBatch(context.Background(), records))
}

func TestAggregatorWindows(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transfers.jsonl")
	writeTransfers(t, input,
		transfer("a", 10, 1000, "TA", "TB", 1_500_000),
		transfer("b", 11, 1100, "TA", "TC", 2_000_000),
		transfer("c", 12, 1150, "TB", "TC", 500_000),
		transfer("d", 20, 1300, "TC", "TA", 7_000_000),
	)

	sink := newMemorySink()
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	agg := NewAggregator(Config{
		ChainID:       728126428,
		Contract:      "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		Decimals:      6,
		WindowSeconds: 300,
		StateStore:    state,
	}, sink, zaptest.NewLogger(t))

	stats, err := agg.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Aggregated)
	require.Equal(t, 2, stats.Windows)
	require.Len(t, sink.windows, 2)

	first := sink.windows[time.Unix(900, 0).UTC()]
	require.Equal(t, uint64(3), first.TransferCount)
	require.Equal(t, "4000000", first.VolumeRaw)
	require.Equal(t, "4.000000", first.Volume)
	require.Equal(t, "2000000", first.MaxTransferRaw)
	require.Equal(t, uint64(2), first.UniqueSenders)
	require.Equal(t, uint64(2), first.UniqueReceivers)
	require.Equal(t, uint64(10), first.FirstBlock)
	require.Equal(t, uint64(12), first.LastBlock)
	require.Equal(t, time.Unix(1200, 0).UTC(), first.WindowEnd)

	second := sink.windows[time.Unix(1200, 0).UTC()]
	require.Equal(t, uint64(1), second.TransferCount)
	require.Equal(t, "7000000", second.VolumeRaw)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1199), last)
}

func TestAggregatorResumeRecomputesOpenWindow(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transfers.jsonl")
	writeTransfers(t, input,
		transfer("a", 10, 1000, "TA", "TB", 1),
		transfer("b", 11, 1250, "TA", "TC", 2),
	)

	sink := newMemorySink()
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	cfg := Config{WindowSeconds: 300, StateStore: state}

	_, err := NewAggregator(cfg, sink, zaptest.NewLogger(t)).Run(context.Background(), input)
	require.NoError(t, err)

	writeTransfers(t, input, transfer("c", 12, 1260, "TB", "TA", 3))

	stats, err := NewAggregator(cfg, sink, zaptest.NewLogger(t)).Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 2, stats.Aggregated)

	open := sink.windows[time.Unix(1200, 0).UTC()]
	require.Equal(t, uint64(2), open.TransferCount)
	require.Equal(t, "5", open.VolumeRaw)
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transfers.jsonl")
	writeTransfers(t, input,
		transfer("a", 10, 1000, "TA", "TB", 1),
		transfer("b", 11, 1250, "TA", "TC", 2),
	)

	sink := newMemorySink()
	stats, err := NewAggregator(Config{WindowSeconds: 300, RecomputeFrom: 1200}, sink, nil).Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Len(t, sink.windows, 1)
}

func TestAggregatorOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transfers.jsonl")
	writeTransfers(t, input,
		transfer("a", 11, 1250, "TA", "TB", 1),
		transfer("b", 10, 1000, "TA", "TC", 2),
	)

	sink := newMemorySink()
	stats, err := NewAggregator(Config{WindowSeconds: 300}, sink, zaptest.NewLogger(t)).Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, stats.OutOfOrder)
	require.Len(t, sink.windows, 1)
}

func TestAggregatorRequiresWindow(t *testing.T) {
	_, err := NewAggregator(Config{}, newMemorySink(), nil).Run(context.Background(), "missing.jsonl")
	require.Error(t, err)
}

func TestFormatTokenAmount(t *testing.T) {
	require.Equal(t, "1.500000", formatTokenAmount(big.NewInt(1_500_000), 6))
	require.Equal(t, "-0.05", formatTokenAmount(big.NewInt(-5), 2))
	require.Equal(t, "42", formatTokenAmount(big.NewInt(42), 0))
	require.Equal(t, "0", formatTokenAmount(nil, 6))
}
