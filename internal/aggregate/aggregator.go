package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"transferScope/internal/model"
	"transferScope/internal/storage"
)

// MetricsSink receives finished window metrics.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.TransferWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	ChainID       uint64
	Contract      string
	Decimals      uint8
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator buckets transfer records into fixed windows.
type Aggregator struct {
	cfg    Config
	sink   MetricsSink
	logger *zap.Logger
	acc    *Accumulator
	batch  []model.TransferWindowMetrics
}

// Stats summarizes one run.
type Stats struct {
	Total      int
	Aggregated int
	Skipped    int
	OutOfOrder int
	Windows    int
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Aggregator{cfg: cfg, sink: sink, logger: logger}
}

// Run aggregates a transfers JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) (Stats, error) {
	var stats Stats
	if a.sink == nil {
		return stats, fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return stats, fmt.Errorf("window seconds must be > 0")
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return stats, err
	}

	err = storage.ReadTransfers(inputPath, func(record model.TransferRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Total++

		ts := uint64(record.Timestamp.Unix())
		if ts <= startTs {
			stats.Skipped++
			return nil
		}

		start := windowStart(ts, a.cfg.WindowSeconds)
		switch {
		case a.acc == nil:
			a.acc = NewAccumulator(start, start+a.cfg.WindowSeconds)
		case start < a.acc.WindowStart:
			stats.OutOfOrder++
			a.logger.Warn("transfer before open window", zap.String("id", record.ID), zap.Uint64("window_start", a.acc.WindowStart))
			return nil
		case start > a.acc.WindowStart:
			a.closeWindow()
			stats.Windows++
			a.acc = NewAccumulator(start, start+a.cfg.WindowSeconds)
			if len(a.batch) >= a.cfg.BatchSize {
				if err := a.flush(ctx); err != nil {
					return err
				}
			}
		}

		a.acc.AddTransfer(record)
		stats.Aggregated++
		return nil
	})
	if err != nil {
		return stats, err
	}

	// The last window stays eligible for recomputation on the next run.
	var resumeTs uint64
	if a.acc != nil {
		resumeTs = beforeWindow(a.acc.WindowStart)
		a.closeWindow()
		stats.Windows++
		a.acc = nil
	} else {
		resumeTs = startTs
	}
	if err := a.flushAndSave(ctx, resumeTs); err != nil {
		return stats, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", stats.Total),
		zap.Int("aggregated", stats.Aggregated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("out_of_order", stats.OutOfOrder),
		zap.Int("windows", stats.Windows),
	)
	return stats, nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load aggregate state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) closeWindow() {
	acc := a.acc
	a.batch = append(a.batch, model.TransferWindowMetrics{
		ChainID:         a.cfg.ChainID,
		Contract:        a.cfg.Contract,
		WindowSizeSecs:  int64(a.cfg.WindowSeconds),
		WindowStart:     time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:       time.Unix(int64(acc.WindowEnd), 0).UTC(),
		TransferCount:   acc.TransferCount,
		VolumeRaw:       acc.Volume.String(),
		Volume:          formatTokenAmount(acc.Volume, a.cfg.Decimals),
		MaxTransferRaw:  acc.MaxTransfer.String(),
		UniqueSenders:   acc.UniqueSenders(),
		UniqueReceivers: acc.UniqueReceivers(),
		FirstBlock:      acc.FirstBlock,
		LastBlock:       acc.LastBlock,
	})
}

// flush writes closed windows and advances the state to just before the open window.
func (a *Aggregator) flush(ctx context.Context) error {
	return a.flushAndSave(ctx, beforeWindow(a.acc.WindowStart))
}

func (a *Aggregator) flushAndSave(ctx context.Context, stateTs uint64) error {
	if len(a.batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, a.batch); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
		a.batch = a.batch[:0]
	}
	if a.cfg.StateStore == nil {
		return nil
	}
	if err := a.cfg.StateStore.Save(ctx, stateTs); err != nil {
		return fmt.Errorf("save aggregate state: %w", err)
	}
	return nil
}
