package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"transferScope/internal/metrics"
	"transferScope/internal/model"
	"transferScope/internal/storage"
)

// Processor builds a whole batch and hands it to the sink as one unit.
type Processor struct {
	builder *Builder
	sink    storage.Storage
	logger  *zap.Logger
}

func NewProcessor(builder *Builder, sink storage.Storage, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{builder: builder, sink: sink, logger: logger}
}

// ProcessBatch returns the number of records stored. Nothing is stored when it fails.
func (p *Processor) ProcessBatch(ctx context.Context, blocks []model.Block) (n int, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBatch(start, n, err)
	}()

	records, err := p.builder.Build(ctx, blocks)
	if err != nil {
		return 0, fmt.Errorf("build batch: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := p.sink.PutTransferBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("store batch: %w", err)
	}

	p.logger.Debug("batch stored",
		zap.Int("records", len(records)),
		zap.String("first_id", records[0].ID),
		zap.String("last_id", records[len(records)-1].ID),
	)
	return len(records), nil
}
