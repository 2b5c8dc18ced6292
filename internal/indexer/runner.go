package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"transferScope/internal/metrics"
	"transferScope/internal/model"
)

// Source is the chain transport consumed by the Runner.
type Source interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockHeader(ctx context.Context, number uint64) (model.BlockHeader, error)
}

// BatchProcessor turns a batch of blocks into stored records.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, blocks []model.Block) (int, error)
}

// LogArchive receives the raw logs of each batch before processing.
type LogArchive interface {
	PutLogBatch(logs []model.LogRecord) error
}

type headerPruner interface {
	ForgetHeadersBelow(number uint64)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	Contract     common.Address
	Topic0       common.Hash
	BatchSize    uint64
	Follow       bool
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner streams logs from the chain and feeds them to the pipeline batch by batch.
type Runner struct {
	cfg        RunConfig
	source     Source
	processor  BatchProcessor
	checkpoint Checkpointer
	archive    LogArchive
	status     *metrics.Status
	retry      retryPolicy
	logger     *zap.Logger
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

func WithCheckpoint(cp Checkpointer) Option {
	return func(r *Runner) { r.checkpoint = cp }
}

func WithArchive(archive LogArchive) Option {
	return func(r *Runner) { r.archive = archive }
}

func WithStatus(status *metrics.Status) Option {
	return func(r *Runner) { r.status = status }
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source Source, processor BatchProcessor, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:       cfg,
		source:    source,
		processor: processor,
		logger:    logger,
		retry:     retryPolicy{maxRetries: cfg.MaxRetries, baseDelay: cfg.RetryBackoff, logger: logger},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the indexing loop. In follow mode it keeps polling the head until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("chain source is nil")
	}
	if r.processor == nil {
		return fmt.Errorf("batch processor is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Contract == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}
	if r.cfg.Follow && r.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive in follow mode")
	}

	var chainID uint64
	err := r.retry.do(ctx, "chain_id", func(ctx context.Context) error {
		id, err := r.source.GetChainID(ctx)
		if err != nil {
			return err
		}
		if !id.IsUint64() {
			return fmt.Errorf("chain id does not fit in uint64: %s", id)
		}
		chainID = id.Uint64()
		return nil
	})
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	from := r.cfg.FromBlock
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	for {
		head, err := r.latestBlock(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to := head
		if r.cfg.ToBlock != 0 && r.cfg.ToBlock < to {
			to = r.cfg.ToBlock
		}

		if from <= to {
			next, err := r.syncRange(ctx, chainID, from, to)
			if err != nil {
				return err
			}
			from = next
		} else if !r.cfg.Follow {
			r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		}

		if !r.cfg.Follow || (r.cfg.ToBlock != 0 && from > r.cfg.ToBlock) {
			return nil
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// syncRange processes [from, to] and returns the next block to process.
func (r *Runner) syncRange(ctx context.Context, chainID, from, to uint64) (uint64, error) {
	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return from, err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return blockRange.From, ctx.Err()
		default:
		}

		if err := r.processRange(ctx, chainID, blockRange); err != nil {
			return blockRange.From, err
		}
	}
	return to + 1, nil
}

func (r *Runner) processRange(ctx context.Context, chainID uint64, blockRange BlockRange) error {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To), zap.Uint64("blocks", blockRange.Len()))

	var logs []types.Log
	err := r.retry.do(ctx, "filter_logs", func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, blockRange.From, blockRange.To, []common.Address{r.cfg.Contract}, []common.Hash{r.cfg.Topic0})
		return err
	})
	if err != nil {
		return fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
	}
	logs = normalizeLogs(logs)

	headers := make(map[uint64]model.BlockHeader)
	for _, log := range logs {
		if _, ok := headers[log.BlockNumber]; ok {
			continue
		}
		header, err := r.blockHeader(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("block header %d: %w", log.BlockNumber, err)
		}
		if header.Hash != log.BlockHash {
			r.logger.Warn("log block hash differs from header",
				zap.Uint64("block_number", log.BlockNumber),
				zap.String("log_block_hash", log.BlockHash.Hex()),
				zap.String("header_hash", header.Hash.Hex()),
			)
		}
		headers[log.BlockNumber] = header
	}
	blocks := groupBlocks(logs, headers)

	stored, err := r.processor.ProcessBatch(ctx, blocks)
	if err != nil {
		return fmt.Errorf("process blocks %d-%d: %w", blockRange.From, blockRange.To, err)
	}

	// Only committed batches reach the archive.
	if r.archive != nil && len(logs) > 0 {
		ingestedAt := time.Now().UTC().Format(time.RFC3339Nano)
		records := make([]model.LogRecord, 0, len(logs))
		for _, block := range blocks {
			for _, log := range block.Logs {
				record := model.NewLogRecord(chainID, log, uint64(block.Header.Timestamp.Unix()))
				record.IngestedAt = ingestedAt
				records = append(records, record)
			}
		}
		if err := r.archive.PutLogBatch(records); err != nil {
			return fmt.Errorf("archive logs: %w", err)
		}
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	if r.status != nil {
		r.status.MarkCommitted(blockRange.To)
	}
	if pruner, ok := r.source.(headerPruner); ok {
		pruner.ForgetHeadersBelow(blockRange.To + 1)
	}

	r.logger.Info("batch complete",
		zap.Int("logs", len(logs)),
		zap.Int("transfers", stored),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return nil
}

func (r *Runner) latestBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := r.retry.do(ctx, "latest_block", func(ctx context.Context) error {
		var err error
		head, err = r.source.LatestBlockNumber(ctx)
		return err
	})
	return head, err
}

func (r *Runner) blockHeader(ctx context.Context, number uint64) (model.BlockHeader, error) {
	var header model.BlockHeader
	err := r.retry.do(ctx, "block_header", func(ctx context.Context) error {
		var err error
		header, err = r.source.BlockHeader(ctx, number)
		return err
	})
	return header, err
}
