package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"transferScope/internal/address"
	"transferScope/internal/erc20"
	"transferScope/internal/metrics"
	"transferScope/internal/model"
)

// FilterMismatchError reports a delivered log outside the subscribed address/topic0.
type FilterMismatchError struct {
	LogID   string
	Address common.Address
	Topic0  common.Hash
}

func (e *FilterMismatchError) Error() string {
	return fmt.Sprintf("log %s from %s with topic0 %s does not match the subscription filter", e.LogID, e.Address.Hex(), e.Topic0.Hex())
}

// RejectHandler receives logs skipped under SkipMalformed.
type RejectHandler func(log model.RawLog, err error)

// Options are fixed at startup.
type Options struct {
	// SkipMalformed logs and skips logs that fail to decode instead of aborting the batch.
	SkipMalformed bool
	// StrictFilter aborts the batch when a log outside the filter is delivered.
	StrictFilter bool
	Observer     Observer
	OnReject     RejectHandler
}

// Builder turns ordered blocks into transfer records.
type Builder struct {
	contract common.Address
	decoder  *erc20.TransferDecoder
	opts     Options
	logger   *zap.Logger
}

func NewBuilder(contract common.Address, decoder *erc20.TransferDecoder, opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		contract: contract,
		decoder:  decoder,
		opts:     opts,
		logger:   logger,
	}
}

// Build walks blocks and their logs in delivery order and returns one record per transfer.
func (b *Builder) Build(ctx context.Context, blocks []model.Block) ([]model.TransferRecord, error) {
	var records []model.TransferRecord
	for _, block := range blocks {
		for _, log := range block.Logs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if !b.matches(log) {
				mismatch := &FilterMismatchError{LogID: log.ID(), Address: log.Address}
				if len(log.Topics) > 0 {
					mismatch.Topic0 = log.Topics[0]
				}
				metrics.FilterMismatches.Inc()
				if b.opts.StrictFilter {
					return nil, mismatch
				}
				b.logger.Error("dropping log outside subscription filter",
					zap.String("log_id", mismatch.LogID),
					zap.Uint64("block_number", log.BlockNumber),
					zap.String("tx_hash", log.TxHash.Hex()),
					zap.String("address", log.Address.Hex()),
					zap.String("topic0", mismatch.Topic0.Hex()),
				)
				continue
			}

			decoded, err := b.decoder.Decode(log)
			if err != nil {
				var decodeErr *erc20.DecodeError
				if b.opts.SkipMalformed && errors.As(err, &decodeErr) {
					metrics.DecodeFailures.Inc()
					b.logger.Warn("skipping malformed log",
						zap.String("log_id", log.ID()),
						zap.Uint64("block_number", log.BlockNumber),
						zap.Error(err),
					)
					if b.opts.OnReject != nil {
						b.opts.OnReject(log, err)
					}
					continue
				}
				if errors.As(err, &decodeErr) {
					metrics.DecodeFailures.Inc()
				}
				return nil, err
			}

			record, err := buildRecord(block, log, decoded)
			if err != nil {
				return nil, err
			}
			b.observe(ctx, record, decoded)
			records = append(records, record)
		}
	}
	return records, nil
}

func (b *Builder) matches(log model.RawLog) bool {
	if log.Address != b.contract {
		return false
	}
	return len(log.Topics) > 0 && log.Topics[0] == b.decoder.Signature()
}

func buildRecord(block model.Block, log model.RawLog, decoded model.DecodedTransfer) (model.TransferRecord, error) {
	from, err := address.ToNative(decoded.From.Hex())
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("log %s from: %w", log.ID(), err)
	}
	to, err := address.ToNative(decoded.To.Hex())
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("log %s to: %w", log.ID(), err)
	}

	txHash := log.TxHash
	if tx, ok := block.TransactionFor(log); ok {
		txHash = tx.Hash
	}

	return model.TransferRecord{
		ID:              log.ID(),
		BlockNumber:     block.Header.Height,
		Timestamp:       block.Header.Timestamp,
		TransactionHash: txHash.Hex(),
		From:            from,
		To:              to,
		Amount:          decoded.Value,
	}, nil
}
