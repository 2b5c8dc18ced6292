package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transferScope/internal/config"
	"transferScope/internal/erc20"
	"transferScope/internal/indexer"
	"transferScope/internal/model"
	"transferScope/internal/pipeline"
	"transferScope/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	contract, err := indexer.ParseContract(cfg.Contract)
	if err != nil {
		return err
	}
	decoder, err := erc20.NewTransferDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range []string{cfg.Out, cfg.Errors} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset output: %w", err)
		}
	}
	sink := storage.NewJsonlStorage(cfg.Out)
	reject := newRejectWriter(storage.NewRejectLog(cfg.Errors), logger)

	var total, decoded, failed, duplicates int
	builder := pipeline.NewBuilder(contract, decoder, pipeline.Options{
		SkipMalformed: cfg.SkipMalformed,
		StrictFilter:  cfg.StrictFilter,
		OnReject: func(log model.RawLog, err error) {
			failed++
			reject(model.NewDecodeErrorRecord(log, err))
		},
	}, logger)

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("skip_malformed", cfg.SkipMalformed),
	)

	var current *model.Block
	seen := make(map[uint64]struct{})
	flush := func() error {
		if current == nil {
			return nil
		}
		records, err := builder.Build(ctx, []model.Block{*current})
		if err != nil {
			return err
		}
		current = nil
		seen = make(map[uint64]struct{})
		if err := sink.PutTransferBatch(ctx, records); err != nil {
			return err
		}
		decoded += len(records)
		return nil
	}

	err = storage.ScanJSONL(cfg.In, func(line []byte) error {
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			reject(model.DecodeErrorRecord{Error: err.Error()})
			return nil
		}
		raw, err := record.ToRawLog()
		if err != nil {
			failed++
			reject(decodeErrorFromRecord(record, err))
			return nil
		}

		// The archive is ascending by height; anything behind the open block was archived twice.
		if current != nil && raw.BlockNumber <= current.Header.Height {
			if _, ok := seen[raw.LogIndex]; ok || raw.BlockNumber < current.Header.Height {
				duplicates++
				logger.Warn("skipping repeated log", zap.String("log_id", raw.ID()))
				return nil
			}
		} else {
			if err := flush(); err != nil {
				return err
			}
			current = &model.Block{Header: model.BlockHeader{
				Height:    raw.BlockNumber,
				Hash:      raw.BlockHash,
				Timestamp: time.Unix(int64(record.Timestamp), 0).UTC(),
			}}
		}
		seen[raw.LogIndex] = struct{}{}
		current.Logs = append(current.Logs, raw)
		if _, ok := current.TransactionFor(raw); !ok {
			current.Transactions = append(current.Transactions, model.Transaction{Hash: raw.TxHash, Index: raw.TxIndex})
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("failed", failed),
		zap.Int("duplicates", duplicates),
	)
	return nil
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeErrorRecord {
	topic0 := ""
	if len(record.Topics) > 0 {
		topic0 = record.Topics[0]
	}
	return model.DecodeErrorRecord{
		LogID:       model.FormatLogID(record.BlockNumber, common.HexToHash(record.BlockHash), record.LogIndex),
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      topic0,
		Error:       err.Error(),
	}
}
