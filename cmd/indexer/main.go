package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"transferScope/internal/chain"
	"transferScope/internal/config"
	"transferScope/internal/erc20"
	"transferScope/internal/indexer"
	"transferScope/internal/metrics"
	"transferScope/internal/model"
	"transferScope/internal/pipeline"
	"transferScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Tron TRC-20 transfer indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index Transfer events into the configured sink",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "https://api.trongrid.io/jsonrpc", "Tron JSON-RPC URL")
	runCmd.Flags().String("contract", config.DefaultContract, "token contract (base58 or hex)")
	runCmd.Flags().String("topic0", config.DefaultTopic0, "Transfer event signature hash")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("batch-size", 100, "blocks per batch")
	runCmd.Flags().Bool("follow", false, "keep polling the chain head after catching up")
	runCmd.Flags().Duration("poll-interval", 3*time.Second, "head polling interval in follow mode")
	runCmd.Flags().String("sink", config.SinkJSONL, "sink kind (jsonl, postgres, sqlite)")
	runCmd.Flags().String("out", "./data/transfers.jsonl", "transfers JSONL path (jsonl sink)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (postgres sink)")
	runCmd.Flags().String("sqlite-path", "./data/transfers.db", "sqlite database path (sqlite sink)")
	runCmd.Flags().String("raw-out", "", "optional raw log archive JSONL path")
	runCmd.Flags().String("rejects", "./data/rejected_logs.jsonl", "rejected logs JSONL path (with --skip-malformed)")
	runCmd.Flags().String("checkpoint-backend", config.CheckpointFile, "checkpoint backend (file, db, redis, none)")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().String("checkpoint-name", "usdt-transfers", "checkpoint key for db and redis backends")
	runCmd.Flags().String("redis-addr", "localhost:6379", "redis address (redis checkpoint backend)")
	runCmd.Flags().Bool("skip-malformed", false, "skip and log logs that fail to decode instead of failing the batch")
	runCmd.Flags().Bool("strict-filter", false, "fail the batch when a log outside the filter is delivered")
	runCmd.Flags().Bool("observe-balances", false, "log head balances of transfer parties (best effort)")
	runCmd.Flags().Duration("observer-timeout", 2*time.Second, "per-call timeout for balance observation")
	runCmd.Flags().Float64("rps", 5, "max RPC requests per second, 0 disables limiting")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("metrics-addr", "", "status server listen address (/healthz, /metrics)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a raw log archive into transfer records",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/transfers.jsonl", "output transfers JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("contract", config.DefaultContract, "token contract (base58 or hex)")
	decodeCmd.Flags().Bool("skip-malformed", true, "skip and log logs that fail to decode")
	decodeCmd.Flags().Bool("strict-filter", false, "fail when a log outside the filter is found")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate transfers into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("rpc", "", "Tron JSON-RPC URL (chain id and decimals lookup)")
	aggregateCmd.Flags().String("in", "./data/transfers.jsonl", "input transfers JSONL")
	aggregateCmd.Flags().String("contract", config.DefaultContract, "token contract (base58 or hex)")
	aggregateCmd.Flags().Uint64("chain-id", 0, "chain id stored with the metrics, 0 reads it from rpc")
	aggregateCmd.Flags().Int("decimals", -1, "token decimals, negative reads them from rpc")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	root.AddCommand(&cobra.Command{
		Use:   "address <address>...",
		Short: "Convert addresses between base58 and hex",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAddress,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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
	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	decoder, err := erc20.NewTransferDecoder()
	if err != nil {
		return err
	}
	if decoder.Signature() != topic0 {
		return fmt.Errorf("topic0 %s is not the Transfer event signature %s", topic0.Hex(), decoder.Signature().Hex())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{RequestsPerSecond: cfg.RequestsPerSecond})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sinks, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sinks.Close()

	checkpoint, closeCheckpoint, err := openCheckpoint(ctx, cfg, sinks.state)
	if err != nil {
		return err
	}
	defer closeCheckpoint()

	if meta, err := erc20.FetchTokenMeta(ctx, chainClient, contract, logger); err != nil {
		logger.Warn("token metadata unavailable", zap.Error(err))
	} else {
		logger.Info("token", zap.String("symbol", meta.Symbol), zap.String("name", meta.Name), zap.Uint8("decimals", meta.Decimals))
	}

	opts := pipeline.Options{
		SkipMalformed: cfg.SkipMalformed,
		StrictFilter:  cfg.StrictFilter,
	}
	if cfg.SkipMalformed && cfg.Rejects != "" {
		rejects := storage.NewRejectLog(cfg.Rejects)
		opts.OnReject = newRejectHandler(rejects, logger)
	}
	if cfg.ObserveBalances {
		balances := pipeline.NewBalanceObserver(erc20.NewBalanceReader(chainClient, contract), logger)
		opts.Observer = pipeline.NewIsolatedObserver(balances, cfg.ObserverTimeout, logger)
	}

	builder := pipeline.NewBuilder(contract, decoder, opts, logger)
	processor := pipeline.NewProcessor(builder, sinks.storage, logger)

	status := &metrics.Status{}
	runnerOpts := []indexer.Option{indexer.WithStatus(status)}
	if checkpoint != nil {
		runnerOpts = append(runnerOpts, indexer.WithCheckpoint(checkpoint))
	}
	if cfg.RawOut != "" {
		runnerOpts = append(runnerOpts, indexer.WithArchive(storage.NewRawLogArchive(cfg.RawOut)))
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Contract:     contract,
		Topic0:       topic0,
		BatchSize:    cfg.BatchSize,
		Follow:       cfg.Follow,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, processor, logger, runnerOpts...)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, status, logger); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("follow", cfg.Follow),
		zap.String("sink", cfg.Sink),
		zap.String("checkpoint_backend", cfg.CheckpointBackend),
		zap.Bool("skip_malformed", cfg.SkipMalformed),
		zap.Bool("strict_filter", cfg.StrictFilter),
	)

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("indexer stopped")
			return nil
		}
		return err
	}
	return nil
}

func newRejectHandler(rejects *storage.RejectLog, logger *zap.Logger) pipeline.RejectHandler {
	write := newRejectWriter(rejects, logger)
	return func(log model.RawLog, err error) {
		write(model.NewDecodeErrorRecord(log, err))
	}
}

// newRejectWriter appends reject rows and logs write failures.
func newRejectWriter(rejects *storage.RejectLog, logger *zap.Logger) func(model.DecodeErrorRecord) {
	return func(record model.DecodeErrorRecord) {
		if err := rejects.Put(record); err != nil {
			logger.Error("write reject",
				zap.String("log_id", record.LogID),
				zap.Uint64("block_number", record.BlockNumber),
				zap.Error(err),
			)
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
