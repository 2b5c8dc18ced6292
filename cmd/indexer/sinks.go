package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"transferScope/internal/config"
	"transferScope/internal/indexer"
	"transferScope/internal/storage"
	"transferScope/internal/storage/postgres"
	"transferScope/internal/storage/sqlite"
)

type sinkSet struct {
	storage storage.Storage
	state   storage.StateBackend
	closer  func()
}

func (s *sinkSet) Close() {
	if s.closer != nil {
		s.closer()
	}
}

func openSink(ctx context.Context, cfg config.Config) (*sinkSet, error) {
	switch cfg.Sink {
	case config.SinkJSONL:
		return &sinkSet{storage: storage.NewJsonlStorage(cfg.Out)}, nil
	case config.SinkPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &sinkSet{storage: store, state: store, closer: store.Close}, nil
	case config.SinkSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &sinkSet{storage: store, state: store, closer: func() { _ = store.Close() }}, nil
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

func openCheckpoint(ctx context.Context, cfg config.Config, state storage.StateBackend) (indexer.Checkpointer, func(), error) {
	noop := func() {}
	switch cfg.CheckpointBackend {
	case config.CheckpointNone:
		return nil, noop, nil
	case config.CheckpointFile:
		return indexer.NewFileCheckpoint(cfg.Checkpoint), noop, nil
	case config.CheckpointDB:
		if state == nil {
			return nil, noop, fmt.Errorf("sink %q has no state table", cfg.Sink)
		}
		return indexer.NewStateCheckpoint(state, cfg.CheckpointName), noop, nil
	case config.CheckpointRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect redis: %w", err)
		}
		return indexer.NewRedisCheckpoint(client, "transferscope:"+cfg.CheckpointName), func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
	}
}
