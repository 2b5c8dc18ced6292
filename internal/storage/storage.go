package storage

import (
	"context"

	"transferScope/internal/model"
)

// Storage is the sink for transfer batches.
// A batch is written in order and becomes visible entirely or not at all.
type Storage interface {
	PutTransferBatch(ctx context.Context, records []model.TransferRecord) error
}

// StateBackend persists named progress markers.
type StateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, value uint64) error
}
