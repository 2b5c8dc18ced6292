package model

import "time"

// TransferWindowMetrics stores aggregated transfer activity for a window.
type TransferWindowMetrics struct {
	ChainID         uint64
	Contract        string
	WindowSizeSecs  int64
	WindowStart     time.Time
	WindowEnd       time.Time
	TransferCount   uint64
	VolumeRaw       string
	Volume          string
	MaxTransferRaw  string
	UniqueSenders   uint64
	UniqueReceivers uint64
	FirstBlock      uint64
	LastBlock       uint64
}
