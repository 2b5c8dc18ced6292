package aggregate

import (
	"math/big"

	"transferScope/internal/model"
)

// Accumulator holds aggregate values for one contract window.
type Accumulator struct {
	WindowStart   uint64
	WindowEnd     uint64
	TransferCount uint64
	Volume        *big.Int
	MaxTransfer   *big.Int
	FirstBlock    uint64
	LastBlock     uint64
	senders       map[string]struct{}
	receivers     map[string]struct{}
}

func NewAccumulator(windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume:      big.NewInt(0),
		MaxTransfer: big.NewInt(0),
		senders:     make(map[string]struct{}),
		receivers:   make(map[string]struct{}),
	}
}

// AddTransfer folds one record into the window.
func (a *Accumulator) AddTransfer(record model.TransferRecord) {
	amount := record.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	a.TransferCount++
	a.Volume.Add(a.Volume, amount)
	if amount.Cmp(a.MaxTransfer) > 0 {
		a.MaxTransfer.Set(amount)
	}
	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}
	if record.BlockNumber > a.LastBlock {
		a.LastBlock = record.BlockNumber
	}
	a.senders[record.From] = struct{}{}
	a.receivers[record.To] = struct{}{}
}

func (a *Accumulator) UniqueSenders() uint64 {
	return uint64(len(a.senders))
}

func (a *Accumulator) UniqueReceivers() uint64 {
	return uint64(len(a.receivers))
}
