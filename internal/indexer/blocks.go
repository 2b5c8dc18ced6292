package indexer

import (
	"sort"

	"github.com/ethereum/go-ethereum/core/types"

	"transferScope/internal/model"
)

func toRawLog(log types.Log) model.RawLog {
	return model.RawLog{
		Address:     log.Address,
		Topics:      log.Topics,
		Data:        log.Data,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
	}
}

type logKey struct {
	block uint64
	index uint
}

// normalizeLogs drops removed and duplicate logs and sorts by (block, log index).
func normalizeLogs(logs []types.Log) []types.Log {
	seen := make(map[logKey]struct{}, len(logs))
	out := make([]types.Log, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		key := logKey{block: log.BlockNumber, index: log.Index}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, log)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// groupBlocks splits sorted logs into one Block per height.
// Headers must contain every height present in logs.
func groupBlocks(logs []types.Log, headers map[uint64]model.BlockHeader) []model.Block {
	var blocks []model.Block
	for _, log := range logs {
		if len(blocks) == 0 || blocks[len(blocks)-1].Header.Height != log.BlockNumber {
			blocks = append(blocks, model.Block{Header: headers[log.BlockNumber]})
		}
		current := &blocks[len(blocks)-1]
		raw := toRawLog(log)
		current.Logs = append(current.Logs, raw)
		if _, ok := current.TransactionFor(raw); !ok {
			current.Transactions = append(current.Transactions, model.Transaction{Hash: raw.TxHash, Index: raw.TxIndex})
		}
	}
	return blocks
}
