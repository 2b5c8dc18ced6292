package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RawLog is a chain log as delivered by the source feed.
type RawLog struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	BlockHash   common.Hash
	TxHash      common.Hash
	TxIndex     uint64
	LogIndex    uint64
}

// ID returns the position-derived identifier of the log.
func (l RawLog) ID() string {
	return FormatLogID(l.BlockNumber, l.BlockHash, l.LogIndex)
}

// FormatLogID builds "<height>-<hash prefix>-<log index>" with fixed-width padding.
func FormatLogID(height uint64, blockHash common.Hash, logIndex uint64) string {
	hash := strings.TrimPrefix(blockHash.Hex(), "0x")
	return fmt.Sprintf("%010d-%s-%06d", height, hash[:5], logIndex)
}

// BlockHeader carries the header fields used by the pipeline.
type BlockHeader struct {
	Height    uint64
	Hash      common.Hash
	Timestamp time.Time
}

// Transaction is the subset of transaction fields referenced by logs.
type Transaction struct {
	Hash  common.Hash
	Index uint64
}

// Block groups the logs and transactions of a single height.
type Block struct {
	Header       BlockHeader
	Logs         []RawLog
	Transactions []Transaction
}

// TransactionFor resolves the transaction that emitted the log.
func (b Block) TransactionFor(log RawLog) (Transaction, bool) {
	for _, tx := range b.Transactions {
		if tx.Hash == log.TxHash {
			return tx, true
		}
	}
	return Transaction{}, false
}
