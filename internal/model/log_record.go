package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LogRecord is the JSONL archive form of a raw log.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at,omitempty"`
}

// NewLogRecord converts a raw log into its archive form.
func NewLogRecord(chainID uint64, log RawLog, timestamp uint64) LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     log.TxIndex,
		LogIndex:    log.LogIndex,
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Timestamp:   timestamp,
	}
}

// ToRawLog parses the hex fields back into a RawLog.
func (lr LogRecord) ToRawLog() (RawLog, error) {
	if !common.IsHexAddress(lr.Address) {
		return RawLog{}, fmt.Errorf("invalid address: %s", lr.Address)
	}

	topics := make([]common.Hash, 0, len(lr.Topics))
	for _, topic := range lr.Topics {
		raw, err := hexutil.Decode(topic)
		if err != nil {
			return RawLog{}, fmt.Errorf("invalid topic %s: %w", topic, err)
		}
		if len(raw) != common.HashLength {
			return RawLog{}, fmt.Errorf("topic length %d: %s", len(raw), topic)
		}
		topics = append(topics, common.BytesToHash(raw))
	}

	var data []byte
	if lr.Data != "" && lr.Data != "0x" {
		decoded, err := hexutil.Decode(lr.Data)
		if err != nil {
			return RawLog{}, fmt.Errorf("invalid data: %w", err)
		}
		data = decoded
	}

	return RawLog{
		Address:     common.HexToAddress(lr.Address),
		Topics:      topics,
		Data:        data,
		BlockNumber: lr.BlockNumber,
		BlockHash:   common.HexToHash(lr.BlockHash),
		TxHash:      common.HexToHash(lr.TxHash),
		TxIndex:     lr.TxIndex,
		LogIndex:    lr.LogIndex,
	}, nil
}
