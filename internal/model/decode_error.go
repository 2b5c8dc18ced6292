package model

// DecodeErrorRecord records a rejected log line.
type DecodeErrorRecord struct {
	LogID       string `json:"log_id,omitempty"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}

// NewDecodeErrorRecord builds a reject entry for a raw log.
func NewDecodeErrorRecord(log RawLog, err error) DecodeErrorRecord {
	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	return DecodeErrorRecord{
		LogID:       log.ID(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    log.LogIndex,
		Address:     log.Address.Hex(),
		Topic0:      topic0,
		Error:       err.Error(),
	}
}
