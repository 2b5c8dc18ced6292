package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DecodedTransfer is the typed payload of a Transfer event.
type DecodedTransfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// TransferRecord is the persisted form of a single transfer.
type TransferRecord struct {
	ID              string
	BlockNumber     uint64
	Timestamp       time.Time
	TransactionHash string
	From            string
	To              string
	Amount          *big.Int
}

type transferRecordJSON struct {
	ID              string    `json:"id"`
	BlockNumber     uint64    `json:"block_number"`
	Timestamp       time.Time `json:"timestamp"`
	TransactionHash string    `json:"tx"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Amount          string    `json:"amount"`
}

// MarshalJSON encodes the amount as a decimal string.
func (r TransferRecord) MarshalJSON() ([]byte, error) {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return json.Marshal(transferRecordJSON{
		ID:              r.ID,
		BlockNumber:     r.BlockNumber,
		Timestamp:       r.Timestamp.UTC(),
		TransactionHash: r.TransactionHash,
		From:            r.From,
		To:              r.To,
		Amount:          amount,
	})
}

// UnmarshalJSON decodes a TransferRecord from JSON.
func (r *TransferRecord) UnmarshalJSON(data []byte) error {
	var raw transferRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(raw.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount: %q", raw.Amount)
	}
	*r = TransferRecord{
		ID:              raw.ID,
		BlockNumber:     raw.BlockNumber,
		Timestamp:       raw.Timestamp,
		TransactionHash: raw.TransactionHash,
		From:            raw.From,
		To:              raw.To,
		Amount:          amount,
	}
	return nil
}
