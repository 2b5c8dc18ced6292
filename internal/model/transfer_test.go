package model

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"
)

func TestTransferRecordJSONAmountString(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	record := TransferRecord{
		ID:              "0000000010-0a1b2-000002",
		BlockNumber:     10,
		Timestamp:       time.Unix(1700000000, 0).UTC(),
		TransactionHash: "0xdef456",
		From:            "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		To:              "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb",
		Amount:          huge,
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := generic["amount"].(string); !ok {
		t.Fatalf("amount should be string")
	}

	var decoded TransferRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if decoded.Amount.Cmp(huge) != 0 {
		t.Fatalf("amount mismatch: %s", decoded.Amount)
	}
	if !decoded.Timestamp.Equal(record.Timestamp) {
		t.Fatalf("timestamp mismatch: %s", decoded.Timestamp)
	}
}

func TestTransferRecordRejectsBadAmount(t *testing.T) {
	var decoded TransferRecord
	if err := json.Unmarshal([]byte(`{"id":"x","amount":"12a"}`), &decoded); err == nil {
		t.Fatalf("expected error for invalid amount")
	}
}
