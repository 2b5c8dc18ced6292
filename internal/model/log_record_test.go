package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLogRecordRawLogRoundTrip(t *testing.T) {
	raw := RawLog{
		Address:     common.HexToAddress("0xa614f803b6fd780986a42c78ec9c7f77e6ded13c"),
		Topics:      []common.Hash{common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")},
		Data:        []byte{0xde, 0xad, 0xbe, 0xef},
		BlockNumber: 61000000,
		BlockHash:   common.HexToHash("0x0abc12"),
		TxHash:      common.HexToHash("0xdef456"),
		TxIndex:     7,
		LogIndex:    12,
	}

	record := NewLogRecord(728126428, raw, 1700000000)
	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	back, err := decoded.ToRawLog()
	if err != nil {
		t.Fatalf("to raw log: %v", err)
	}
	if !reflect.DeepEqual(raw, back) {
		t.Fatalf("round-trip mismatch: %+v != %+v", raw, back)
	}
}

func TestLogRecordEmptyData(t *testing.T) {
	record := LogRecord{
		Address: "0x1111111111111111111111111111111111111111",
		Data:    "0x",
	}
	raw, err := record.ToRawLog()
	if err != nil {
		t.Fatalf("to raw log: %v", err)
	}
	if len(raw.Data) != 0 {
		t.Fatalf("expected empty data, got %x", raw.Data)
	}
}

func TestLogRecordInvalidTopic(t *testing.T) {
	record := LogRecord{
		Address: "0x1111111111111111111111111111111111111111",
		Topics:  []string{"0x1234"},
	}
	if _, err := record.ToRawLog(); err == nil {
		t.Fatalf("expected error for short topic")
	}
}

func TestFormatLogID(t *testing.T) {
	hash := common.HexToHash("0x0a1b2c3d00000000000000000000000000000000000000000000000000000000")
	got := FormatLogID(61234567, hash, 3)
	if got != "0061234567-0a1b2-000003" {
		t.Fatalf("unexpected id: %s", got)
	}
}
