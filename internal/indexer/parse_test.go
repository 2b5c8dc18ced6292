package indexer

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"transferScope/internal/address"
)

var usdtHex = common.HexToAddress("0xa614f803b6fd780986a42c78ec9c7f77e6ded13c")

func TestParseContract(t *testing.T) {
	inputs := []string{
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		"41a614f803b6fd780986a42c78ec9c7f77e6ded13c",
		"0xa614f803b6fd780986a42c78ec9c7f77e6ded13c",
		" a614f803b6fd780986a42c78ec9c7f77e6ded13c ",
	}
	for _, input := range inputs {
		got, err := ParseContract(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != usdtHex {
			t.Fatalf("parse %q: got %s", input, got.Hex())
		}
	}
}

func TestParseContractInvalid(t *testing.T) {
	if _, err := ParseContract(""); err == nil {
		t.Fatalf("expected error for empty contract")
	}
	_, err := ParseContract("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u")
	var invalid *address.InvalidAddressError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidAddressError, got %v", err)
	}
}

func TestParseTopic0(t *testing.T) {
	got, err := ParseTopic0("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hex() != "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef" {
		t.Fatalf("topic mismatch: %s", got.Hex())
	}
	if _, err := ParseTopic0("0xddf252"); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := ParseTopic0("zz"); err == nil {
		t.Fatalf("expected hex error")
	}
}
