package address

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

const (
	// Prefix is the version byte of mainnet Tron addresses.
	Prefix byte = 0x41

	checksumLen = 4
	payloadLen  = 1 + common.AddressLength
)

// InvalidAddressError reports an address that cannot be converted between encodings.
type InvalidAddressError struct {
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}

// ToInternal converts a native Tron address into the 20-byte form used by the ABI codec.
// Base58check (T...) and 21-byte hex (41...) inputs are accepted.
func ToInternal(native string) (common.Address, error) {
	native = strings.TrimSpace(native)
	if native == "" {
		return common.Address{}, &InvalidAddressError{Input: native, Reason: "empty"}
	}
	if isHexPayload(native) {
		return fromHexPayload(native)
	}

	raw, err := base58.Decode(native)
	if err != nil {
		return common.Address{}, &InvalidAddressError{Input: native, Reason: err.Error()}
	}
	if len(raw) != payloadLen+checksumLen {
		return common.Address{}, &InvalidAddressError{Input: native, Reason: fmt.Sprintf("decoded length %d", len(raw))}
	}

	payload, sum := raw[:payloadLen], raw[payloadLen:]
	if !bytes.Equal(checksum(payload), sum) {
		return common.Address{}, &InvalidAddressError{Input: native, Reason: "checksum mismatch"}
	}
	if payload[0] != Prefix {
		return common.Address{}, &InvalidAddressError{Input: native, Reason: fmt.Sprintf("version byte 0x%02x", payload[0])}
	}
	return common.BytesToAddress(payload[1:]), nil
}

// ToNative converts a 20-byte hex address (0x prefix optional) into base58check.
func ToNative(hexAddr string) (string, error) {
	trimmed := strings.TrimSpace(hexAddr)
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		trimmed = "0x" + trimmed
	}
	raw, err := hexutil.Decode(strings.ToLower(trimmed))
	if err != nil {
		return "", &InvalidAddressError{Input: hexAddr, Reason: err.Error()}
	}
	if len(raw) != common.AddressLength {
		return "", &InvalidAddressError{Input: hexAddr, Reason: fmt.Sprintf("expected %d bytes, got %d", common.AddressLength, len(raw))}
	}
	return FromAddress(common.BytesToAddress(raw)), nil
}

// FromAddress encodes a decoded address as base58check.
func FromAddress(addr common.Address) string {
	payload := make([]byte, 0, payloadLen+checksumLen)
	payload = append(payload, Prefix)
	payload = append(payload, addr.Bytes()...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// HexBody returns the 41-prefixed hex form without 0x, as used by Tron APIs.
func HexBody(addr common.Address) string {
	return fmt.Sprintf("%02x%x", Prefix, addr.Bytes())
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

func isHexPayload(input string) bool {
	body := strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	if len(body) != payloadLen*2 {
		return false
	}
	for _, c := range body {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func fromHexPayload(input string) (common.Address, error) {
	body := strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	raw, err := hexutil.Decode("0x" + strings.ToLower(body))
	if err != nil {
		return common.Address{}, &InvalidAddressError{Input: input, Reason: err.Error()}
	}
	if raw[0] != Prefix {
		return common.Address{}, &InvalidAddressError{Input: input, Reason: fmt.Sprintf("version byte 0x%02x", raw[0])}
	}
	return common.BytesToAddress(raw[1:]), nil
}
