package erc20

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DecodeError reports a log whose payload does not match the event layout.
type DecodeError struct {
	LogID  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode log %s: %s: %v", e.LogID, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode log %s: %s", e.LogID, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SignatureMismatchError reports a log whose topic0 is not the expected event.
// It indicates a broken upstream filter rather than bad data.
type SignatureMismatchError struct {
	LogID    string
	Expected common.Hash
	Got      common.Hash
	Missing  bool
}

func (e *SignatureMismatchError) Error() string {
	if e.Missing {
		return fmt.Sprintf("log %s: missing topic0, expected %s", e.LogID, e.Expected.Hex())
	}
	return fmt.Sprintf("log %s: topic0 %s, expected %s", e.LogID, e.Got.Hex(), e.Expected.Hex())
}
