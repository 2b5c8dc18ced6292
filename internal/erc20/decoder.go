package erc20

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"transferScope/internal/model"
)

const slotSize = 32

// TransferDecoder decodes Transfer logs against a fixed event descriptor.
type TransferDecoder struct {
	event   abi.Event
	indexed abi.Arguments
}

// NewTransferDecoder builds a decoder for the standard Transfer event.
func NewTransferDecoder() (*TransferDecoder, error) {
	event, err := TransferEvent()
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	return NewDecoderFor(event), nil
}

// NewDecoderFor builds a decoder for an event with the Transfer shape.
func NewDecoderFor(event abi.Event) *TransferDecoder {
	return &TransferDecoder{
		event:   event,
		indexed: indexedArguments(event.Inputs),
	}
}

// Signature returns the expected topic0.
func (d *TransferDecoder) Signature() common.Hash {
	return d.event.ID
}

// Decode validates and decodes a raw log. It has no side effects.
func (d *TransferDecoder) Decode(log model.RawLog) (model.DecodedTransfer, error) {
	logID := log.ID()
	if len(log.Topics) == 0 {
		return model.DecodedTransfer{}, &SignatureMismatchError{LogID: logID, Expected: d.event.ID, Missing: true}
	}
	if log.Topics[0] != d.event.ID {
		return model.DecodedTransfer{}, &SignatureMismatchError{LogID: logID, Expected: d.event.ID, Got: log.Topics[0]}
	}

	if len(log.Topics) != len(d.indexed)+1 {
		return model.DecodedTransfer{}, &DecodeError{
			LogID:  logID,
			Reason: fmt.Sprintf("expected %d topics, got %d", len(d.indexed)+1, len(log.Topics)),
		}
	}

	nonIndexed := d.event.Inputs.NonIndexed()
	if want := slotSize * len(nonIndexed); len(log.Data) < want {
		return model.DecodedTransfer{}, &DecodeError{
			LogID:  logID,
			Reason: fmt.Sprintf("data has %d bytes, need %d", len(log.Data), want),
		}
	}

	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := abi.ParseTopics(&indexed, d.indexed, log.Topics[1:]); err != nil {
		return model.DecodedTransfer{}, &DecodeError{LogID: logID, Reason: "parse topics", Err: err}
	}

	values, err := nonIndexed.Unpack(log.Data)
	if err != nil {
		return model.DecodedTransfer{}, &DecodeError{LogID: logID, Reason: "unpack data", Err: err}
	}
	if len(values) != 1 {
		return model.DecodedTransfer{}, &DecodeError{LogID: logID, Reason: fmt.Sprintf("unexpected value count %d", len(values))}
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return model.DecodedTransfer{}, &DecodeError{LogID: logID, Reason: "value", Err: err}
	}

	return model.DecodedTransfer{
		From:  indexed.From,
		To:    indexed.To,
		Value: value,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	var v uint64
	switch n := value.(type) {
	case uint8:
		return n, nil
	case uint16:
		v = uint64(n)
	case uint32:
		v = uint64(n)
	case uint64:
		v = n
	case *big.Int:
		if !n.IsUint64() {
			return 0, fmt.Errorf("value %s out of uint8 range", n)
		}
		v = n.Uint64()
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("value %d out of uint8 range", v)
	}
	return uint8(v), nil
}
