package erc20

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceReader queries token balances at the chain head.
// The Tron JSON-RPC transport only serves eth_call against the latest block,
// so there is no historical variant.
type BalanceReader struct {
	caller ContractCaller
	token  common.Address
}

func NewBalanceReader(caller ContractCaller, token common.Address) *BalanceReader {
	return &BalanceReader{caller: caller, token: token}
}

// BalanceOf returns the current balance of owner.
func (r *BalanceReader) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if r == nil || r.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := TokenABI()
	if err != nil {
		return nil, err
	}

	values, err := callMethod(ctx, r.caller, r.token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	return asBigInt(values[0])
}

func callMethod(ctx context.Context, caller ContractCaller, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
