package aggregate

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"transferScope/internal/erc20"
)

// ResolveDecimals returns configured decimals, or reads them from the token contract when negative.
func ResolveDecimals(ctx context.Context, configured int, caller erc20.ContractCaller, token common.Address, logger *zap.Logger) (uint8, error) {
	if configured > math.MaxUint8 {
		return 0, fmt.Errorf("decimals out of range: %d", configured)
	}
	if configured >= 0 {
		return uint8(configured), nil
	}
	if caller == nil {
		return 0, fmt.Errorf("decimals not configured and no rpc available")
	}
	meta, err := erc20.FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return 0, fmt.Errorf("fetch token meta: %w", err)
	}
	return meta.Decimals, nil
}
