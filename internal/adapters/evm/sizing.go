package evm

// sizing.go — gas-cost-aware partitioning of the wallet balance.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arodriguezf/hypebot/internal/domain"
)

const (
	// Nominal gas limit for a single-hop V3 swap, used to project the gas
	// reserve before the real estimate exists.
	swapGasLimit = uint64(300_000)

	// Extra native-currency headroom on top of the projected gas cost.
	gasSafetyBufferEth = 0.0002
)

// TradeSize is the result of balance-safe sizing.
type TradeSize struct {
	AmountEth  float64 // what will actually be spent on the swap
	FeeTier    uint32  // liquidity tier resolved for that amount
	GasReserve float64 // native units withheld for gas + safety buffer
}

// SafeTradeAmount partitions availableBalance into a tradeable amount and a
// gas reserve. When targetOut is non-nil the input is inverted from the
// quote (§ quote.go); if the exact input exceeds what the balance allows it
// is silently capped — best effort, not a hard failure.
//
// Invariant: AmountEth + GasReserve <= availableBalance.
func (c *Client) SafeTradeAmount(ctx context.Context, token common.Address, availableBalance float64, targetOut *big.Int) (TradeSize, error) {
	gasCfg := c.GasConfig(ctx, swapGasLimit, domain.UrgencyStandard)
	gasReserve := weiToEth(gasCfg.MaxCostWei()) + gasSafetyBufferEth

	if availableBalance <= gasReserve {
		return TradeSize{}, fmt.Errorf("evm.SafeTradeAmount: %w: balance %.6f, reserve %.6f",
			domain.ErrInsufficientBalance, availableBalance, gasReserve)
	}
	maxTrade := availableBalance - gasReserve

	if targetOut == nil {
		quote, err := c.FindBestFeeAndQuote(ctx, token, ethToWei(maxTrade), DefaultSlippagePct)
		if err != nil {
			return TradeSize{}, fmt.Errorf("evm.SafeTradeAmount: %w", err)
		}
		return TradeSize{AmountEth: maxTrade, FeeTier: quote.FeeTier, GasReserve: gasReserve}, nil
	}

	inputWei, tier, err := c.InputForTargetOutput(ctx, token, targetOut)
	if err != nil {
		return TradeSize{}, fmt.Errorf("evm.SafeTradeAmount: %w", err)
	}
	input := weiToEth(inputWei)
	if input > maxTrade {
		slog.Warn("evm: target output needs more than balance allows, capping",
			"needed", fmt.Sprintf("%.6f", input),
			"capped_to", fmt.Sprintf("%.6f", maxTrade))
		input = maxTrade
	}
	return TradeSize{AmountEth: input, FeeTier: tier, GasReserve: gasReserve}, nil
}
