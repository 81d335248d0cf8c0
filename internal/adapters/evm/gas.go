package evm

// gas.go — gas limit estimation and fee computation.
//
// Estimation failures usually mean the swap would revert (no liquidity,
// transfer restrictions, amount below pool minimum), so the error message
// is worth keeping. Fee computation never fails on transient RPC errors:
// every network read falls back to a conservative constant.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"

	"github.com/arodriguezf/hypebot/internal/domain"
	"github.com/arodriguezf/hypebot/internal/retry"
)

const (
	gasEstimateAttempts  = 3
	gasEstimateBaseDelay = 1 * time.Second

	// Buffer added on top of the node's estimate, then floored per
	// network class. Congested networks routinely underestimate.
	gasBufferPct      = 20
	gasFloorMainnet   = uint64(150_000)
	gasFloorTestnet   = uint64(80_000)

	// Fee floors keep transactions from being rejected as underpriced.
	priorityFloorMainnetWei = int64(1_000_000_000)   // 1 gwei
	priorityFloorTestnetWei = int64(100_000_000)     // 0.1 gwei
	legacyPriceFloorWei     = int64(1_000_000_000)   // 1 gwei

	// Used when the latest block (and its base fee) cannot be read.
	fallbackBaseFeeWei = int64(50_000_000)           // 0.05 gwei, typical for Base
	basePriorityFeeWei = int64(1_000_000_000)        // 1 gwei before urgency scaling
)

// EstimateGas runs eth_estimateGas for msg with retries and exponential
// backoff. After the budget is exhausted it fails with
// domain.ErrGasEstimation carrying the last node error.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := retry.Do(ctx, retry.Policy{
		Attempts:  gasEstimateAttempts,
		BaseDelay: gasEstimateBaseDelay,
		Sleep:     c.sleep,
	}, func(attempt int) error {
		var err error
		gas, err = c.backend.EstimateGas(ctx, msg)
		if err != nil {
			slog.Debug("evm: gas estimate failed", "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("evm.EstimateGas: %w: %w", domain.ErrGasEstimation, err)
	}
	return gas, nil
}

// GasConfig turns a raw gas estimate into submit-ready parameters for the
// given urgency tier. It prefers the fee-market scheme and only uses a
// legacy gas price when the chain reports no base fee. RPC failures here
// degrade to hardcoded conservative constants, never to an error.
func (c *Client) GasConfig(ctx context.Context, estimatedGas uint64, urgency domain.Urgency) domain.GasConfig {
	limit := estimatedGas + estimatedGas*gasBufferPct/100
	floor := gasFloorMainnet
	if c.network.Testnet {
		floor = gasFloorTestnet
	}
	if limit < floor {
		limit = floor
	}

	baseFee, haveBaseFee := c.latestBaseFee(ctx)
	if !haveBaseFee {
		return c.legacyGasConfig(ctx, limit, urgency)
	}

	priority := new(big.Int).SetInt64(basePriorityFeeWei)
	priority = scaleByUrgency(priority, urgency)
	priorityFloor := big.NewInt(priorityFloorMainnetWei)
	if c.network.Testnet {
		priorityFloor = big.NewInt(priorityFloorTestnetWei)
	}
	if priority.Cmp(priorityFloor) < 0 {
		priority = priorityFloor
	}

	// maxFee = baseFee × multiplier + priority. Mainnet scales the
	// multiplier with urgency; testnets keep the flat 2× headroom.
	mult := baseFeeMultiplier(urgency, c.network.Testnet)
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(mult))
	maxFee.Div(maxFee, big.NewInt(10))
	maxFee.Add(maxFee, priority)

	return domain.GasConfig{
		Scheme:      domain.GasSchemeDynamic,
		GasLimit:    limit,
		MaxFee:      maxFee,
		PriorityFee: priority,
	}
}

// latestBaseFee reads the base fee from the latest block header. The second
// return is false when the chain is pre-1559; RPC failures fall back to the
// constant so fee computation never throws on a transient outage.
func (c *Client) latestBaseFee(ctx context.Context) (*big.Int, bool) {
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		slog.Warn("evm: base fee read failed, using fallback", "err", err)
		return big.NewInt(fallbackBaseFeeWei), true
	}
	if header.BaseFee == nil {
		return nil, false
	}
	return new(big.Int).Set(header.BaseFee), true
}

// legacyGasConfig derives a single flat gas price from current fee data.
func (c *Client) legacyGasConfig(ctx context.Context, limit uint64, urgency domain.Urgency) domain.GasConfig {
	price, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		slog.Warn("evm: gas price read failed, using floor", "err", err)
		price = big.NewInt(legacyPriceFloorWei)
	}
	price = scaleByUrgency(new(big.Int).Set(price), urgency)
	if price.Cmp(big.NewInt(legacyPriceFloorWei)) < 0 {
		price = big.NewInt(legacyPriceFloorWei)
	}
	return domain.GasConfig{
		Scheme:   domain.GasSchemeLegacy,
		GasLimit: limit,
		GasPrice: price,
	}
}

// scaleByUrgency multiplies a fee by the urgency tier: ×1, ×1.5, ×2.
func scaleByUrgency(fee *big.Int, urgency domain.Urgency) *big.Int {
	switch urgency {
	case domain.UrgencyFast:
		fee.Mul(fee, big.NewInt(3))
		fee.Div(fee, big.NewInt(2))
	case domain.UrgencyRapid:
		fee.Mul(fee, big.NewInt(2))
	}
	return fee
}

// baseFeeMultiplier returns the base-fee headroom ×10 (so 20 = 2.0×).
func baseFeeMultiplier(urgency domain.Urgency, testnet bool) int64 {
	if testnet {
		return 20
	}
	switch urgency {
	case domain.UrgencyFast:
		return 25
	case domain.UrgencyRapid:
		return 30
	default:
		return 20
	}
}
