package evm

// fallback.go — last-resort venue (SushiSwap V2 router).
//
// Deliberately weaker guarantees than the primary path: one fixed
// WETH→token route, no tier search, and a zero minimum output. Accepting
// any price is the recorded policy for this path — it only runs after the
// primary venue has already failed three times, so the alternative is no
// exit at all. A warning is logged on every fallback swap so operators can
// see what protection was waived.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arodriguezf/hypebot/internal/domain"
	"github.com/arodriguezf/hypebot/internal/retry"
)

// FallbackMinTradeEth rejects dust trades the V2 pools reliably fail on
// (~$5 equivalent at assumed price).
const FallbackMinTradeEth = 0.0015

// FallbackExecutor wraps a Client with the simplified V2 swap path.
// Separate type so the orchestrator depends on two ports.SwapExecutor
// values, not on venue-specific methods.
type FallbackExecutor struct {
	client *Client
}

// NewFallbackExecutor returns the fallback venue executor for the client's
// network.
func NewFallbackExecutor(client *Client) *FallbackExecutor {
	return &FallbackExecutor{client: client}
}

// Swap buys token via swapExactETHForTokens. slippagePct is ignored: the
// minimum output on this path is fixed at zero. Amounts below
// FallbackMinTradeEth fail immediately without any network call.
func (f *FallbackExecutor) Swap(ctx context.Context, tokenAddress string, amountNative, _ float64) (domain.SwapOutcome, error) {
	c := f.client

	if !common.IsHexAddress(tokenAddress) {
		return failure(0, domain.ErrInvalidAddress),
			fmt.Errorf("evm.Fallback: %w: %q", domain.ErrInvalidAddress, tokenAddress)
	}
	if amountNative < FallbackMinTradeEth {
		err := fmt.Errorf("evm.Fallback: %w: %.6f < %.4f ETH",
			domain.ErrBelowMinimum, amountNative, FallbackMinTradeEth)
		return failure(0, domain.ErrBelowMinimum), err
	}

	venues, ok := c.venues()
	if !ok || venues.V2Router == (common.Address{}) {
		err := fmt.Errorf("evm.Fallback: no fallback venue on chain %d", c.network.ChainID)
		return failure(0, err), err
	}
	token := common.HexToAddress(tokenAddress)

	slog.Warn("evm: fallback venue engaged, swapping without slippage protection",
		"token", tokenAddress, "amount", fmt.Sprintf("%.6f", amountNative))

	var (
		attempts int
		outcome  domain.SwapOutcome
	)
	err := retry.Do(ctx, retry.Policy{
		Attempts:  swapAttempts,
		BaseDelay: swapBaseDelay,
		Sleep:     c.sleep,
		Fatal: func(err error) bool {
			return errors.Is(err, domain.ErrInvalidAddress) || errors.Is(err, domain.ErrBelowMinimum)
		},
	}, func(attempt int) error {
		attempts = attempt
		out, err := f.swapOnce(ctx, venues, token, amountNative)
		if err != nil {
			slog.Warn("evm: fallback attempt failed", "attempt", attempt, "err", err)
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		return failure(attempts, err), fmt.Errorf("evm.Fallback: %w", err)
	}

	outcome.Attempts = attempts
	return outcome, nil
}

func (f *FallbackExecutor) swapOnce(ctx context.Context, venues venueAddresses, token common.Address, amountNative float64) (domain.SwapOutcome, error) {
	c := f.client
	amountWei := ethToWei(amountNative)

	balance, err := c.Balance(ctx)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("balance: %w", err)
	}
	if balance <= amountNative+minGasAllowanceEth {
		return domain.SwapOutcome{}, fmt.Errorf("%w: balance %.6f", domain.ErrInsufficientFunds, balance)
	}

	deadline := big.NewInt(time.Now().Add(txDeadline).Unix())
	callData, err := v2RouterABI.Pack("swapExactETHForTokens",
		big.NewInt(0), // amountOutMin: none, last-resort path
		[]common.Address{venues.WETH, token},
		c.address,
		deadline,
	)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("pack: %w", err)
	}

	gasEstimate, err := c.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.address,
		To:    &venues.V2Router,
		Value: amountWei,
		Data:  callData,
	})
	if err != nil {
		return domain.SwapOutcome{}, err
	}
	gasCfg := c.GasConfig(ctx, gasEstimate, domain.UrgencyStandard)

	signed, err := c.signAndSend(ctx, venues.V2Router, amountWei, gasCfg, callData)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("submit: %w", err)
	}
	txHash := signed.Hash()
	slog.Info("evm: fallback swap submitted", "tx", txHash.Hex())

	receiptCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout())
	defer cancel()
	receipt, err := c.waitForReceipt(receiptCtx, txHash)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("%w: %s", domain.ErrConfirmationTimeout, txHash.Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.SwapOutcome{}, fmt.Errorf("%w: %s", domain.ErrTransactionReverted, txHash.Hex())
	}

	slog.Info("evm: fallback swap confirmed", "tx", txHash.Hex())
	return domain.SwapOutcome{Success: true, TxHash: txHash.Hex(), AmountIn: amountNative}, nil
}
