package evm

// swap.go — primary venue executor (Uniswap V3 exactInputSingle).
//
// State machine per attempt:
//   Validate → Quote → EstimateGas → Submit → AwaitConfirmation → Classify
// Address validation fails fast; everything else is retried with fresh
// quoting and gas parameters, since market conditions shift between
// attempts.

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

const (
	swapAttempts  = 3
	swapBaseDelay = 2 * time.Second

	// Transaction deadline bounds exposure to stale submissions.
	txDeadline = 10 * time.Minute

	// Outer bound on waiting for the receipt.
	confirmTimeout = 5 * time.Minute

	receiptPollInterval = 3 * time.Second

	// Minimum native headroom that must remain for gas when checking the
	// balance against the requested amount.
	minGasAllowanceEth = 0.0005
)

// swapRequest selects the sizing mode for one swap run: a plain native
// input amount, or a desired token output inverted from the quote.
type swapRequest struct {
	amountEth float64
	targetOut *big.Int // overrides amountEth when non-nil
}

// Swap buys token with amountNative units of ETH on the primary venue.
// The returned outcome is terminal: on failure it carries the last
// attempt's classified reason and the attempt count.
func (c *Client) Swap(ctx context.Context, tokenAddress string, amountNative, slippagePct float64) (domain.SwapOutcome, error) {
	return c.swap(ctx, tokenAddress, swapRequest{amountEth: amountNative}, slippagePct)
}

// SwapForTarget buys whatever input the quote inversion says is needed to
// receive targetOut raw token units, capped at what the balance allows.
func (c *Client) SwapForTarget(ctx context.Context, tokenAddress string, targetOut *big.Int, slippagePct float64) (domain.SwapOutcome, error) {
	return c.swap(ctx, tokenAddress, swapRequest{targetOut: targetOut}, slippagePct)
}

func (c *Client) swap(ctx context.Context, tokenAddress string, req swapRequest, slippagePct float64) (domain.SwapOutcome, error) {
	if !common.IsHexAddress(tokenAddress) {
		return failure(0, domain.ErrInvalidAddress),
			fmt.Errorf("evm.Swap: %w: %q", domain.ErrInvalidAddress, tokenAddress)
	}
	token := common.HexToAddress(tokenAddress)

	venues, ok := c.venues()
	if !ok {
		err := fmt.Errorf("evm.Swap: no venue contracts for chain %d", c.network.ChainID)
		return failure(0, err), err
	}

	var (
		attempts int
		outcome  domain.SwapOutcome
	)
	err := retry.Do(ctx, retry.Policy{
		Attempts:  swapAttempts,
		BaseDelay: swapBaseDelay,
		Sleep:     c.sleep,
		Fatal: func(err error) bool {
			return errors.Is(err, domain.ErrInvalidAddress)
		},
	}, func(attempt int) error {
		attempts = attempt
		out, err := c.swapOnce(ctx, venues, token, req, slippagePct)
		if err != nil {
			slog.Warn("evm: swap attempt failed",
				"attempt", attempt, "token", tokenAddress, "err", err)
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		return failure(attempts, err), fmt.Errorf("evm.Swap: %w", err)
	}

	outcome.Attempts = attempts
	return outcome, nil
}

// swapOnce runs one full attempt of the state machine.
func (c *Client) swapOnce(ctx context.Context, venues venueAddresses, token common.Address, req swapRequest, slippagePct float64) (domain.SwapOutcome, error) {
	// Balance check. Re-done every attempt: the balance can change while
	// we back off.
	balance, err := c.Balance(ctx)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("balance: %w", err)
	}
	if req.targetOut == nil && balance <= req.amountEth+minGasAllowanceEth {
		return domain.SwapOutcome{}, fmt.Errorf("%w: balance %.6f, need %.6f + gas",
			domain.ErrInsufficientFunds, balance, req.amountEth)
	}

	// Balance-safe sizing: partitions off the gas reserve and, in target
	// mode, inverts the quote. The tx value below must be the sized
	// amount: pairing the original amount with gas computed for the sized
	// one would revert or overspend.
	size, err := c.SafeTradeAmount(ctx, token, balance, req.targetOut)
	if err != nil {
		return domain.SwapOutcome{}, err
	}
	actual := size.AmountEth
	if req.targetOut == nil {
		if req.amountEth < size.AmountEth {
			actual = req.amountEth
		} else if req.amountEth > size.AmountEth {
			slog.Warn("evm: requested amount exceeds safe maximum, capping",
				"requested", fmt.Sprintf("%.6f", req.amountEth),
				"actual", fmt.Sprintf("%.6f", size.AmountEth))
		}
	}
	amountWei := ethToWei(actual)

	// Quote with tier discovery. Tier exhaustion surfaces ErrNoLiquidity
	// and consumes this attempt.
	quote, err := c.FindBestFeeAndQuote(ctx, token, amountWei, slippagePct)
	if err != nil {
		return domain.SwapOutcome{}, err
	}

	deadline := big.NewInt(time.Now().Add(txDeadline).Unix())
	callData, err := packExactInputSingle(venues, token, c.address, amountWei, quote, deadline)
	if err != nil {
		return domain.SwapOutcome{}, err
	}

	gasEstimate, err := c.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.address,
		To:    &venues.SwapRouter,
		Value: amountWei,
		Data:  callData,
	})
	if err != nil {
		return domain.SwapOutcome{}, err
	}
	gasCfg := c.GasConfig(ctx, gasEstimate, domain.UrgencyStandard)

	signed, err := c.signAndSend(ctx, venues.SwapRouter, amountWei, gasCfg, callData)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("submit: %w", err)
	}
	txHash := signed.Hash()
	slog.Info("evm: swap submitted",
		"tx", txHash.Hex(), "tier", quote.FeeTier,
		"amount", fmt.Sprintf("%.6f", actual),
		"min_out", quote.MinAmountOut.String())

	receiptCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout())
	defer cancel()
	receipt, err := c.waitForReceipt(receiptCtx, txHash)
	if err != nil {
		return domain.SwapOutcome{}, fmt.Errorf("%w: %s", domain.ErrConfirmationTimeout, txHash.Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.SwapOutcome{}, fmt.Errorf("%w: %s", domain.ErrTransactionReverted, txHash.Hex())
	}

	slog.Info("evm: swap confirmed", "tx", txHash.Hex(), "gas_used", receipt.GasUsed)
	return domain.SwapOutcome{
		Success:   true,
		TxHash:    txHash.Hex(),
		AmountIn:  actual,
		AmountOut: quote.AmountOut,
	}, nil
}

// packExactInputSingle builds the router calldata: exactInputSingle wrapped
// in multicall so the deadline is enforced on-chain by SwapRouter02.
func packExactInputSingle(venues venueAddresses, token, recipient common.Address, amountIn *big.Int, quote domain.QuoteResult, deadline *big.Int) ([]byte, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           venues.WETH,
		TokenOut:          token,
		Fee:               big.NewInt(int64(quote.FeeTier)),
		Recipient:         recipient,
		AmountIn:          amountIn,
		AmountOutMinimum:  quote.MinAmountOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	inner, err := routerABI.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	callData, err := routerABI.Pack("multicall", deadline, [][]byte{inner})
	if err != nil {
		return nil, fmt.Errorf("pack multicall: %w", err)
	}
	return callData, nil
}

// confirmTimeout returns the confirmation window, test-overridable.
func (c *Client) confirmTimeout() time.Duration {
	if c.confirmWait > 0 {
		return c.confirmWait
	}
	return confirmTimeout
}

// waitForReceipt polls until the transaction is mined or ctx expires.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	interval := c.receiptPoll
	if interval == 0 {
		interval = receiptPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := c.backend.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue // not yet mined
			}
			return receipt, nil
		}
	}
}

// failure builds the terminal outcome for an exhausted or fatal error.
func failure(attempts int, err error) domain.SwapOutcome {
	return domain.SwapOutcome{
		Success:  false,
		Reason:   classify(err),
		Attempts: attempts,
	}
}

// classify maps the error chain to a user-facing reason string. Raw RPC
// text stays in the logs, never in notifications.
func classify(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		return "invalid token address"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "balance below gas reserve"
	case errors.Is(err, domain.ErrNoLiquidity):
		return "no liquidity"
	case errors.Is(err, domain.ErrGasEstimation):
		return "gas estimation failed (swap would likely revert)"
	case errors.Is(err, domain.ErrTransactionReverted):
		return "transaction reverted"
	case errors.Is(err, domain.ErrConfirmationTimeout):
		return "confirmation timeout"
	case errors.Is(err, domain.ErrBelowMinimum):
		return "amount below minimum trade size"
	default:
		return "swap failed"
	}
}
