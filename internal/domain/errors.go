package domain

import "errors"

// Error taxonomy for the trade pipeline. Callers classify with errors.Is;
// the wrapped chain keeps the underlying RPC detail for logs while the
// orchestrator only surfaces the sentinel's message to users.
var (
	// ErrInvalidAddress — malformed token contract address. Never retried.
	ErrInvalidAddress = errors.New("invalid token address")

	// ErrInsufficientBalance — available balance does not cover the gas
	// reserve, no trade amount can be computed.
	ErrInsufficientBalance = errors.New("balance below gas reserve")

	// ErrInsufficientFunds — balance does not cover the requested swap
	// amount plus gas allowance at submit time.
	ErrInsufficientFunds = errors.New("insufficient funds for swap")

	// ErrNoLiquidity — every configured fee tier failed to quote.
	ErrNoLiquidity = errors.New("no liquidity on any fee tier")

	// ErrGasEstimation — gas estimation kept failing after retries,
	// usually meaning the swap would revert.
	ErrGasEstimation = errors.New("gas estimation failed")

	// ErrTransactionReverted — the swap was mined but reverted on-chain.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout — the transaction was submitted but no
	// receipt appeared within the confirmation window.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrBelowMinimum — requested amount is under the venue's minimum
	// trade size. Never retried.
	ErrBelowMinimum = errors.New("amount below minimum trade size")

	// ErrNetworkDisabled — trading on the target family is switched off
	// in config. Recorded as skipped, not failed.
	ErrNetworkDisabled = errors.New("network trading disabled")
)
