package ports

import (
	"context"
	"math/big"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// SwapExecutor drives an on-chain swap of native currency for a token.
// Implementations retry internally; the returned outcome is terminal.
type SwapExecutor interface {
	// Swap buys tokenAddress with amountNative units of native currency,
	// protecting the output with slippagePct (0-100).
	Swap(ctx context.Context, tokenAddress string, amountNative, slippagePct float64) (domain.SwapOutcome, error)
}

// TargetSwapExecutor sizes the input by inverting the venue quote so the
// swap yields a desired token quantity. Only venues with a quoting
// facility can offer it, so it is a separate capability from SwapExecutor.
type TargetSwapExecutor interface {
	// SwapForTarget buys enough tokenAddress to receive targetOut raw
	// token units, capped at what the wallet balance safely allows.
	SwapForTarget(ctx context.Context, tokenAddress string, targetOut *big.Int, slippagePct float64) (domain.SwapOutcome, error)
}

// BalanceReader exposes the wallet's spendable native balance.
type BalanceReader interface {
	// Balance returns the native-currency balance in whole units (not wei).
	Balance(ctx context.Context) (float64, error)

	// Address returns the wallet address as a printable string.
	Address() string
}
