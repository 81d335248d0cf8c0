package domain

import "math/big"

// GasScheme discriminates between the two mutually exclusive gas pricing
// models. Exactly one set of fee fields is meaningful for a given scheme.
type GasScheme string

const (
	// GasSchemeLegacy prices the transaction with a single flat gas price.
	GasSchemeLegacy GasScheme = "legacy"
	// GasSchemeDynamic prices the transaction with EIP-1559 base + priority fees.
	GasSchemeDynamic GasScheme = "dynamic"
)

// Urgency selects how aggressively fees are bid.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyFast     Urgency = "fast"
	UrgencyRapid    Urgency = "rapid"
)

// GasConfig holds the gas parameters for one transaction attempt.
// Computed fresh per attempt, never persisted.
type GasConfig struct {
	Scheme   GasScheme
	GasLimit uint64

	// Legacy only
	GasPrice *big.Int

	// Dynamic only
	MaxFee      *big.Int
	PriorityFee *big.Int
}

// MaxCostWei returns the worst-case native-currency cost of the transaction.
func (g GasConfig) MaxCostWei() *big.Int {
	limit := new(big.Int).SetUint64(g.GasLimit)
	switch g.Scheme {
	case GasSchemeDynamic:
		return limit.Mul(limit, g.MaxFee)
	default:
		return limit.Mul(limit, g.GasPrice)
	}
}

// QuoteResult is the outcome of probing the venue's quoter.
// Invariant: 0 <= MinAmountOut <= AmountOut.
type QuoteResult struct {
	FeeTier      uint32   // liquidity tier that produced the quote (e.g. 3000 = 0.3%)
	AmountOut    *big.Int // expected token output
	MinAmountOut *big.Int // slippage-adjusted floor
}

// SwapOutcome is the terminal result of a swap executor run.
// TxHash is set iff Success; Reason is set iff !Success.
type SwapOutcome struct {
	Success   bool
	TxHash    string
	Reason    string   // classified failure reason, safe to show users
	AmountIn  float64  // native currency actually spent; may differ from the request when capped
	AmountOut *big.Int // expected output (quote), nil on failure
	Attempts  int
}
