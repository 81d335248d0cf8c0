package evm

// quote.go — QuoterV2-based quoting with fee-tier discovery.
//
// The quoter only works forward (input → output). Inverting it for "how
// much ETH buys N tokens" has no closed form, so InputForTargetOutput runs
// a bounded binary search over the input range.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// feeTiers is the fixed probe order. The first tier with liquidity wins;
// there is no cross-tier best-price search.
var feeTiers = []uint32{3000, 500, 10000}

const (
	// DefaultSlippagePct protects the primary venue's output.
	DefaultSlippagePct = 5.0

	// Search interval and iteration bound for quote inversion.
	inversionMinEth    = 0.001
	inversionMaxEth    = 0.1
	inversionIterations = 20
)

// Quote asks the quoter for the expected token output of swapping amountIn
// wei of WETH into token on the given fee tier. Fails transparently when
// the tier has no pool or no liquidity; callers try the next tier.
func (c *Client) Quote(ctx context.Context, token common.Address, amountIn *big.Int, feeTier uint32) (*big.Int, error) {
	venues, ok := c.venues()
	if !ok {
		return nil, fmt.Errorf("evm.Quote: no venue contracts for chain %d", c.network.ChainID)
	}

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           venues.WETH,
		TokenOut:          token,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	callData, err := quoterABI.Pack("quoteExactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("evm.Quote: pack: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &venues.QuoterV2,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("evm.Quote: tier %d: %w", feeTier, err)
	}

	vals, err := quoterABI.Unpack("quoteExactInputSingle", out)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("evm.Quote: unpack tier %d: %w", feeTier, err)
	}
	amountOut, ok := vals[0].(*big.Int)
	if !ok || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("evm.Quote: tier %d returned zero output", feeTier)
	}
	return amountOut, nil
}

// FindBestFeeAndQuote probes the fee tiers in fixed order and returns the
// first one that quotes, with the slippage-adjusted minimum output.
// Fails with domain.ErrNoLiquidity once every tier is exhausted.
func (c *Client) FindBestFeeAndQuote(ctx context.Context, token common.Address, amountIn *big.Int, slippagePct float64) (domain.QuoteResult, error) {
	var lastErr error
	for _, tier := range feeTiers {
		quote, err := c.Quote(ctx, token, amountIn, tier)
		if err != nil {
			lastErr = err
			continue
		}
		return domain.QuoteResult{
			FeeTier:      tier,
			AmountOut:    quote,
			MinAmountOut: applySlippage(quote, slippagePct),
		}, nil
	}
	return domain.QuoteResult{}, fmt.Errorf("evm.FindBestFeeAndQuote: %w (last: %v)", domain.ErrNoLiquidity, lastErr)
}

// InputForTargetOutput binary-searches the smallest WETH input whose quote
// meets targetOut, trying tiers in the fixed probe order and returning the
// first tier where the search converges.
func (c *Client) InputForTargetOutput(ctx context.Context, token common.Address, targetOut *big.Int) (*big.Int, uint32, error) {
	for _, tier := range feeTiers {
		input, err := c.searchInput(ctx, token, targetOut, tier)
		if err != nil {
			slog.Debug("evm: inversion failed on tier", "tier", tier, "err", err)
			continue
		}
		return input, tier, nil
	}
	return nil, 0, fmt.Errorf("evm.InputForTargetOutput: %w", domain.ErrNoLiquidity)
}

// searchInput runs the bounded binary search on one tier. The interval is
// a tunable: it covers the bot's realistic trade sizes, not all of DeFi.
func (c *Client) searchInput(ctx context.Context, token common.Address, targetOut *big.Int, tier uint32) (*big.Int, error) {
	lo := ethToWei(inversionMinEth)
	hi := ethToWei(inversionMaxEth)

	// The upper bound must be able to reach the target at all.
	maxQuote, err := c.Quote(ctx, token, hi, tier)
	if err != nil {
		return nil, err
	}
	if maxQuote.Cmp(targetOut) < 0 {
		return nil, fmt.Errorf("target output unreachable within search interval")
	}

	best := new(big.Int).Set(hi)
	for i := 0; i < inversionIterations; i++ {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)

		quote, err := c.Quote(ctx, token, mid, tier)
		if err != nil {
			return nil, err
		}
		if quote.Cmp(targetOut) >= 0 {
			best.Set(mid)
			hi.Set(mid)
		} else {
			lo.Set(mid)
		}
	}
	return best, nil
}

// applySlippage floors a quote at quote × (100 − pct) / 100.
func applySlippage(quote *big.Int, pct float64) *big.Int {
	// Basis points keep the arithmetic integral.
	bps := int64((100 - pct) * 100)
	if bps < 0 {
		bps = 0
	}
	min := new(big.Int).Mul(quote, big.NewInt(bps))
	return min.Div(min, big.NewInt(10_000))
}
