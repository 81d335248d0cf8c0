package evm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arodriguezf/hypebot/internal/domain"
)

var testToken = common.HexToAddress("0x532f27101965dd16442E59d40670FaF5eBB142E4")

func TestFindBestFeeAndQuote_FirstLiquidTierWins(t *testing.T) {
	backend := newFakeBackend()
	// Tier 500 quotes twice the price of 3000, but 3000 comes first in
	// the probe order and must win regardless.
	backend.tierRates = map[uint32]int64{3000: 1_000, 500: 2_000}
	c := newTestClient(backend, nil)

	quote, err := c.FindBestFeeAndQuote(context.Background(), testToken, ethToWei(0.01), 5)

	require.NoError(t, err)
	assert.Equal(t, uint32(3000), quote.FeeTier)
	assert.Equal(t, []uint32{3000}, backend.quotedTiers)
}

func TestFindBestFeeAndQuote_FallsThroughDryTiers(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{10000: 700} // only the 1% pool exists
	c := newTestClient(backend, nil)

	quote, err := c.FindBestFeeAndQuote(context.Background(), testToken, ethToWei(0.01), 5)

	require.NoError(t, err)
	assert.Equal(t, uint32(10000), quote.FeeTier)
	assert.Equal(t, []uint32{3000, 500, 10000}, backend.quotedTiers)
}

func TestFindBestFeeAndQuote_NoLiquidityAnywhere(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{}
	c := newTestClient(backend, nil)

	_, err := c.FindBestFeeAndQuote(context.Background(), testToken, ethToWei(0.01), 5)

	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.Equal(t, []uint32{3000, 500, 10000}, backend.quotedTiers)
}

func TestFindBestFeeAndQuote_MinOutputRespectsSlippage(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)

	quote, err := c.FindBestFeeAndQuote(context.Background(), testToken, ethToWei(0.01), 5)

	require.NoError(t, err)
	// minOut = quote × 95%
	want := new(big.Int).Mul(quote.AmountOut, big.NewInt(95))
	want.Div(want, big.NewInt(100))
	assert.Equal(t, want, quote.MinAmountOut)
	assert.LessOrEqual(t, quote.MinAmountOut.Cmp(quote.AmountOut), 0)
}

func TestApplySlippage_StrictlyDecreasing(t *testing.T) {
	quote := big.NewInt(1_000_000)

	prev := new(big.Int).Set(quote)
	for _, pct := range []float64{1, 5, 10, 25, 50, 99} {
		min := applySlippage(quote, pct)
		assert.Equal(t, -1, min.Cmp(prev), "slippage %.0f%% must shrink the floor", pct)
		assert.GreaterOrEqual(t, min.Sign(), 0)
		assert.LessOrEqual(t, min.Cmp(quote), 0)
		prev = min
	}
}

func TestInputForTargetOutput_Converges(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{3000: 1_000} // out = in × 1000
	c := newTestClient(backend, nil)

	// Want 0.05 ETH-equivalent of tokens: 0.05e18 × 1000 out needs 0.05 ETH in.
	target := new(big.Int).Mul(ethToWei(0.05), big.NewInt(1_000))
	input, tier, err := c.InputForTargetOutput(context.Background(), testToken, target)

	require.NoError(t, err)
	assert.Equal(t, uint32(3000), tier)

	// The search must land at or just above the exact requirement, and the
	// returned input's quote must actually meet the target.
	exact := ethToWei(0.05)
	assert.GreaterOrEqual(t, input.Cmp(exact), 0)

	quote, err := c.Quote(context.Background(), testToken, input, tier)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, quote.Cmp(target), 0)

	// 20 iterations over [0.001, 0.1] gives sub-1e14-wei resolution.
	slack := new(big.Int).Sub(input, exact)
	assert.Equal(t, -1, slack.Cmp(big.NewInt(200_000_000_000_000)))
}

func TestInputForTargetOutput_UnreachableTarget(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{3000: 1_000}
	c := newTestClient(backend, nil)

	// More output than 0.1 ETH (the search ceiling) can buy.
	target := new(big.Int).Mul(ethToWei(1.0), big.NewInt(1_000))
	_, _, err := c.InputForTargetOutput(context.Background(), testToken, target)

	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
}

func TestInputForTargetOutput_SkipsDryTier(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{500: 1_000} // 3000 dry, 500 liquid
	c := newTestClient(backend, nil)

	target := new(big.Int).Mul(ethToWei(0.02), big.NewInt(1_000))
	_, tier, err := c.InputForTargetOutput(context.Background(), testToken, target)

	require.NoError(t, err)
	assert.Equal(t, uint32(500), tier)
}
