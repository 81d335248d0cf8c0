package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arodriguezf/hypebot/internal/domain"
)

func TestSwap_Success(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.TxHash)
	assert.Equal(t, 1, out.Attempts)
	require.NotNil(t, out.AmountOut)
	assert.Equal(t, 1, out.AmountOut.Sign())
	assert.InDelta(t, 0.05, out.AmountIn, 1e-9)
	assert.Equal(t, 1, backend.sendCalls)
}

func TestSwap_InvalidAddressFailsFast(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)

	out, err := c.Swap(context.Background(), "not-an-address", 0.05, 5)

	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.False(t, out.Success)
	assert.Equal(t, "invalid token address", out.Reason)
	// Fail-fast: nothing was asked of the node.
	assert.Equal(t, 0, backend.totalCalls)
}

func TestSwap_RetryBoundOnFailingSubmit(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("nonce too low")
	rec := &sleepRecorder{}
	c := newTestClient(backend, rec)

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.False(t, out.Success)
	// Exactly 3 submits, with 2s and 4s pauses between attempts.
	assert.Equal(t, 3, backend.sendCalls)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestSwap_RevertClassified(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptStatus = types.ReceiptStatusFailed
	c := newTestClient(backend, nil)

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionReverted)
	assert.False(t, out.Success)
	assert.Equal(t, "transaction reverted", out.Reason)
	// A revert is retried: conditions may change between attempts.
	assert.Equal(t, 3, out.Attempts)
}

func TestSwap_InsufficientFunds(t *testing.T) {
	backend := newFakeBackend()
	backend.balanceWei = ethToWei(0.01)
	c := newTestClient(backend, nil)

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "insufficient funds", out.Reason)
	assert.Equal(t, 0, backend.sendCalls)
}

func TestSwap_NoLiquidityConsumesAttempts(t *testing.T) {
	backend := newFakeBackend()
	backend.tierRates = map[uint32]int64{}
	c := newTestClient(backend, nil)

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.Equal(t, "no liquidity", out.Reason)
	// The full tier sweep happens inside each attempt: 3 tiers × 3 attempts.
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, backend.quotedTiers, 9)
	assert.Equal(t, 0, backend.sendCalls)
}

func TestSwap_CapsValueAtSafeAmount(t *testing.T) {
	backend := newFakeBackend()
	backend.balanceWei = ethToWei(0.06)
	backend.baseFee = big.NewInt(5_000_000_000) // 5 gwei, fat gas reserve
	c := newTestClient(backend, nil)

	// Requested 0.058 with balance 0.06: passes the funds check but must
	// be capped so value + gas reserve fits the balance. Reserve here:
	// 360k gas × (5 gwei × 2 + 1 gwei) + 0.0002 safety = 0.00416 ETH.
	out, err := c.Swap(context.Background(), testToken.Hex(), 0.058, 5)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.InDelta(t, 0.06-0.00416, out.AmountIn, 1e-6)
	assert.Less(t, out.AmountIn, 0.058)
}

func TestSwapForTarget_SizesInputByInversion(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)

	// Tier 3000 quotes 1000 token units per wei, so the output of exactly
	// 0.02 ETH is an attainable goal for the search.
	target := new(big.Int).Mul(ethToWei(0.02), big.NewInt(1_000))
	out, err := c.SwapForTarget(context.Background(), testToken.Hex(), target, 5)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, backend.sendCalls)
	assert.InDelta(t, 0.02, out.AmountIn, 0.001)
	require.NotNil(t, out.AmountOut)
	assert.GreaterOrEqual(t, out.AmountOut.Cmp(target), 0)
}

func TestSwapForTarget_CappedAtBalance(t *testing.T) {
	backend := newFakeBackend()
	backend.balanceWei = ethToWei(0.015)
	c := newTestClient(backend, nil)

	// The target needs ~0.05 ETH but the balance only allows ~0.0144
	// after the gas reserve: best effort, capped, still a success.
	target := new(big.Int).Mul(ethToWei(0.05), big.NewInt(1_000))
	out, err := c.SwapForTarget(context.Background(), testToken.Hex(), target, 5)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Less(t, out.AmountIn, 0.015)
	assert.Greater(t, out.AmountIn, 0.01)
}

func TestSwapForTarget_UnreachableTargetFails(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)

	// Beyond what any tier can produce at the top of the search range.
	target := new(big.Int).Mul(ethToWei(0.2), big.NewInt(2_000))
	out, err := c.SwapForTarget(context.Background(), testToken.Hex(), target, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.False(t, out.Success)
	assert.Equal(t, 0, backend.sendCalls)
}

func TestSwap_ConfirmationTimeout(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptErr = errors.New("not found")
	c := newTestClient(backend, nil)
	c.confirmWait = 20 * time.Millisecond

	out, err := c.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfirmationTimeout)
	assert.Equal(t, "confirmation timeout", out.Reason)
	assert.Equal(t, 3, out.Attempts)
}
