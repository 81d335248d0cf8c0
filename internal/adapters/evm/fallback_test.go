package evm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arodriguezf/hypebot/internal/domain"
)

func TestFallback_Success(t *testing.T) {
	backend := newFakeBackend()
	f := NewFallbackExecutor(newTestClient(backend, nil))

	out, err := f.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.TxHash)
	assert.Equal(t, 1, out.Attempts)
	// No tier search on this path: the quoter is never consulted.
	assert.Equal(t, 0, backend.quoteCalls)
}

func TestFallback_BelowMinimumIssuesZeroNetworkCalls(t *testing.T) {
	backend := newFakeBackend()
	f := NewFallbackExecutor(newTestClient(backend, nil))

	out, err := f.Swap(context.Background(), testToken.Hex(), 0.001, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)
	assert.Contains(t, err.Error(), "0.0015")
	assert.Equal(t, "amount below minimum trade size", out.Reason)
	assert.Equal(t, 0, backend.totalCalls)
}

func TestFallback_RetryBound(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("replacement transaction underpriced")
	rec := &sleepRecorder{}
	f := NewFallbackExecutor(newTestClient(backend, rec))

	out, err := f.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, backend.sendCalls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestFallback_NoVenueOnTestnet(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(backend, nil)
	c.network.ChainID = 84532 // Base Sepolia has no V2 router
	f := NewFallbackExecutor(c)

	out, err := f.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, err.Error(), "no fallback venue")
}

func TestFallback_GasEstimationExhaustionFailsAttempt(t *testing.T) {
	backend := newFakeBackend()
	backend.estimateGasErr = errors.New("execution reverted")
	f := NewFallbackExecutor(newTestClient(backend, nil))

	out, err := f.Swap(context.Background(), testToken.Hex(), 0.05, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGasEstimation)
	assert.Equal(t, "gas estimation failed (swap would likely revert)", out.Reason)
	assert.Equal(t, 0, backend.sendCalls)
}
