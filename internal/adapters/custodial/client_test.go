package custodial

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, "test-key")
	c.pollInterval = time.Millisecond
	return c
}

func TestCreateTrade_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/trades", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1.5, body["amount"])
		assert.Equal(t, "SOL", body["from"])
		assert.Equal(t, "BONK", body["to"])

		json.NewEncoder(w).Encode(map[string]any{"id": "tr_123", "status": "pending"})
	}))
	defer srv.Close()

	trade, err := newTestClient(srv).CreateTrade(context.Background(), 1.5, "SOL", "BONK")

	require.NoError(t, err)
	assert.Equal(t, "tr_123", trade.ID)
	assert.Equal(t, "pending", trade.Status)
}

func TestCreateTrade_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"amount below minimum"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateTrade(context.Background(), 0.0001, "SOL", "BONK")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateTrade_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "tr_9", "status": "pending"})
	}))
	defer srv.Close()

	trade, err := newTestClient(srv).CreateTrade(context.Background(), 1, "SOL", "WIF")

	require.NoError(t, err)
	assert.Equal(t, "tr_9", trade.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForSettlement_PollsUntilCompleted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/trades/tr_123", r.URL.Path)
		if calls.Add(1) < 3 {
			json.NewEncoder(w).Encode(map[string]any{"id": "tr_123", "status": "pending"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "tr_123", "status": "completed", "tx_hash": "5KtP3k...",
		})
	}))
	defer srv.Close()

	trade, err := newTestClient(srv).WaitForSettlement(context.Background(), "tr_123")

	require.NoError(t, err)
	assert.Equal(t, "completed", trade.Status)
	assert.Equal(t, "5KtP3k...", trade.TxHash)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForSettlement_FailedTradeReturnsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "tr_1", "status": "failed"})
	}))
	defer srv.Close()

	trade, err := newTestClient(srv).WaitForSettlement(context.Background(), "tr_1")

	require.NoError(t, err)
	assert.Equal(t, "failed", trade.Status)
}

func TestBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/SOL", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"asset": "SOL", "balance": 12.75})
	}))
	defer srv.Close()

	balance, err := newTestClient(srv).Balance(context.Background(), "SOL")

	require.NoError(t, err)
	assert.InDelta(t, 12.75, balance, 0.0001)
}
