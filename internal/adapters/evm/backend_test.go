package evm

// backend_test.go — programmable fake chain backend.
//
// Quotes are served from a per-tier rate table (tokens out per wei in),
// so the tier-order and binary-search tests can model liquidity precisely.

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arodriguezf/hypebot/internal/domain"
)

type fakeBackend struct {
	balanceWei *big.Int
	baseFee    *big.Int // nil simulates a pre-1559 chain
	gasPrice   *big.Int

	// tierRates maps fee tier → token units out per wei in. Tiers absent
	// from the map quote-revert (no liquidity).
	tierRates map[uint32]int64

	estimateGasResult uint64
	estimateGasErr    error
	sendErr           error
	receiptStatus     uint64
	receiptErr        error
	headerErr         error

	// call counters
	quoteCalls    int
	quotedTiers   []uint32
	estimateCalls int
	sendCalls     int
	balanceCalls  int
	totalCalls    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balanceWei:        ethToWei(1.0),
		baseFee:           big.NewInt(50_000_000),
		gasPrice:          big.NewInt(1_000_000_000),
		tierRates:         map[uint32]int64{3000: 1_000, 500: 2_000, 10000: 500},
		estimateGasResult: 210_000,
		receiptStatus:     types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	f.totalCalls++
	f.balanceCalls++
	return new(big.Int).Set(f.balanceWei), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.totalCalls++
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	h := &types.Header{Number: big.NewInt(100)}
	if f.baseFee != nil {
		h.BaseFee = new(big.Int).Set(f.baseFee)
	}
	return h, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.totalCalls++
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	f.totalCalls++
	f.estimateCalls++
	if f.estimateGasErr != nil {
		return 0, f.estimateGasErr
	}
	return f.estimateGasResult, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.totalCalls++
	f.quoteCalls++

	// The params tuple is head-only: five 32-byte words after the
	// selector — tokenIn, tokenOut, amountIn, fee, sqrtPriceLimitX96.
	if len(msg.Data) < 4+5*32 {
		return nil, fmt.Errorf("fake: short quote calldata: %d bytes", len(msg.Data))
	}
	amountIn := new(big.Int).SetBytes(msg.Data[4+2*32 : 4+3*32])
	tier := uint32(new(big.Int).SetBytes(msg.Data[4+3*32 : 4+4*32]).Int64())
	f.quotedTiers = append(f.quotedTiers, tier)

	rate, ok := f.tierRates[tier]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	amountOut := new(big.Int).Mul(amountIn, big.NewInt(rate))
	return quoterABI.Methods["quoteExactInputSingle"].Outputs.Pack(amountOut, big.NewInt(0), uint32(0), big.NewInt(0))
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.totalCalls++
	return 7, nil
}

func (f *fakeBackend) SendTransaction(context.Context, *types.Transaction) error {
	f.totalCalls++
	f.sendCalls++
	return f.sendErr
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.totalCalls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return &types.Receipt{Status: f.receiptStatus, TxHash: txHash, GasUsed: 180_000}, nil
}

// sleepRecorder captures backoff delays instead of sleeping.
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

var testKey, _ = crypto.HexToECDSA("aadc2a41dcf1e4ffc813f54dd0b5fb1813117dfa7bc3bdc0d24804a9e8cb60f3")

func testNetwork() domain.Network {
	return domain.Network{
		ID:           "base-mainnet",
		Name:         "Base",
		NativeSymbol: "ETH",
		Family:       domain.FamilyEVM,
		ChainID:      8453,
		Testnet:      false,
	}
}

func newTestClient(b backend, rec *sleepRecorder) *Client {
	c := newClientWithBackend(b, testKey, testNetwork())
	c.receiptPoll = time.Millisecond
	if rec != nil {
		c.sleep = rec.sleep
	} else {
		c.sleep = func(context.Context, time.Duration) error { return nil }
	}
	return c
}
