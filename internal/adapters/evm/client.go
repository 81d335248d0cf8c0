package evm

// client.go — wallet-scoped connection to an EVM chain.
//
// The node surface is the narrow backend interface below so tests can fake
// the chain; production wraps *ethclient.Client. The client is constructed
// explicitly and passed down the call graph — no package-level singleton.

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// backend is the subset of the JSON-RPC surface the executors need.
// *ethclient.Client satisfies it.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client bundles the wallet key, the RPC connection and the network
// descriptor for one EVM chain.
type Client struct {
	backend backend
	privKey *ecdsa.PrivateKey
	address common.Address
	network domain.Network

	// Serializes nonce-fetch → submit. Concurrent trades from the same
	// wallet would otherwise race for the same pending nonce.
	submitMu sync.Mutex

	// sleep is injected by tests to make retry backoff instantaneous.
	// nil means the retry package's default ctx-aware wait.
	sleep func(ctx context.Context, d time.Duration) error

	// receiptPoll and confirmWait override the receipt polling interval
	// and confirmation timeout in tests.
	receiptPoll time.Duration
	confirmWait time.Duration
}

// NewClient dials the network's RPC endpoint. privateKeyHex may carry an
// optional 0x prefix.
func NewClient(network domain.Network, privateKeyHex string) (*Client, error) {
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("evm.NewClient: invalid private key: %w", err)
	}

	ec, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm.NewClient: dial rpc %s: %w", network.RPCURL, err)
	}

	return &Client{
		backend: ec,
		privKey: privKey,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
		network: network,
	}, nil
}

// newClientWithBackend is the test constructor.
func newClientWithBackend(b backend, privKey *ecdsa.PrivateKey, network domain.Network) *Client {
	return &Client{
		backend: b,
		privKey: privKey,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
		network: network,
	}
}

// Address returns the wallet address as a checksummed hex string.
func (c *Client) Address() string {
	return c.address.Hex()
}

// Network returns the immutable network descriptor this client is bound to.
func (c *Client) Network() domain.Network {
	return c.network
}

// Balance returns the wallet's native balance in whole units (ETH, not wei).
func (c *Client) Balance(ctx context.Context) (float64, error) {
	wei, err := c.backend.BalanceAt(ctx, c.address, nil)
	if err != nil {
		return 0, fmt.Errorf("evm.Balance: %w", err)
	}
	return weiToEth(wei), nil
}

// signAndSend fetches the pending nonce, signs tx parameters into a final
// transaction and submits it. Serialized per client (see submitMu).
func (c *Client) signAndSend(ctx context.Context, to common.Address, value *big.Int, gas domain.GasConfig, data []byte) (*types.Transaction, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	chainID := big.NewInt(c.network.ChainID)
	var tx *types.Transaction
	switch gas.Scheme {
	case domain.GasSchemeDynamic:
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			Gas:       gas.GasLimit,
			GasTipCap: new(big.Int).Set(gas.PriorityFee),
			GasFeeCap: new(big.Int).Set(gas.MaxFee),
			To:        &to,
			Value:     new(big.Int).Set(value),
			Data:      data,
		})
	default:
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			Gas:      gas.GasLimit,
			GasPrice: new(big.Int).Set(gas.GasPrice),
			To:       &to,
			Value:    new(big.Int).Set(value),
			Data:     data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.privKey)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	return signed, nil
}

// weiToEth converts wei to whole native units with float precision.
func weiToEth(wei *big.Int) float64 {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	out, _ := f.Float64()
	return out
}

// ethToWei converts whole native units to wei, truncating sub-wei dust.
func ethToWei(eth float64) *big.Int {
	f := new(big.Float).SetFloat64(eth)
	f.Mul(f, big.NewFloat(1e18))
	wei, _ := f.Int(nil)
	return wei
}
