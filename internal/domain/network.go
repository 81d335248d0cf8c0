package domain

import "strings"

// Family identifies the blockchain ecosystem a network belongs to.
// Each family maps to exactly one execution path: EVM networks go through
// the on-chain DEX executors, Solana goes through the custodial trading API.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
)

// Network describes one supported chain. Loaded from config at startup,
// immutable afterwards.
type Network struct {
	ID            string  // e.g. "base-mainnet"
	Name          string  // display name
	NativeSymbol  string  // "ETH", "SOL"
	Family        Family
	ChainID       int64   // EVM chain ID; 0 for non-EVM families
	RPCURL        string
	ExplorerTxURL string  // template with %s for the tx hash
	Testnet       bool
	Enabled       bool    // per-family admin switch; disabled = skip, not fail
	MinTradeNative  float64 // generic network minimum trade size
	MinLiquidTrade  float64 // DEX liquidity-reliability floor (EVM only, >= MinTradeNative)
}

const defaultExplorerTxURL = "https://basescan.org/tx/%s"

// ExplorerURL builds the block-explorer link for a transaction hash.
func (n Network) ExplorerURL(txHash string) string {
	tmpl := n.ExplorerTxURL
	if tmpl == "" {
		tmpl = defaultExplorerTxURL
	}
	return strings.Replace(tmpl, "%s", txHash, 1)
}
