package evm

// contracts.go — DEX contract addresses and ABIs.
//
// Primary venue is Uniswap V3 (QuoterV2 for quotes, SwapRouter02 for
// execution, deadline enforced through multicall). Fallback venue is the
// SushiSwap V2 router: single fixed WETH→token route, no tier search.

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// venueAddresses holds the per-chain contract set.
type venueAddresses struct {
	WETH       common.Address
	QuoterV2   common.Address
	SwapRouter common.Address
	V2Router   common.Address // zero when the fallback venue is not deployed
}

// venuesByChain maps EVM chain ID to deployed venue contracts.
var venuesByChain = map[int64]venueAddresses{
	// Base mainnet
	8453: {
		WETH:       common.HexToAddress("0x4200000000000000000000000000000000000006"),
		QuoterV2:   common.HexToAddress("0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"),
		SwapRouter: common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481"),
		V2Router:   common.HexToAddress("0x6BDED42c6DA8FBf0d2bA55B2fa120C5e0c8D7891"),
	},
	// Base Sepolia — no V2 fallback deployed here
	84532: {
		WETH:       common.HexToAddress("0x4200000000000000000000000000000000000006"),
		QuoterV2:   common.HexToAddress("0xC5290058841028F1614F3A6F0F5816cAd0df5E27"),
		SwapRouter: common.HexToAddress("0x94cC0AaC535CCDB3C01d6787D6413C739ae12bc4"),
	},
}

var (
	quoterABI   abi.ABI
	routerABI   abi.ABI
	v2RouterABI abi.ABI
)

func init() {
	var err error

	quoterABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "quoteExactInputSingle",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{
					"name": "params",
					"type": "tuple",
					"components": [
						{"name": "tokenIn", "type": "address"},
						{"name": "tokenOut", "type": "address"},
						{"name": "amountIn", "type": "uint256"},
						{"name": "fee", "type": "uint24"},
						{"name": "sqrtPriceLimitX96", "type": "uint160"}
					]
				}
			],
			"outputs": [
				{"name": "amountOut", "type": "uint256"},
				{"name": "sqrtPriceX96After", "type": "uint160"},
				{"name": "initializedTicksCrossed", "type": "uint32"},
				{"name": "gasEstimate", "type": "uint256"}
			]
		}
	]`))
	if err != nil {
		panic("quoter abi parse: " + err.Error())
	}

	routerABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "exactInputSingle",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [
				{
					"name": "params",
					"type": "tuple",
					"components": [
						{"name": "tokenIn", "type": "address"},
						{"name": "tokenOut", "type": "address"},
						{"name": "fee", "type": "uint24"},
						{"name": "recipient", "type": "address"},
						{"name": "amountIn", "type": "uint256"},
						{"name": "amountOutMinimum", "type": "uint256"},
						{"name": "sqrtPriceLimitX96", "type": "uint160"}
					]
				}
			],
			"outputs": [{"name": "amountOut", "type": "uint256"}]
		},
		{
			"name": "multicall",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [
				{"name": "deadline", "type": "uint256"},
				{"name": "data", "type": "bytes[]"}
			],
			"outputs": [{"name": "results", "type": "bytes[]"}]
		}
	]`))
	if err != nil {
		panic("router abi parse: " + err.Error())
	}

	v2RouterABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "swapExactETHForTokens",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [
				{"name": "amountOutMin", "type": "uint256"},
				{"name": "path", "type": "address[]"},
				{"name": "to", "type": "address"},
				{"name": "deadline", "type": "uint256"}
			],
			"outputs": [{"name": "amounts", "type": "uint256[]"}]
		}
	]`))
	if err != nil {
		panic("v2 router abi parse: " + err.Error())
	}
}

// venues returns the contract set for the client's chain.
func (c *Client) venues() (venueAddresses, bool) {
	v, ok := venuesByChain[c.network.ChainID]
	return v, ok
}
