package ports

import "context"

// CustodialTrade is a trade settled by the custodial API on our behalf.
type CustodialTrade struct {
	ID     string
	Status string // "pending" | "completed" | "failed"
	TxHash string // on-chain hash when the API exposes one
}

// CustodialTrader is the third-party trading API used for the non-EVM
// family. The service signs and settles; we only create and wait.
type CustodialTrader interface {
	// CreateTrade converts amount units of fromAsset into toAsset.
	CreateTrade(ctx context.Context, amount float64, fromAsset, toAsset string) (CustodialTrade, error)

	// WaitForSettlement polls the trade until it completes or fails.
	WaitForSettlement(ctx context.Context, tradeID string) (CustodialTrade, error)

	// Balance returns the available balance of asset in the account.
	Balance(ctx context.Context, asset string) (float64, error)
}
