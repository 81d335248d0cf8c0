package domain

import "time"

// PositionStatus is the lifecycle of a trading position.
// The core only ever writes Holding or Failed; the hold/sell scheduler
// moves positions to Sold when the hold window elapses.
type PositionStatus string

const (
	StatusHolding PositionStatus = "holding"
	StatusSold    PositionStatus = "sold"
	StatusFailed  PositionStatus = "failed"
	// StatusSkipped is recorded when trading was administratively disabled
	// or the balance was below the network minimum. Not an error.
	StatusSkipped PositionStatus = "skipped"
)

// Position is one executed (or attempted) trade.
type Position struct {
	ID           string // UUID
	Symbol       string
	TokenAddress string
	NetworkID    string
	AmountNative float64 // native currency committed
	BuyPrice     float64 // native per token at purchase, 0 if unknown
	BuyTxHash    string
	BoughtAt     time.Time
	SoldAt       *time.Time
	SellPrice    float64
	Profit       float64
	PostText     string // audit trail: the post that triggered the trade
	Handle       string
	Status       PositionStatus
	FailReason   string // classified reason when Status is failed/skipped
}

// HoldDuration returns how long the position has been (or was) held.
func (p Position) HoldDuration() time.Duration {
	if p.SoldAt != nil {
		return p.SoldAt.Sub(p.BoughtAt)
	}
	if p.Status != StatusHolding {
		return 0
	}
	return time.Since(p.BoughtAt)
}
