package ports

import (
	"context"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// TradeEvent is a structured notification emitted by the orchestrator.
// Fire-and-forget: the core never waits on acknowledgment.
type TradeEvent struct {
	Kind        string // "initiated" | "succeeded" | "failed" | "skipped"
	Symbol      string
	NetworkID   string
	Amount      float64
	TxHash      string
	ExplorerURL string
	Reason      string // failure/skip reason
	Handle      string // account that triggered the trade
}

// Notifier presents trade events and position snapshots to the user.
type Notifier interface {
	NotifyTrade(ctx context.Context, ev TradeEvent) error

	// NotifyPositions renders the current portfolio.
	NotifyPositions(ctx context.Context, positions []domain.Position) error
}
