package ports

import (
	"context"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// PositionStore persists trading positions. The core writes holding,
// failed and skipped records; the hold/sell scheduler (external) later
// moves holding positions to sold.
type PositionStore interface {
	SavePosition(ctx context.Context, p domain.Position) error

	// MarkSold closes a position with the realized sell price and profit.
	MarkSold(ctx context.Context, id string, sellPrice, profit float64) error

	// GetHolding returns all positions currently in holding state.
	GetHolding(ctx context.Context) ([]domain.Position, error)

	// GetPositions returns positions filtered by status; empty status
	// returns everything.
	GetPositions(ctx context.Context, status domain.PositionStatus) ([]domain.Position, error)

	Close() error
}
