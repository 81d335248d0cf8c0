package ports

import (
	"context"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// TokenResolver maps a ticker symbol to a verified contract address and the
// network it lives on. The sentiment pipeline that produces the symbols is
// an external collaborator; the core only consumes this lookup.
type TokenResolver interface {
	// Resolve returns the token for symbol. found is false when the symbol
	// is unknown — that is not an error.
	Resolve(ctx context.Context, symbol string) (token domain.ResolvedToken, found bool, err error)
}
