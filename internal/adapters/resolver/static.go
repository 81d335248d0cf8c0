package resolver

import (
	"context"
	"strings"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// Static is a config-backed token registry. Lookups are case-insensitive
// on the ticker symbol. Entries with Valid=false are treated as unknown:
// the curator listed them but has not verified the contract address yet.
type Static struct {
	tokens map[string]domain.ResolvedToken
}

// NewStatic builds the registry from the configured token list.
func NewStatic(tokens []domain.ResolvedToken) *Static {
	m := make(map[string]domain.ResolvedToken, len(tokens))
	for _, t := range tokens {
		m[strings.ToUpper(t.Symbol)] = t
	}
	return &Static{tokens: m}
}

// Resolve implements ports.TokenResolver.
func (s *Static) Resolve(_ context.Context, symbol string) (domain.ResolvedToken, bool, error) {
	t, ok := s.tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok || !t.Valid {
		return domain.ResolvedToken{}, false, nil
	}
	return t, true, nil
}

// Len returns how many symbols are registered, verified or not.
func (s *Static) Len() int {
	return len(s.tokens)
}
