package domain

// TradeRequest is the immutable input to the trade orchestrator: a token
// symbol extracted from a social post, plus the post itself for audit.
type TradeRequest struct {
	Symbol   string // token ticker, e.g. "PEPE"
	PostText string // original post text that triggered the trade
	Handle   string // account handle the post came from
	PostID   string // originating post identifier

	// TargetTokens, when positive, asks for enough input to receive this
	// many whole tokens instead of sizing from the balance percentage.
	TargetTokens float64
}

// ResolvedToken is the output of the external token resolver.
// The core never mutates it.
type ResolvedToken struct {
	Symbol     string
	Name       string
	Address    string // contract address on NetworkID
	Decimals   int
	NetworkID  string
	Valid      bool
	Confidence int // 0-100, resolver's confidence in the address match
}
