package trader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/arodriguezf/hypebot/internal/domain"
	"github.com/arodriguezf/hypebot/internal/ports"
)

// balancePct is the fraction of the wallet balance committed per trade.
const balancePct = 0.10

// EVMVenue bundles the executors bound to one EVM network. Fallback may be
// nil when the network has no secondary router deployed.
type EVMVenue struct {
	Primary  ports.SwapExecutor
	Fallback ports.SwapExecutor
	Balance  ports.BalanceReader
}

// Trader routes trade requests to the right execution path per chain
// family: EVM networks go through the on-chain DEX executors, the Solana
// family goes through the custodial trading API.
type Trader struct {
	resolver  ports.TokenResolver
	custodial ports.CustodialTrader
	store     ports.PositionStore
	notifier  ports.Notifier
	networks  map[string]domain.Network
	venues    map[string]EVMVenue
	slippage  float64
	log       *slog.Logger
}

// New builds the orchestrator. networks is the full configured set; EVM
// venues are attached afterwards with RegisterVenue.
func New(
	resolver ports.TokenResolver,
	custodial ports.CustodialTrader,
	store ports.PositionStore,
	notifier ports.Notifier,
	networks []domain.Network,
	slippagePct float64,
	log *slog.Logger,
) *Trader {
	nets := make(map[string]domain.Network, len(networks))
	for _, n := range networks {
		nets[n.ID] = n
	}
	return &Trader{
		resolver:  resolver,
		custodial: custodial,
		store:     store,
		notifier:  notifier,
		networks:  nets,
		venues:    make(map[string]EVMVenue),
		slippage:  slippagePct,
		log:       log,
	}
}

// RegisterVenue attaches the swap executors for one EVM network.
func (t *Trader) RegisterVenue(networkID string, v EVMVenue) {
	t.venues[networkID] = v
}

// Execute runs one trade request end to end and records the outcome.
// Skips (disabled family, balance below minimum, unknown symbol) return a
// skipped position and a nil error; execution failures return the failed
// position together with the error.
func (t *Trader) Execute(ctx context.Context, req domain.TradeRequest) (domain.Position, error) {
	token, found, err := t.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trader.Execute: resolve %s: %w", req.Symbol, err)
	}
	if !found {
		t.log.Info("symbol not resolved, skipping", "symbol", req.Symbol, "handle", req.Handle)
		return t.recordSkip(ctx, req, domain.ResolvedToken{Symbol: req.Symbol}, "", "token not resolved"), nil
	}

	network, ok := t.networks[token.NetworkID]
	if !ok {
		// Keep the resolver's network id on the record even though it is
		// unconfigured: the audit trail must say where the token lives.
		p := t.recordFail(ctx, req, token, domain.Network{ID: token.NetworkID}, 0,
			"unknown network "+token.NetworkID)
		return p, fmt.Errorf("trader.Execute: network %q not configured", token.NetworkID)
	}

	if !network.Enabled {
		t.log.Info("trading disabled for network, skipping",
			"network", network.ID, "symbol", token.Symbol)
		return t.recordSkip(ctx, req, token, network.ID, domain.ErrNetworkDisabled.Error()), nil
	}

	switch network.Family {
	case domain.FamilyEVM:
		return t.executeEVM(ctx, req, token, network)
	case domain.FamilySolana:
		return t.executeCustodial(ctx, req, token, network)
	default:
		p := t.recordFail(ctx, req, token, network, 0, "unsupported chain family "+string(network.Family))
		return p, fmt.Errorf("trader.Execute: unsupported family %q", network.Family)
	}
}

// Positions returns the current portfolio and pushes it to the notifier.
func (t *Trader) Positions(ctx context.Context) ([]domain.Position, error) {
	positions, err := t.store.GetPositions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("trader.Positions: %w", err)
	}
	t.notifier.NotifyPositions(ctx, positions)
	return positions, nil
}

func (t *Trader) executeEVM(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, network domain.Network) (domain.Position, error) {
	venue, ok := t.venues[network.ID]
	if !ok {
		p := t.recordFail(ctx, req, token, network, 0, "no venue configured for "+network.ID)
		return p, fmt.Errorf("trader.executeEVM: no venue for %q", network.ID)
	}

	balance, err := venue.Balance.Balance(ctx)
	if err != nil {
		p := t.recordFail(ctx, req, token, network, 0, "balance check failed")
		return p, fmt.Errorf("trader.executeEVM: balance: %w", err)
	}

	amount, skip := tradeSize(balance, network)
	if skip != "" {
		t.log.Info("skipping trade", "symbol", token.Symbol, "network", network.ID,
			"balance", balance, "reason", skip)
		return t.recordSkip(ctx, req, token, network.ID, skip), nil
	}

	t.notify(ctx, ports.TradeEvent{
		Kind: "initiated", Symbol: token.Symbol, NetworkID: network.ID,
		Amount: amount, Handle: req.Handle,
	})

	if req.TargetTokens > 0 {
		return t.executeEVMTarget(ctx, req, token, network, venue, amount)
	}

	outcome, primaryErr := venue.Primary.Swap(ctx, token.Address, amount, t.slippage)
	if outcome.Success {
		return t.recordSuccess(ctx, req, token, network, amount, outcome), nil
	}

	primaryReason := outcome.Reason
	if primaryReason == "" && primaryErr != nil {
		primaryReason = primaryErr.Error()
	}

	if venue.Fallback == nil {
		p := t.recordFail(ctx, req, token, network, amount, primaryReason)
		return p, fmt.Errorf("trader.executeEVM: primary venue: %s", primaryReason)
	}

	t.log.Warn("primary venue failed, escalating to fallback",
		"symbol", token.Symbol, "network", network.ID, "reason", primaryReason)

	outcome, fallbackErr := venue.Fallback.Swap(ctx, token.Address, amount, t.slippage)
	if outcome.Success {
		return t.recordSuccess(ctx, req, token, network, amount, outcome), nil
	}

	fallbackReason := outcome.Reason
	if fallbackReason == "" && fallbackErr != nil {
		fallbackReason = fallbackErr.Error()
	}

	// Keep both venues' diagnoses: failing the same way points at the
	// token's liquidity, diverging reasons point at the primary venue.
	combined := fmt.Sprintf("primary: %s; fallback: %s", primaryReason, fallbackReason)
	p := t.recordFail(ctx, req, token, network, amount, combined)
	return p, fmt.Errorf("trader.executeEVM: both venues failed: %s", combined)
}

// executeEVMTarget sizes the input by quote inversion instead of the
// balance percentage. No fallback escalation here: the secondary venue has
// no quoting facility, so it cannot honor an output target.
func (t *Trader) executeEVMTarget(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, network domain.Network, venue EVMVenue, sizedAmount float64) (domain.Position, error) {
	target, ok := venue.Primary.(ports.TargetSwapExecutor)
	if !ok {
		reason := "venue cannot size by target output"
		p := t.recordFail(ctx, req, token, network, sizedAmount, reason)
		return p, fmt.Errorf("trader.executeEVMTarget: %s on %s", reason, network.ID)
	}

	targetOut := rawTokenUnits(req.TargetTokens, token.Decimals)
	outcome, err := target.SwapForTarget(ctx, token.Address, targetOut, t.slippage)
	if outcome.Success {
		return t.recordSuccess(ctx, req, token, network, outcome.AmountIn, outcome), nil
	}

	reason := outcome.Reason
	if reason == "" && err != nil {
		reason = err.Error()
	}
	p := t.recordFail(ctx, req, token, network, sizedAmount, reason)
	return p, fmt.Errorf("trader.executeEVMTarget: primary venue: %s", reason)
}

func (t *Trader) executeCustodial(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, network domain.Network) (domain.Position, error) {
	balance, err := t.custodial.Balance(ctx, network.NativeSymbol)
	if err != nil {
		p := t.recordFail(ctx, req, token, network, 0, "balance check failed")
		return p, fmt.Errorf("trader.executeCustodial: balance: %w", err)
	}

	amount, skip := tradeSize(balance, network)
	if skip != "" {
		t.log.Info("skipping trade", "symbol", token.Symbol, "network", network.ID,
			"balance", balance, "reason", skip)
		return t.recordSkip(ctx, req, token, network.ID, skip), nil
	}

	t.notify(ctx, ports.TradeEvent{
		Kind: "initiated", Symbol: token.Symbol, NetworkID: network.ID,
		Amount: amount, Handle: req.Handle,
	})

	trade, err := t.custodial.CreateTrade(ctx, amount, network.NativeSymbol, token.Symbol)
	if err != nil {
		p := t.recordFail(ctx, req, token, network, amount, "custodial trade rejected")
		return p, fmt.Errorf("trader.executeCustodial: create: %w", err)
	}

	settled, err := t.custodial.WaitForSettlement(ctx, trade.ID)
	if err != nil {
		p := t.recordFail(ctx, req, token, network, amount, "custodial settlement wait failed")
		return p, fmt.Errorf("trader.executeCustodial: settle %s: %w", trade.ID, err)
	}
	if settled.Status != "completed" {
		reason := "custodial trade " + settled.Status
		p := t.recordFail(ctx, req, token, network, amount, reason)
		return p, fmt.Errorf("trader.executeCustodial: trade %s: %s", trade.ID, reason)
	}

	outcome := domain.SwapOutcome{Success: true, TxHash: settled.TxHash, Attempts: 1}
	return t.recordSuccess(ctx, req, token, network, amount, outcome), nil
}

// tradeSize applies the percentage-of-balance rule bounded by the network
// minimums. A non-empty skip reason means the trade must not run.
func tradeSize(balance float64, network domain.Network) (amount float64, skip string) {
	if balance < network.MinTradeNative {
		return 0, fmt.Sprintf("insufficient balance: %.6f %s < minimum %.6f",
			balance, network.NativeSymbol, network.MinTradeNative)
	}
	amount = math.Max(balance*balancePct, network.MinTradeNative)
	if network.Family == domain.FamilyEVM {
		amount = math.Max(amount, network.MinLiquidTrade)
	}
	return amount, ""
}

func (t *Trader) recordSuccess(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, network domain.Network, amount float64, outcome domain.SwapOutcome) domain.Position {
	// The executor reports what it actually spent, which can be less than
	// requested when capped at the balance-safe maximum.
	if outcome.AmountIn > 0 {
		amount = outcome.AmountIn
	}
	p := newPosition(req, token, network.ID, amount)
	p.Status = domain.StatusHolding
	p.BuyTxHash = outcome.TxHash
	p.BuyPrice = estimatePrice(amount, outcome.AmountOut, token.Decimals)

	t.save(ctx, p)
	t.notify(ctx, ports.TradeEvent{
		Kind: "succeeded", Symbol: token.Symbol, NetworkID: network.ID,
		Amount: amount, TxHash: outcome.TxHash,
		ExplorerURL: network.ExplorerURL(outcome.TxHash), Handle: req.Handle,
	})
	t.log.Info("trade executed", "symbol", token.Symbol, "network", network.ID,
		"amount", amount, "tx", outcome.TxHash, "attempts", outcome.Attempts)
	return p
}

func (t *Trader) recordFail(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, network domain.Network, amount float64, reason string) domain.Position {
	p := newPosition(req, token, network.ID, amount)
	p.Status = domain.StatusFailed
	p.FailReason = reason

	t.save(ctx, p)
	t.notify(ctx, ports.TradeEvent{
		Kind: "failed", Symbol: token.Symbol, NetworkID: network.ID,
		Amount: amount, Reason: reason, Handle: req.Handle,
	})
	return p
}

func (t *Trader) recordSkip(ctx context.Context, req domain.TradeRequest, token domain.ResolvedToken, networkID, reason string) domain.Position {
	p := newPosition(req, token, networkID, 0)
	p.Status = domain.StatusSkipped
	p.FailReason = reason

	t.save(ctx, p)
	t.notify(ctx, ports.TradeEvent{
		Kind: "skipped", Symbol: token.Symbol, NetworkID: networkID,
		Reason: reason, Handle: req.Handle,
	})
	return p
}

func newPosition(req domain.TradeRequest, token domain.ResolvedToken, networkID string, amount float64) domain.Position {
	return domain.Position{
		ID:           uuid.New().String(),
		Symbol:       token.Symbol,
		TokenAddress: token.Address,
		NetworkID:    networkID,
		AmountNative: amount,
		BoughtAt:     time.Now().UTC(),
		PostText:     req.PostText,
		Handle:       req.Handle,
	}
}

// rawTokenUnits converts a whole-token quantity to raw on-chain units.
func rawTokenUnits(amount float64, decimals int) *big.Int {
	raw := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(math.Pow10(decimals)))
	out, _ := raw.Int(nil)
	return out
}

// estimatePrice derives native-per-token from the quoted output. Zero when
// the executor did not report an expected output.
func estimatePrice(amountNative float64, amountOut *big.Int, decimals int) float64 {
	if amountOut == nil || amountOut.Sign() <= 0 || decimals <= 0 {
		return 0
	}
	out, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amountOut),
		big.NewFloat(math.Pow10(decimals)),
	).Float64()
	if out <= 0 {
		return 0
	}
	return amountNative / out
}

func (t *Trader) save(ctx context.Context, p domain.Position) {
	if err := t.store.SavePosition(ctx, p); err != nil {
		t.log.Error("failed to persist position", "id", p.ID, "symbol", p.Symbol, "error", err)
	}
}

func (t *Trader) notify(ctx context.Context, ev ports.TradeEvent) {
	if err := t.notifier.NotifyTrade(ctx, ev); err != nil {
		t.log.Warn("notification failed", "kind", ev.Kind, "symbol", ev.Symbol, "error", err)
	}
}
