package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/arodriguezf/hypebot/internal/domain"
	"github.com/arodriguezf/hypebot/internal/ports"
)

// Console implements ports.Notifier writing to stdout.
type Console struct {
	out io.Writer
}

// NewConsole creates the default stdout notifier.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifyTrade prints one trade event. Fire-and-forget by contract, so it
// never returns an error in practice.
func (c *Console) NotifyTrade(_ context.Context, ev ports.TradeEvent) error {
	ts := time.Now().Format("15:04:05")
	switch ev.Kind {
	case "initiated":
		fmt.Fprintf(c.out, "[%s] BUY %s: %.6f on %s (via %s)\n",
			ts, ev.Symbol, ev.Amount, ev.NetworkID, ev.Handle)
	case "succeeded":
		fmt.Fprintf(c.out, "[%s] DONE %s: bought %.6f on %s\n", ts, ev.Symbol, ev.Amount, ev.NetworkID)
		if ev.ExplorerURL != "" {
			fmt.Fprintf(c.out, "         %s\n", ev.ExplorerURL)
		}
	case "failed":
		fmt.Fprintf(c.out, "[%s] ⚠ FAILED %s on %s: %s\n", ts, ev.Symbol, ev.NetworkID, ev.Reason)
	case "skipped":
		fmt.Fprintf(c.out, "[%s] SKIP %s on %s: %s\n", ts, ev.Symbol, ev.NetworkID, ev.Reason)
	default:
		fmt.Fprintf(c.out, "[%s] %s %s: %s\n", ts, ev.Kind, ev.Symbol, ev.Reason)
	}
	return nil
}

// NotifyPositions renders the portfolio table.
func (c *Console) NotifyPositions(_ context.Context, positions []domain.Position) error {
	if len(positions) == 0 {
		fmt.Fprintf(c.out, "[%s] no positions\n", time.Now().Format("15:04:05"))
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Network", "Amount", "Status", "Held", "Tx", "Source")

	for _, p := range positions {
		tx := p.BuyTxHash
		if len(tx) > 12 {
			tx = tx[:12] + "..."
		}
		held := p.HoldDuration().Truncate(time.Second).String()
		if p.Status == domain.StatusFailed || p.Status == domain.StatusSkipped {
			held = "-"
		}
		table.Append(
			p.Symbol,
			p.NetworkID,
			fmt.Sprintf("%.6f", p.AmountNative),
			string(p.Status),
			held,
			tx,
			p.Handle,
		)
	}
	table.Render()
	return nil
}
