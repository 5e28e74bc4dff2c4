// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
)

// Ensure ConsoleReporter implements app.Reporter.
var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu        sync.Mutex
	connected map[string]bool
	lastState domain.PositionState
	lastStats app.SessionStats
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:       out,
		connected: make(map[string]bool),
		lastState: domain.PositionFlat,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Perp Arbitrage Engine Started")
	fmt.Fprintln(r.out, "=============================")
	return nil
}

// UpdateMarket prints feed status changes only; quotes are too frequent for a terminal.
func (r *ConsoleReporter) UpdateMarket(view app.MarketView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printFeedStatus("Binance", view.ConnectedA)
	r.printFeedStatus("Bitget", view.ConnectedB)
}

func (r *ConsoleReporter) printFeedStatus(name string, connected bool) {
	if was, seen := r.connected[name]; seen && was == connected {
		return
	}
	r.connected[name] = connected

	status := "disconnected"
	if connected {
		status = "connected"
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// ReportTrade outputs a trade event to the console.
func (r *ConsoleReporter) ReportTrade(event domain.TradeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode := "LIVE"
	if event.Simulated {
		mode = "SIMULATED"
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "%s (%s)\n", tradeTitle(event.Kind), mode)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", event.At.Format(time.RFC3339))
	if event.PositionID != "" {
		fmt.Fprintf(r.out, "Position:       %s\n", event.PositionID)
	}
	fmt.Fprintf(r.out, "Direction:      %s\n", event.Direction.String())
	fmt.Fprintf(r.out, "Size:           %s\n", event.Size.String())
	fmt.Fprintf(r.out, "Binance price:  $%s\n", event.PriceA.StringFixed(2))
	fmt.Fprintf(r.out, "Bitget price:   $%s\n", event.PriceB.StringFixed(2))
	fmt.Fprintf(r.out, "Spread:         %s bps\n", event.Spread.Shift(4).StringFixed(2))
	if event.Reason != "" {
		fmt.Fprintf(r.out, "Reason:         %s\n", event.Reason)
	}

	if event.Profit != nil {
		p := event.Profit
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintln(r.out, "PROFIT")
		fmt.Fprintf(r.out, "  Binance leg:  $%s (%s, fees $%s)\n", p.LegA.Profit.StringFixed(4), p.LegA.Side, p.LegA.Fees.StringFixed(4))
		fmt.Fprintf(r.out, "  Bitget leg:   $%s (%s, fees $%s)\n", p.LegB.Profit.StringFixed(4), p.LegB.Side, p.LegB.Fees.StringFixed(4))
		fmt.Fprintf(r.out, "  Gross:        $%s\n", p.GrossProfit.StringFixed(4))
		fmt.Fprintf(r.out, "  Net:          $%s\n", p.NetProfit.StringFixed(4))
		fmt.Fprintf(r.out, "  Remaining:    %s\n", event.Remaining.String())
	}

	if event.Error != "" {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(r.out, "Error:          %s\n", event.Error)
	}
	fmt.Fprintln(r.out, "================================================================================")
}

func tradeTitle(kind domain.TradeEventKind) string {
	switch kind {
	case domain.TradeOpened:
		return "POSITION OPENED"
	case domain.TradeClosed:
		return "POSITION CLOSED"
	case domain.TradeOpenFailed:
		return "OPEN FAILED"
	case domain.TradeCloseFailed:
		return "CLOSE FAILED"
	default:
		return "TRADE"
	}
}

// UpdatePosition prints risk levels when a position becomes open.
func (r *ConsoleReporter) UpdatePosition(pos domain.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos.State == r.lastState {
		return
	}
	r.lastState = pos.State

	if !pos.IsOpen() {
		fmt.Fprintf(r.out, "[%s] position flat\n", time.Now().Format("15:04:05"))
		return
	}
	if pos.HasRiskData() {
		fmt.Fprintf(r.out, "[%s] position %s open: liquidation $%s, stop-loss $%s\n",
			time.Now().Format("15:04:05"), pos.ID,
			pos.LiquidationPrice.StringFixed(2), pos.StopLossPrice.StringFixed(2))
	} else {
		fmt.Fprintf(r.out, "[%s] position %s open without stop-loss\n", time.Now().Format("15:04:05"), pos.ID)
	}
}

// UpdateStats keeps the latest totals for the summary printed on Stop.
func (r *ConsoleReporter) UpdateStats(stats app.SessionStats) {
	r.mu.Lock()
	r.lastStats = stats
	r.mu.Unlock()
}

// Stop prints the session summary.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lastStats
	fmt.Fprintln(r.out, "")
	fmt.Fprintf(r.out, "Opens: %d  Closes: %d  Stop-losses: %d  Failures: %d  Realized: $%s\n",
		s.Opens, s.Closes, s.StopLosses, s.OpenFailures+s.CloseFailures, s.RealizedPnL.StringFixed(4))
	fmt.Fprintln(r.out, "Perp Arbitrage Engine Stopped")
	return nil
}
