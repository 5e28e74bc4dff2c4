package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/pkg/ui"
)

// Ensure TUIReporter implements app.Reporter.
var _ app.Reporter = (*TUIReporter)(nil)

const (
	tuiQueueSize   = 256
	tuiStopTimeout = time.Second
)

// TUIReporterConfig holds what the dashboard shows besides engine updates.
type TUIReporterConfig struct {
	Symbol         string
	OpenThreshold  decimal.Decimal
	CloseThreshold decimal.Decimal
}

// TUIReporter implements Reporter for the Bubble Tea TUI. Updates are
// translated to ui messages and queued; a single goroutine hands them to the
// program, so engine callers never wait on rendering. When the queue is full
// the update is dropped.
type TUIReporter struct {
	send   func(tea.Msg)
	config TUIReporterConfig
	now    func() time.Time

	queue     chan tea.Msg
	done      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	dropped   atomic.Int64
}

// NewTUIReporter creates a TUIReporter delivering messages through send,
// usually ui.Send.
func NewTUIReporter(send func(tea.Msg), cfg TUIReporterConfig) *TUIReporter {
	return &TUIReporter{
		send:    send,
		config:  cfg,
		now:     time.Now,
		queue:   make(chan tea.Msg, tuiQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins delivering queued messages.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.startOnce.Do(func() {
		go r.pump()
		r.enqueue(ui.StartupMsg{Step: "engine", Status: ui.StepReady})
	})
	return nil
}

func (r *TUIReporter) pump() {
	defer close(r.stopped)
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.queue:
			r.send(msg)
		}
	}
}

func (r *TUIReporter) enqueue(msg tea.Msg) {
	select {
	case r.queue <- msg:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many updates were discarded because the queue was full.
func (r *TUIReporter) Dropped() int64 {
	return r.dropped.Load()
}

// UpdateMarket sends both books and the current spreads.
func (r *TUIReporter) UpdateMarket(view app.MarketView) {
	now := r.now()
	msg := ui.MarketMsg{
		Symbol:         r.config.Symbol,
		A:              quoteView("Binance", view.A, view.ConnectedA, now),
		B:              quoteView("Bitget", view.B, view.ConnectedB, now),
		OpenThreshold:  r.config.OpenThreshold,
		CloseThreshold: r.config.CloseThreshold,
	}
	if view.Spreads != nil {
		msg.HasSpreads = true
		msg.SpreadAB = view.Spreads.AB
		msg.SpreadBA = view.Spreads.BA
	}
	r.enqueue(msg)
}

func quoteView(venue string, snap *marketDomain.BookSnapshot, connected bool, now time.Time) ui.QuoteView {
	q := ui.QuoteView{Venue: venue, Connected: connected}
	if !snap.Valid() {
		return q
	}
	q.HasBook = true
	q.Bid = snap.BestBid.Price
	q.BidQty = snap.BestBid.Qty
	q.Ask = snap.BestAsk.Price
	q.AskQty = snap.BestAsk.Qty
	q.Age = snap.Age(now)
	return q
}

// ReportTrade sends an open or close attempt to the TUI.
func (r *TUIReporter) ReportTrade(event domain.TradeEvent) {
	msg := ui.TradeMsg{
		Time:      event.At,
		Kind:      string(event.Kind),
		Direction: arrow(event.Direction),
		Size:      event.Size,
		PriceA:    event.PriceA,
		PriceB:    event.PriceB,
		Spread:    event.Spread,
		Reason:    string(event.Reason),
		Failed:    event.Failed(),
		Error:     event.Error,
		Simulated: event.Simulated,
	}
	if event.Profit != nil {
		msg.HasProfit = true
		msg.NetProfit = event.Profit.NetProfit
	}
	r.enqueue(msg)
}

// UpdatePosition sends the current position to the TUI.
func (r *TUIReporter) UpdatePosition(pos domain.Position) {
	r.enqueue(ui.PositionMsg{
		Open:        pos.IsOpen(),
		Direction:   arrow(pos.Direction),
		Size:        pos.Size,
		EntryA:      pos.EntryPriceA,
		EntryB:      pos.EntryPriceB,
		EntrySpread: pos.EntrySpread(),
		HasRisk:     pos.HasRiskData(),
		Liquidation: pos.LiquidationPrice,
		StopLoss:    pos.StopLossPrice,
		OpenedAt:    pos.OpenedAt,
	})
}

// UpdateStats sends the session counters to the TUI.
func (r *TUIReporter) UpdateStats(stats app.SessionStats) {
	r.enqueue(ui.StatsMsg{
		Uptime:      stats.Uptime(r.now()),
		Updates:     stats.Updates,
		Decisions:   stats.Decisions,
		Opens:       stats.Opens,
		Closes:      stats.Closes,
		StopLosses:  stats.StopLosses,
		Failures:    stats.OpenFailures + stats.CloseFailures,
		Panics:      stats.Panics,
		RealizedPnL: stats.RealizedPnL,
		Fees:        stats.TotalFees,
		WinRate:     stats.WinRate(),
	})
}

// Stop stops delivery. Messages still queued are discarded.
func (r *TUIReporter) Stop() error {
	r.stopOnce.Do(func() {
		close(r.done)
	})

	// Never started: nothing to wait for.
	r.startOnce.Do(func() { close(r.stopped) })
	select {
	case <-r.stopped:
	case <-time.After(tuiStopTimeout):
	}
	return nil
}

func arrow(d domain.Direction) string {
	switch d {
	case domain.DirectionAB:
		return "A→B"
	case domain.DirectionBA:
		return "B→A"
	default:
		return "-"
	}
}
