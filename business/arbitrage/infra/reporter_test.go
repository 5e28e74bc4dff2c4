package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/pkg/ui"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func snapshot(venue marketDomain.Venue, bid, ask string, at time.Time) *marketDomain.BookSnapshot {
	return &marketDomain.BookSnapshot{
		Venue:      venue,
		Symbol:     "ETHUSDT",
		BestBid:    marketDomain.Level{Price: dec(bid), Qty: dec("2")},
		BestAsk:    marketDomain.Level{Price: dec(ask), Qty: dec("3")},
		ReceivedAt: at,
	}
}

func receive(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ui message")
		return nil
	}
}

func TestTUIReporter_TranslatesUpdates(t *testing.T) {
	msgs := make(chan tea.Msg, 16)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := NewTUIReporter(func(msg tea.Msg) { msgs <- msg }, TUIReporterConfig{
		Symbol:         "ETHUSDT",
		OpenThreshold:  dec("0.0006"),
		CloseThreshold: dec("0.0002"),
	})
	r.now = func() time.Time { return now }
	defer r.Stop()

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if step, ok := receive(t, msgs).(ui.StartupMsg); !ok || step.Step != "engine" {
		t.Fatalf("expected engine startup message first, got %#v", step)
	}

	spreads := domain.Spreads{AB: dec("0.001"), BA: dec("-0.002")}
	r.UpdateMarket(app.MarketView{
		A:          snapshot(marketDomain.VenueBinance, "3000", "3001", now.Add(-150*time.Millisecond)),
		ConnectedA: true,
		Spreads:    &spreads,
	})

	market, ok := receive(t, msgs).(ui.MarketMsg)
	if !ok {
		t.Fatal("expected MarketMsg")
	}
	if !market.A.HasBook || !market.A.Bid.Equal(dec("3000")) || market.A.Age != 150*time.Millisecond {
		t.Errorf("unexpected venue A quote: %+v", market.A)
	}
	if market.B.HasBook || market.B.Connected {
		t.Errorf("expected empty venue B quote, got %+v", market.B)
	}
	if !market.HasSpreads || !market.SpreadAB.Equal(dec("0.001")) {
		t.Errorf("unexpected spreads: %+v", market)
	}

	r.ReportTrade(domain.TradeEvent{
		Kind:      domain.TradeClosed,
		Direction: domain.DirectionBA,
		Size:      dec("0.5"),
		Reason:    domain.CloseReasonStopLoss,
		Profit:    &domain.ProfitResult{NetProfit: dec("-3.5")},
		At:        now,
	})
	trade, ok := receive(t, msgs).(ui.TradeMsg)
	if !ok {
		t.Fatal("expected TradeMsg")
	}
	if trade.Direction != "B→A" || !trade.HasProfit || !trade.NetProfit.Equal(dec("-3.5")) || trade.Reason != "stop_loss" {
		t.Errorf("unexpected trade message: %+v", trade)
	}

	r.UpdateStats(app.SessionStats{
		StartedAt:     now.Add(-time.Minute),
		Closes:        4,
		Wins:          3,
		OpenFailures:  1,
		CloseFailures: 2,
	})
	stats, ok := receive(t, msgs).(ui.StatsMsg)
	if !ok {
		t.Fatal("expected StatsMsg")
	}
	if stats.Uptime != time.Minute || stats.Failures != 3 || !stats.WinRate.Equal(dec("0.75")) {
		t.Errorf("unexpected stats message: %+v", stats)
	}
}

func TestTUIReporter_DropsWhenQueueFull(t *testing.T) {
	r := NewTUIReporter(func(tea.Msg) {}, TUIReporterConfig{})

	// Not started: nothing drains the queue.
	for i := 0; i < tuiQueueSize+10; i++ {
		r.UpdatePosition(domain.FlatPosition())
	}

	if r.Dropped() != 10 {
		t.Errorf("expected 10 dropped updates, got %d", r.Dropped())
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a reporter that never started")
	}
}

func TestConsoleReporter_PrintsChangesOnly(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporterTo(&out)

	r.UpdateMarket(app.MarketView{ConnectedA: true, ConnectedB: false})
	r.UpdateMarket(app.MarketView{ConnectedA: true, ConnectedB: false})
	if got := strings.Count(out.String(), "Binance: connected"); got != 1 {
		t.Errorf("expected one Binance status line, got %d", got)
	}

	pos := domain.Position{
		ID:               "pos-1",
		State:            domain.PositionOpen,
		Direction:        domain.DirectionAB,
		Size:             dec("1"),
		EntryPriceA:      dec("3000"),
		EntryPriceB:      dec("3003"),
		LiquidationPrice: dec("2715"),
		StopLossPrice:    dec("2857.5"),
	}
	r.UpdatePosition(pos)
	r.UpdatePosition(pos)
	if got := strings.Count(out.String(), "position pos-1 open"); got != 1 {
		t.Errorf("expected one open line, got %d", got)
	}
	if !strings.Contains(out.String(), "stop-loss $2857.50") {
		t.Errorf("expected stop-loss level in output:\n%s", out.String())
	}

	r.ReportTrade(domain.TradeEvent{
		Kind:      domain.TradeOpenFailed,
		Direction: domain.DirectionAB,
		Size:      dec("1"),
		Error:     "leg B rejected",
		Simulated: true,
		At:        time.Now(),
	})
	if !strings.Contains(out.String(), "OPEN FAILED (SIMULATED)") || !strings.Contains(out.String(), "leg B rejected") {
		t.Errorf("unexpected trade output:\n%s", out.String())
	}

	r.UpdateStats(app.SessionStats{Opens: 2, Closes: 1, RealizedPnL: dec("1.5")})
	r.Stop()
	if !strings.Contains(out.String(), "Opens: 2  Closes: 1") {
		t.Errorf("expected summary on stop:\n%s", out.String())
	}
}
