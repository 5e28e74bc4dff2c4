package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketApp "github.com/fd1az/perp-arbitrage/business/market/app"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

type portCall struct {
	Kind      string
	Direction domain.Direction
	Size      decimal.Decimal
	PriceA    decimal.Decimal
	PriceB    decimal.Decimal
}

// fakePort records calls; the hooks decide outcomes.
type fakePort struct {
	mu    sync.Mutex
	calls []portCall

	openErr    error
	closeErr   error
	balance    decimal.Decimal
	balanceErr error
	onOpen     func()
}

func (p *fakePort) OpenPosition(ctx context.Context, dir domain.Direction, size, priceA, priceB decimal.Decimal) error {
	p.mu.Lock()
	p.calls = append(p.calls, portCall{"open", dir, size, priceA, priceB})
	hook, err := p.onOpen, p.openErr
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (p *fakePort) ClosePosition(ctx context.Context, dir domain.Direction, size, priceA, priceB decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, portCall{"close", dir, size, priceA, priceB})
	return p.closeErr
}

func (p *fakePort) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, p.balanceErr
}

func (p *fakePort) Calls() []portCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]portCall, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePort) set(fn func(p *fakePort)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

var _ ExecutionPort = (*fakePort)(nil)

// fakeFeed lets tests push snapshots by hand.
type fakeFeed struct {
	venue     marketDomain.Venue
	connected atomic.Bool
	closed    atomic.Bool
	handler   marketApp.SnapshotHandler
}

func newFakeFeed(venue marketDomain.Venue) *fakeFeed {
	f := &fakeFeed{venue: venue}
	f.connected.Store(true)
	return f
}

func (f *fakeFeed) Venue() marketDomain.Venue                    { return f.venue }
func (f *fakeFeed) Connect(ctx context.Context) error            { return nil }
func (f *fakeFeed) OnSnapshot(handler marketApp.SnapshotHandler) { f.handler = handler }
func (f *fakeFeed) IsConnected() bool                            { return f.connected.Load() }
func (f *fakeFeed) Close() error                                 { f.closed.Store(true); return nil }
func (f *fakeFeed) LastFrameAt() time.Time                       { return time.Now() }

func (f *fakeFeed) emit(bid, bidQty, ask, askQty string) {
	f.handler(book(f.venue, bid, bidQty, ask, askQty))
}

var _ marketApp.Feed = (*fakeFeed)(nil)

// fakeReporter collects trade events.
type fakeReporter struct {
	mu     sync.Mutex
	trades []domain.TradeEvent
}

func (r *fakeReporter) Start(ctx context.Context) error    { return nil }
func (r *fakeReporter) UpdateMarket(view MarketView)       {}
func (r *fakeReporter) UpdatePosition(pos domain.Position) {}
func (r *fakeReporter) UpdateStats(stats SessionStats)     {}
func (r *fakeReporter) Stop() error                        { return nil }

func (r *fakeReporter) ReportTrade(event domain.TradeEvent) {
	r.mu.Lock()
	r.trades = append(r.trades, event)
	r.mu.Unlock()
}

func (r *fakeReporter) Trades() []domain.TradeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TradeEvent, len(r.trades))
	copy(out, r.trades)
	return out
}

var _ Reporter = (*fakeReporter)(nil)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func book(venue marketDomain.Venue, bid, bidQty, ask, askQty string) marketDomain.BookSnapshot {
	return marketDomain.BookSnapshot{
		Venue:   venue,
		Symbol:  "ETHUSDT",
		BestBid: marketDomain.Level{Price: dec(bid), Qty: dec(bidQty)},
		BestAsk: marketDomain.Level{Price: dec(ask), Qty: dec(askQty)},
	}
}

func defaultRiskConfig() RiskConfig {
	return RiskConfig{
		OrderSizeRatio:        dec("0.7"),
		MaxPositionNotional:   dec("1000"),
		Leverage:              dec("10"),
		MinOrderSize:          dec("0.01"),
		StopLossPercentage:    dec("0.5"),
		MaintenanceMarginRate: dec("0.005"),
		Fees: domain.FeeSchedule{
			A: dec("0.0005"),
			B: dec("0.0005"),
		},
	}
}
