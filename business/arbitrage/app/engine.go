package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketApp "github.com/fd1az/perp-arbitrage/business/market/app"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

const (
	tracerName = "arbitrage.engine"
	meterName  = "arbitrage"

	defaultStatusInterval = 250 * time.Millisecond
	journalTimeout        = 2 * time.Second
)

// EngineConfig holds configuration for the Engine.
type EngineConfig struct {
	// StatusInterval is how often quotes and stats are pushed to the reporter.
	StatusInterval time.Duration
	// Simulated marks trade events as paper trades.
	Simulated bool
}

type engineMetrics struct {
	decisions metric.Int64Counter
	signals   metric.Int64Counter
	trades    metric.Int64Counter
	panics    metric.Int64Counter
	latency   metric.Float64Histogram
}

// Engine feeds snapshots from both venues to the evaluator and acts on the
// resulting signals. Feed callbacks only store the latest snapshot and nudge
// the decision goroutine, so every decision runs on the freshest pair of
// books and runs to completion before the next one starts.
type Engine struct {
	feedA     marketApp.Feed
	feedB     marketApp.Feed
	evaluator *SpreadEvaluator
	manager   *PositionManager
	reporter  Reporter
	journal   TradeJournal // optional
	logger    logger.LoggerInterface
	config    EngineConfig

	snapA  atomic.Pointer[marketDomain.BookSnapshot]
	snapB  atomic.Pointer[marketDomain.BookSnapshot]
	notify chan struct{}

	// The pair the last decision ran on. Owned by the decision goroutine.
	lastA, lastB *marketDomain.BookSnapshot

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
	startedAt atomic.Int64

	updates       atomic.Int64
	decisions     atomic.Int64
	openSignals   atomic.Int64
	closeSignals  atomic.Int64
	opens         atomic.Int64
	closes        atomic.Int64
	stopLosses    atomic.Int64
	openFailures  atomic.Int64
	closeFailures atomic.Int64
	skipped       atomic.Int64
	panics        atomic.Int64

	metrics *engineMetrics
	tracer  trace.Tracer
}

// NewEngine creates an Engine and registers it as the consumer of both feeds.
// Snapshots arriving before Start are kept; no decision is taken until Start.
func NewEngine(
	feedA, feedB marketApp.Feed,
	evaluator *SpreadEvaluator,
	manager *PositionManager,
	reporter Reporter,
	journal TradeJournal,
	cfg EngineConfig,
	log logger.LoggerInterface,
) (*Engine, error) {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = defaultStatusInterval
	}

	e := &Engine{
		feedA:     feedA,
		feedB:     feedB,
		evaluator: evaluator,
		manager:   manager,
		reporter:  reporter,
		journal:   journal,
		logger:    log,
		config:    cfg,
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		tracer:    otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	feedA.OnSnapshot(e.storeSnapshot(&e.snapA))
	feedB.OnSnapshot(e.storeSnapshot(&e.snapB))

	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.decisions, err = meter.Int64Counter(
		"arbitrage_decisions_total",
		metric.WithDescription("Evaluations run by the decision loop"),
	)
	if err != nil {
		return err
	}

	e.metrics.signals, err = meter.Int64Counter(
		"arbitrage_signals_total",
		metric.WithDescription("Open and close signals emitted"),
	)
	if err != nil {
		return err
	}

	e.metrics.trades, err = meter.Int64Counter(
		"arbitrage_trades_total",
		metric.WithDescription("Trade attempts by outcome"),
	)
	if err != nil {
		return err
	}

	e.metrics.panics, err = meter.Int64Counter(
		"arbitrage_decision_panics_total",
		metric.WithDescription("Panics recovered in the decision loop"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"arbitrage_decision_duration_seconds",
		metric.WithDescription("Time spent per decision, including execution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// storeSnapshot replaces the venue's snapshot and wakes the decision loop
// without ever blocking the feed.
func (e *Engine) storeSnapshot(slot *atomic.Pointer[marketDomain.BookSnapshot]) marketApp.SnapshotHandler {
	return func(snap marketDomain.BookSnapshot) {
		slot.Store(&snap)
		e.updates.Add(1)

		select {
		case e.notify <- struct{}{}:
		default:
		}
	}
}

// Start launches the decision loop and the status loop.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		if err = e.reporter.Start(ctx); err != nil {
			return
		}

		e.startedAt.Store(time.Now().UnixNano())
		e.logger.Info(ctx, "arbitrage engine started",
			"open_threshold", e.evaluator.Thresholds().Open.String(),
			"close_threshold", e.evaluator.Thresholds().Close.String(),
			"simulated", e.config.Simulated)

		e.wg.Add(2)
		go e.run(ctx)
		go e.statusLoop(ctx)
	})
	return err
}

// Stop ends both loops, closes the feeds and the reporter. An open position
// is left as is.
func (e *Engine) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		close(e.stop)
		e.wg.Wait()

		ctx := context.Background()
		for _, feed := range []marketApp.Feed{e.feedA, e.feedB} {
			if cerr := feed.Close(); cerr != nil {
				e.logger.Warn(ctx, "feed close failed", "venue", feed.Venue().String(), "error", cerr)
			}
		}

		stats := e.Stats()
		e.logger.Info(ctx, "arbitrage engine stopped",
			"decisions", stats.Decisions,
			"opens", stats.Opens,
			"closes", stats.Closes,
			"failures", stats.OpenFailures+stats.CloseFailures,
			"realized_pnl", stats.RealizedPnL.StringFixed(4),
			"position", string(stats.Position.State))

		err = e.reporter.Stop()
	})
	return err
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-e.notify:
			e.safeDecide(ctx)
		}
	}
}

// safeDecide recovers a panicking decision so the loop keeps running.
func (e *Engine) safeDecide(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.metrics.panics.Add(ctx, 1)
			e.logger.Error(ctx, "decision panic recovered",
				"error", apperror.New(apperror.CodeDecisionPanic, apperror.WithContext(fmt.Sprint(r))),
				"stack", string(debug.Stack()))
		}
	}()

	e.decide(ctx)
}

func (e *Engine) decide(ctx context.Context) {
	a, b := e.snapA.Load(), e.snapB.Load()
	if a == nil || b == nil {
		return
	}
	// A wakeup left by an update that the previous decision already saw.
	if a == e.lastA && b == e.lastB {
		return
	}
	e.lastA, e.lastB = a, b

	start := time.Now()
	defer func() {
		e.metrics.latency.Record(ctx, time.Since(start).Seconds())
	}()

	e.decisions.Add(1)
	e.metrics.decisions.Add(ctx, 1)

	pos := e.manager.Position()
	signal := e.evaluator.Evaluate(
		VenueView{Snapshot: a, Connected: e.feedA.IsConnected()},
		VenueView{Snapshot: b, Connected: e.feedB.IsConnected()},
		pos,
	)

	switch signal.Kind {
	case domain.SignalOpen:
		e.openSignals.Add(1)
		e.metrics.signals.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "open")))
		e.handleOpen(ctx, signal.Open)
	case domain.SignalClose:
		e.closeSignals.Add(1)
		e.metrics.signals.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", "close"),
			attribute.String("reason", string(signal.Close.Reason))))
		e.handleClose(ctx, pos, signal.Close)
	}
}

func (e *Engine) handleOpen(ctx context.Context, sig *domain.OpenSignal) {
	size := e.manager.SizeOrder(sig.QtyA, sig.QtyB, sig.RefPrice)
	if size.IsZero() {
		e.skipped.Add(1)
		e.logger.Debug(ctx, "open signal skipped, size below minimum",
			"direction", string(sig.Direction),
			"qty_a", sig.QtyA.String(),
			"qty_b", sig.QtyB.String())
		return
	}

	ctx, span := e.tracer.Start(ctx, "engine.open", trace.WithAttributes(
		attribute.String("direction", string(sig.Direction)),
		attribute.String("size", size.String()),
		attribute.String("spread", sig.Spread.String()),
	))
	defer span.End()

	event := domain.TradeEvent{
		ID:        uuid.NewString(),
		Direction: sig.Direction,
		Size:      size,
		PriceA:    sig.EntryPriceA,
		PriceB:    sig.EntryPriceB,
		Spread:    sig.Spread,
		Simulated: e.config.Simulated,
		At:        time.Now(),
	}

	pos, err := e.manager.Open(ctx, sig.Direction, size, sig.EntryPriceA, sig.EntryPriceB)
	if err != nil {
		e.openFailures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")

		event.Kind = domain.TradeOpenFailed
		event.Error = err.Error()
		e.logger.Error(ctx, "open failed",
			"direction", string(sig.Direction),
			"size", size.String(),
			"error", err)
	} else {
		e.opens.Add(1)

		event.Kind = domain.TradeOpened
		event.PositionID = pos.ID
		event.Remaining = pos.Size
		e.logger.Info(ctx, "position opened",
			"position_id", pos.ID,
			"direction", string(pos.Direction),
			"size", pos.Size.String(),
			"entry_a", pos.EntryPriceA.String(),
			"entry_b", pos.EntryPriceB.String(),
			"spread", sig.Spread.StringFixed(6))
	}

	e.publish(ctx, event)
}

func (e *Engine) handleClose(ctx context.Context, pos domain.Position, sig *domain.CloseSignal) {
	size := e.manager.CloseSize(sig.AvailableSize)
	if !size.IsPositive() {
		e.skipped.Add(1)
		e.logger.Debug(ctx, "close signal skipped, no size at exit prices", "reason", string(sig.Reason))
		return
	}

	ctx, span := e.tracer.Start(ctx, "engine.close", trace.WithAttributes(
		attribute.String("position_id", pos.ID),
		attribute.String("reason", string(sig.Reason)),
		attribute.String("spread", sig.Spread.String()),
	))
	defer span.End()

	event := domain.TradeEvent{
		ID:         uuid.NewString(),
		PositionID: pos.ID,
		Direction:  pos.Direction,
		Size:       size,
		PriceA:     sig.ExitPriceA,
		PriceB:     sig.ExitPriceB,
		Spread:     sig.Spread,
		Reason:     sig.Reason,
		Simulated:  e.config.Simulated,
		At:         time.Now(),
	}

	res, err := e.manager.Close(ctx, sig.AvailableSize, sig.ExitPriceA, sig.ExitPriceB)
	if err != nil {
		e.closeFailures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "close failed")

		event.Kind = domain.TradeCloseFailed
		event.Error = err.Error()
		event.Remaining = pos.Size
		e.logger.Error(ctx, "close failed",
			"position_id", pos.ID,
			"reason", string(sig.Reason),
			"error", err)
	} else {
		e.closes.Add(1)
		if sig.Reason == domain.CloseReasonStopLoss {
			e.stopLosses.Add(1)
		}

		event.Kind = domain.TradeClosed
		event.Size = res.Size
		event.Remaining = res.Remaining
		event.Profit = &res.Profit
		e.logger.Info(ctx, "position closed",
			"position_id", res.PositionID,
			"reason", string(sig.Reason),
			"size", res.Size.String(),
			"remaining", res.Remaining.String(),
			"net_profit", res.Profit.NetProfit.StringFixed(4),
			"fees", res.Profit.TotalFees.StringFixed(4))
	}

	e.publish(ctx, event)
}

// publish hands a trade event to the reporter and the journal.
func (e *Engine) publish(ctx context.Context, event domain.TradeEvent) {
	e.metrics.trades.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(event.Kind))))

	e.reporter.ReportTrade(event)
	e.reporter.UpdatePosition(e.manager.Position())

	if e.journal == nil {
		return
	}

	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := e.journal.Record(jctx, event); err != nil {
		e.logger.Warn(ctx, "trade journal write failed",
			"event_id", event.ID,
			"error", apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err)))
	}
}

// statusLoop pushes quotes and counters to the reporter and logs feed
// connectivity changes. It never takes decisions.
func (e *Engine) statusLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.StatusInterval)
	defer ticker.Stop()

	connected := map[marketDomain.Venue]bool{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			view := e.MarketView()
			for _, feed := range []marketApp.Feed{e.feedA, e.feedB} {
				now := feed.IsConnected()
				if was, seen := connected[feed.Venue()]; !seen || was != now {
					e.logger.Info(ctx, "feed status", "venue", feed.Venue().String(), "connected", now)
					connected[feed.Venue()] = now
				}
			}
			e.reporter.UpdateMarket(view)
			e.reporter.UpdateStats(e.Stats())
		}
	}
}

// MarketView returns the latest books, feed status and opening spreads.
func (e *Engine) MarketView() MarketView {
	view := MarketView{
		A:          e.snapA.Load(),
		B:          e.snapB.Load(),
		ConnectedA: e.feedA.IsConnected(),
		ConnectedB: e.feedB.IsConnected(),
	}
	if view.A.Valid() && view.B.Valid() {
		spreads := domain.OpeningSpreads(view.A, view.B)
		view.Spreads = &spreads
	}
	return view
}

// Stats returns the session counters.
func (e *Engine) Stats() SessionStats {
	realized := e.manager.Realized()

	var startedAt time.Time
	if ns := e.startedAt.Load(); ns != 0 {
		startedAt = time.Unix(0, ns)
	}

	return SessionStats{
		StartedAt:     startedAt,
		Updates:       e.updates.Load(),
		Decisions:     e.decisions.Load(),
		OpenSignals:   e.openSignals.Load(),
		CloseSignals:  e.closeSignals.Load(),
		Opens:         e.opens.Load(),
		Closes:        e.closes.Load(),
		StopLosses:    e.stopLosses.Load(),
		OpenFailures:  e.openFailures.Load(),
		CloseFailures: e.closeFailures.Load(),
		SkippedOrders: e.skipped.Load(),
		Panics:        e.panics.Load(),
		RealizedPnL:   realized.NetProfit,
		TotalFees:     realized.Fees,
		Wins:          realized.Wins,
		Position:      e.manager.Position(),
	}
}

// Position returns a copy of the current position.
func (e *Engine) Position() domain.Position {
	return e.manager.Position()
}
