package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
)

// VenueView is one venue as the evaluator sees it.
type VenueView struct {
	Snapshot  *marketDomain.BookSnapshot
	Connected bool
}

// SpreadEvaluator turns two books and the current position into a Signal.
// It holds no state beyond its configuration.
type SpreadEvaluator struct {
	thresholds domain.Thresholds
	maxAge     time.Duration // 0 disables the staleness gate
	now        func() time.Time
}

// NewSpreadEvaluator creates a SpreadEvaluator.
func NewSpreadEvaluator(thresholds domain.Thresholds, maxSnapshotAge time.Duration) *SpreadEvaluator {
	return &SpreadEvaluator{
		thresholds: thresholds,
		maxAge:     maxSnapshotAge,
		now:        time.Now,
	}
}

// Thresholds returns the configured thresholds.
func (e *SpreadEvaluator) Thresholds() domain.Thresholds {
	return e.thresholds
}

// Evaluate returns SignalNone unless both venues are usable.
func (e *SpreadEvaluator) Evaluate(a, b VenueView, pos domain.Position) domain.Signal {
	if !e.usable(a) || !e.usable(b) {
		return domain.NoSignal()
	}

	if pos.IsOpen() {
		return e.evaluateOpen(a.Snapshot, b.Snapshot, pos)
	}
	return e.evaluateFlat(a.Snapshot, b.Snapshot)
}

func (e *SpreadEvaluator) usable(v VenueView) bool {
	if !v.Connected || !v.Snapshot.Valid() {
		return false
	}
	if e.maxAge > 0 && v.Snapshot.Age(e.now()) > e.maxAge {
		return false
	}
	return true
}

// evaluateFlat checks AB before BA; the first spread strictly above the open
// threshold wins.
func (e *SpreadEvaluator) evaluateFlat(a, b *marketDomain.BookSnapshot) domain.Signal {
	spreads := domain.OpeningSpreads(a, b)

	if spreads.AB.GreaterThan(e.thresholds.Open) {
		return domain.NewOpenSignal(domain.OpenSignal{
			Direction:   domain.DirectionAB,
			EntryPriceA: a.BestAsk.Price,
			EntryPriceB: b.BestBid.Price,
			RefPrice:    a.BestAsk.Price,
			QtyA:        a.BestAsk.Qty,
			QtyB:        b.BestBid.Qty,
			Spread:      spreads.AB,
		})
	}

	if spreads.BA.GreaterThan(e.thresholds.Open) {
		return domain.NewOpenSignal(domain.OpenSignal{
			Direction:   domain.DirectionBA,
			EntryPriceA: a.BestBid.Price,
			EntryPriceB: b.BestAsk.Price,
			RefPrice:    b.BestAsk.Price,
			QtyA:        a.BestBid.Qty,
			QtyB:        b.BestAsk.Qty,
			Spread:      spreads.BA,
		})
	}

	return domain.NoSignal()
}

// evaluateOpen looks for the reverse spread and, when risk data is present,
// the stop-loss on the venue A leg. A stop-loss overrides the profit reason.
func (e *SpreadEvaluator) evaluateOpen(a, b *marketDomain.BookSnapshot, pos domain.Position) domain.Signal {
	var (
		closeSpread  decimal.Decimal
		exitA, exitB decimal.Decimal
		available    decimal.Decimal
		stopHit      bool
	)

	switch pos.Direction {
	case domain.DirectionAB:
		// Sell A at its bid, buy B back at its ask.
		closeSpread = domain.RelativeSpread(a.BestBid.Price, b.BestAsk.Price)
		exitA, exitB = a.BestBid.Price, b.BestAsk.Price
		available = decimal.Min(a.BestBid.Qty, b.BestAsk.Qty)
		if pos.StopLossPrice.IsPositive() {
			stopHit = a.BestBid.Price.LessThanOrEqual(pos.StopLossPrice)
		}
	case domain.DirectionBA:
		// Buy A back at its ask, sell B at its bid.
		closeSpread = domain.RelativeSpread(b.BestBid.Price, a.BestAsk.Price)
		exitA, exitB = a.BestAsk.Price, b.BestBid.Price
		available = decimal.Min(a.BestAsk.Qty, b.BestBid.Qty)
		if pos.StopLossPrice.IsPositive() {
			stopHit = a.BestAsk.Price.GreaterThanOrEqual(pos.StopLossPrice)
		}
	default:
		return domain.NoSignal()
	}

	profitHit := closeSpread.GreaterThan(e.thresholds.Close)
	if !profitHit && !stopHit {
		return domain.NoSignal()
	}

	reason := domain.CloseReasonProfit
	if stopHit {
		reason = domain.CloseReasonStopLoss
	}

	return domain.NewCloseSignal(domain.CloseSignal{
		ExitPriceA:    exitA,
		ExitPriceB:    exitB,
		AvailableSize: available,
		Spread:        closeSpread,
		Reason:        reason,
	})
}
