package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEventKind classifies a trade event.
type TradeEventKind string

const (
	TradeOpened      TradeEventKind = "opened"
	TradeClosed      TradeEventKind = "closed"
	TradeOpenFailed  TradeEventKind = "open_failed"
	TradeCloseFailed TradeEventKind = "close_failed"
)

// TradeEvent records one open or close attempt.
type TradeEvent struct {
	ID         string
	PositionID string
	Kind       TradeEventKind
	Direction  Direction
	Size       decimal.Decimal
	PriceA     decimal.Decimal
	PriceB     decimal.Decimal
	Spread     decimal.Decimal
	Reason     CloseReason   // closes only
	Profit     *ProfitResult // successful closes only
	Remaining  decimal.Decimal
	Error      string
	Simulated  bool
	At         time.Time
}

// Failed reports whether the attempt failed.
func (e TradeEvent) Failed() bool {
	return e.Kind == TradeOpenFailed || e.Kind == TradeCloseFailed
}
