package domain

import "github.com/shopspring/decimal"

// SignalKind tags a Signal.
type SignalKind int

const (
	SignalNone SignalKind = iota
	SignalOpen
	SignalClose
)

func (k SignalKind) String() string {
	switch k {
	case SignalOpen:
		return "open"
	case SignalClose:
		return "close"
	default:
		return "none"
	}
}

// CloseReason says why a close was signalled.
type CloseReason string

const (
	CloseReasonProfit   CloseReason = "profit"
	CloseReasonStopLoss CloseReason = "stop_loss"
)

// OpenSignal carries what is needed to size and enter a position.
type OpenSignal struct {
	Direction   Direction
	EntryPriceA decimal.Decimal
	EntryPriceB decimal.Decimal
	RefPrice    decimal.Decimal // price used to cap the notional
	QtyA        decimal.Decimal // top-of-book quantity on the venue A entry side
	QtyB        decimal.Decimal
	Spread      decimal.Decimal
}

// CloseSignal carries the exit prices and how much can be taken at them.
type CloseSignal struct {
	ExitPriceA    decimal.Decimal
	ExitPriceB    decimal.Decimal
	AvailableSize decimal.Decimal
	Spread        decimal.Decimal
	Reason        CloseReason
}

// Signal is the evaluator's verdict. Exactly one of Open and Close is set
// when Kind is not SignalNone.
type Signal struct {
	Kind  SignalKind
	Open  *OpenSignal
	Close *CloseSignal
}

// NoSignal returns the empty verdict.
func NoSignal() Signal {
	return Signal{Kind: SignalNone}
}

// NewOpenSignal wraps an open verdict.
func NewOpenSignal(s OpenSignal) Signal {
	return Signal{Kind: SignalOpen, Open: &s}
}

// NewCloseSignal wraps a close verdict.
func NewCloseSignal(s CloseSignal) Signal {
	return Signal{Kind: SignalClose, Close: &s}
}
