package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the lifecycle state of the single position.
type PositionState string

const (
	PositionFlat PositionState = "flat"
	PositionOpen PositionState = "open"
)

// Position is the hedged two-leg position. Flat positions carry zero values
// everywhere; open positions always have Size > 0.
type Position struct {
	ID               string
	State            PositionState
	Direction        Direction
	Size             decimal.Decimal
	EntryPriceA      decimal.Decimal
	EntryPriceB      decimal.Decimal
	LiquidationPrice decimal.Decimal
	StopLossPrice    decimal.Decimal
	OpenedAt         time.Time
}

// FlatPosition returns the empty position.
func FlatPosition() Position {
	return Position{State: PositionFlat}
}

// IsOpen reports whether a position is held.
func (p Position) IsOpen() bool {
	return p.State == PositionOpen
}

// HasRiskData reports whether the stop-loss path is armed.
func (p Position) HasRiskData() bool {
	return p.IsOpen() && p.StopLossPrice.IsPositive()
}

// NotionalA is the notional of the venue A leg at entry.
func (p Position) NotionalA() decimal.Decimal {
	return p.Size.Mul(p.EntryPriceA)
}

// EntrySpread is the relative entry gap the position was opened on.
func (p Position) EntrySpread() decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}
	if p.Direction == DirectionAB {
		return RelativeSpread(p.EntryPriceB, p.EntryPriceA)
	}
	return RelativeSpread(p.EntryPriceA, p.EntryPriceB)
}
