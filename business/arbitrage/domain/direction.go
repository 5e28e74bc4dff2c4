// Package domain contains the core domain types for the arbitrage context.
package domain

import "github.com/shopspring/decimal"

// Direction represents which venue carries the long leg.
type Direction string

const (
	// DirectionAB is long on venue A, short on venue B.
	DirectionAB Direction = "AB"

	// DirectionBA is long on venue B, short on venue A.
	DirectionBA Direction = "BA"
)

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionAB:
		return "A → B (Long Binance, Short Bitget)"
	case DirectionBA:
		return "B → A (Long Bitget, Short Binance)"
	default:
		return "Unknown"
	}
}

// ShortString returns the compact form used in tables.
func (d Direction) ShortString() string {
	if d == "" {
		return "-"
	}
	return string(d)
}

// Valid reports whether d is one of the two directions.
func (d Direction) Valid() bool {
	return d == DirectionAB || d == DirectionBA
}

// SideA returns the side of the venue A leg.
func (d Direction) SideA() Side {
	if d == DirectionAB {
		return SideLong
	}
	return SideShort
}

// SideB returns the side of the venue B leg.
func (d Direction) SideB() Side {
	return d.SideA().Opposite()
}

// Side is the side of one leg.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Sign is +1 for long and -1 for short.
func (s Side) Sign() decimal.Decimal {
	if s == SideLong {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}
