// Package domain contains the order types of the execution context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
)

// OrderSide is the exchange-side direction of an order.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// LegAction says whether an order opens or reduces a leg.
type LegAction string

const (
	ActionOpen  LegAction = "open"
	ActionClose LegAction = "close"
)

// Leg is one market order on one venue.
type Leg struct {
	// PositionSide is the side of the leg being opened or closed.
	PositionSide arbDomain.Side
	Action       LegAction
	Size         decimal.Decimal
	// RefPrice is the quote the decision was taken on. Orders are market
	// orders; venues that need no price ignore it.
	RefPrice decimal.Decimal
}

// Side returns the exchange order side: opening a long and closing a short
// buy, the other two sell.
func (l Leg) Side() OrderSide {
	long := l.PositionSide == arbDomain.SideLong
	if long == (l.Action == ActionOpen) {
		return OrderBuy
	}
	return OrderSell
}

// Reverse returns the order that unwinds an opening leg.
func (l Leg) Reverse() Leg {
	r := l
	r.Action = ActionClose
	return r
}

// OpenLegs returns the venue A and venue B legs that open dir.
func OpenLegs(dir arbDomain.Direction, size, priceA, priceB decimal.Decimal) (Leg, Leg) {
	return Leg{PositionSide: dir.SideA(), Action: ActionOpen, Size: size, RefPrice: priceA},
		Leg{PositionSide: dir.SideB(), Action: ActionOpen, Size: size, RefPrice: priceB}
}

// CloseLegs returns the venue A and venue B legs that reduce dir by size.
func CloseLegs(dir arbDomain.Direction, size, priceA, priceB decimal.Decimal) (Leg, Leg) {
	return Leg{PositionSide: dir.SideA(), Action: ActionClose, Size: size, RefPrice: priceA},
		Leg{PositionSide: dir.SideB(), Action: ActionClose, Size: size, RefPrice: priceB}
}

// Fill is a venue's acknowledgement of an order.
type Fill struct {
	Venue   string
	OrderID string
	Leg     Leg
	At      time.Time
}
