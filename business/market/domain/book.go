// Package domain contains the top-of-book model shared by every venue feed.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies a derivatives venue.
type Venue string

const (
	VenueBinance Venue = "binance"
	VenueBitget  Venue = "bitget"
)

func (v Venue) String() string {
	return string(v)
}

// Level is a single price level.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Valid reports whether the level can be quoted against.
func (l Level) Valid() bool {
	return l.Price.IsPositive() && !l.Qty.IsNegative()
}

// BookSnapshot is the best bid and ask of one venue at one instant.
// A new snapshot replaces the previous one wholesale.
type BookSnapshot struct {
	Venue      Venue
	Symbol     string
	BestBid    Level
	BestAsk    Level
	ReceivedAt time.Time
}

// Valid reports whether both sides carry a positive price and a non-negative quantity.
func (s *BookSnapshot) Valid() bool {
	return s != nil && s.BestBid.Valid() && s.BestAsk.Valid()
}

// Mid returns the mid price.
func (s *BookSnapshot) Mid() decimal.Decimal {
	return s.BestBid.Price.Add(s.BestAsk.Price).Div(decimal.NewFromInt(2))
}

// Age returns how old the snapshot is at now.
func (s *BookSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.ReceivedAt)
}

// ParseLevel parses a [price, qty] string pair as sent by both venues.
func ParseLevel(pair []string) (Level, error) {
	if len(pair) < 2 {
		return Level{}, fmt.Errorf("level needs price and qty, got %d fields", len(pair))
	}
	price, err := decimal.NewFromString(pair[0])
	if err != nil {
		return Level{}, fmt.Errorf("price %q: %w", pair[0], err)
	}
	qty, err := decimal.NewFromString(pair[1])
	if err != nil {
		return Level{}, fmt.Errorf("qty %q: %w", pair[1], err)
	}
	return Level{Price: price, Qty: qty}, nil
}

// NewBookSnapshot builds a snapshot from the first level of each side.
// Levels are expected best first, which is how both venues order them.
func NewBookSnapshot(venue Venue, symbol string, bids, asks [][]string, receivedAt time.Time) (BookSnapshot, error) {
	if len(bids) == 0 || len(asks) == 0 {
		return BookSnapshot{}, fmt.Errorf("empty book side: %d bids, %d asks", len(bids), len(asks))
	}
	bid, err := ParseLevel(bids[0])
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("bid: %w", err)
	}
	ask, err := ParseLevel(asks[0])
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("ask: %w", err)
	}

	snap := BookSnapshot{
		Venue:      venue,
		Symbol:     symbol,
		BestBid:    bid,
		BestAsk:    ask,
		ReceivedAt: receivedAt,
	}
	if !snap.Valid() {
		return BookSnapshot{}, fmt.Errorf("invalid top of book: bid %s@%s ask %s@%s",
			bid.Qty, bid.Price, ask.Qty, ask.Price)
	}
	return snap, nil
}
