// Package domain contains the journal record of a trade event.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
)

// Entry is the serialized form of one trade event.
type Entry struct {
	ID         string           `json:"id"`
	PositionID string           `json:"position_id"`
	Kind       string           `json:"kind"`
	Direction  string           `json:"direction"`
	Size       decimal.Decimal  `json:"size"`
	PriceA     decimal.Decimal  `json:"price_a"`
	PriceB     decimal.Decimal  `json:"price_b"`
	Spread     decimal.Decimal  `json:"spread"`
	Reason     string           `json:"reason,omitempty"`
	Remaining  decimal.Decimal  `json:"remaining"`
	NetProfit  *decimal.Decimal `json:"net_profit,omitempty"`
	Fees       *decimal.Decimal `json:"fees,omitempty"`
	Error      string           `json:"error,omitempty"`
	Simulated  bool             `json:"simulated"`
	At         time.Time        `json:"at"`
}

// FromEvent converts a trade event to an Entry.
func FromEvent(event arbDomain.TradeEvent) Entry {
	e := Entry{
		ID:         event.ID,
		PositionID: event.PositionID,
		Kind:       string(event.Kind),
		Direction:  string(event.Direction),
		Size:       event.Size,
		PriceA:     event.PriceA,
		PriceB:     event.PriceB,
		Spread:     event.Spread,
		Reason:     string(event.Reason),
		Remaining:  event.Remaining,
		Error:      event.Error,
		Simulated:  event.Simulated,
		At:         event.At.UTC(),
	}
	if event.Profit != nil {
		net, fees := event.Profit.NetProfit, event.Profit.TotalFees
		e.NetProfit = &net
		e.Fees = &fees
	}
	return e
}

// Payload returns the JSON encoding of the entry.
func (e Entry) Payload() ([]byte, error) {
	return json.Marshal(e)
}
