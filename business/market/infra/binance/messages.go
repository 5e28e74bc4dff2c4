// Package binance streams the USDⓈ-M futures partial book of one symbol.
package binance

import (
	"encoding/json"
	"time"
)

// EventTypeDepthUpdate is the event type of partial book depth frames.
const EventTypeDepthUpdate = "depthUpdate"

// PartialDepthEvent is a <symbol>@depth5 frame. Levels are [price, qty],
// best first.
type PartialDepthEvent struct {
	EventType       string     `json:"e"`
	EventTime       int64      `json:"E"`
	TransactionTime int64      `json:"T"`
	Symbol          string     `json:"s"`
	FinalUpdateID   int64      `json:"u"`
	Bids            [][]string `json:"b"`
	Asks            [][]string `json:"a"`
}

// Timestamp returns the venue event time.
func (e *PartialDepthEvent) Timestamp() time.Time {
	return time.UnixMilli(e.EventTime)
}

func parseDepthEvent(data []byte) (*PartialDepthEvent, error) {
	var event PartialDepthEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
