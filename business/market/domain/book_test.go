package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBookSnapshot_Valid(t *testing.T) {
	lvl := func(p, q string) Level {
		return Level{Price: decimal.RequireFromString(p), Qty: decimal.RequireFromString(q)}
	}

	tests := []struct {
		name string
		bid  Level
		ask  Level
		want bool
	}{
		{"normal book", lvl("2000", "1.5"), lvl("2000.5", "2"), true},
		{"zero qty allowed", lvl("2000", "0"), lvl("2001", "0"), true},
		{"zero bid price", lvl("0", "1"), lvl("2001", "1"), false},
		{"negative ask price", lvl("2000", "1"), lvl("-1", "1"), false},
		{"negative qty", lvl("2000", "-0.1"), lvl("2001", "1"), false},
		{"missing sides", Level{}, Level{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &BookSnapshot{BestBid: tt.bid, BestAsk: tt.ask}
			if got := snap.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilSnap *BookSnapshot
	if nilSnap.Valid() {
		t.Error("nil snapshot must not be valid")
	}
}

func TestNewBookSnapshot(t *testing.T) {
	now := time.Now()

	snap, err := NewBookSnapshot(VenueBinance, "ETHUSDT",
		[][]string{{"2000.10", "3.2"}, {"2000.00", "5"}},
		[][]string{{"2000.20", "1.1"}, {"2000.30", "4"}},
		now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.BestBid.Price.Equal(decimal.RequireFromString("2000.10")) {
		t.Errorf("expected best bid 2000.10, got %s", snap.BestBid.Price)
	}
	if !snap.BestAsk.Qty.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("expected best ask qty 1.1, got %s", snap.BestAsk.Qty)
	}
	if !snap.Mid().Equal(decimal.RequireFromString("2000.15")) {
		t.Errorf("expected mid 2000.15, got %s", snap.Mid())
	}

	bad := []struct {
		name       string
		bids, asks [][]string
	}{
		{"empty bids", nil, [][]string{{"1", "1"}}},
		{"short level", [][]string{{"1"}}, [][]string{{"1", "1"}}},
		{"not a number", [][]string{{"abc", "1"}}, [][]string{{"1", "1"}}},
		{"zero price", [][]string{{"0", "1"}}, [][]string{{"1", "1"}}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBookSnapshot(VenueBitget, "ETHUSDT", tt.bids, tt.asks, now); err == nil {
				t.Error("expected error")
			}
		})
	}
}
