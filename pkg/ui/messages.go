package ui

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message types for TUI updates. Values arrive pre-computed; the UI only
// formats them.

// QuoteView is the top of one venue's book.
type QuoteView struct {
	Venue     string
	Connected bool
	HasBook   bool
	Bid       decimal.Decimal
	BidQty    decimal.Decimal
	Ask       decimal.Decimal
	AskQty    decimal.Decimal
	Age       time.Duration
}

// MarketMsg is sent periodically with both books and the current spreads.
type MarketMsg struct {
	Symbol         string
	A              QuoteView
	B              QuoteView
	HasSpreads     bool
	SpreadAB       decimal.Decimal
	SpreadBA       decimal.Decimal
	OpenThreshold  decimal.Decimal
	CloseThreshold decimal.Decimal
}

// TradeMsg is sent for every open or close attempt.
type TradeMsg struct {
	Time      time.Time
	Kind      string // opened, closed, open_failed, close_failed
	Direction string
	Size      decimal.Decimal
	PriceA    decimal.Decimal
	PriceB    decimal.Decimal
	Spread    decimal.Decimal
	Reason    string
	HasProfit bool
	NetProfit decimal.Decimal
	Failed    bool
	Error     string
	Simulated bool
}

// PositionMsg is sent when the position changes.
type PositionMsg struct {
	Open        bool
	Direction   string
	Size        decimal.Decimal
	EntryA      decimal.Decimal
	EntryB      decimal.Decimal
	EntrySpread decimal.Decimal
	HasRisk     bool
	Liquidation decimal.Decimal
	StopLoss    decimal.Decimal
	OpenedAt    time.Time
}

// StatsMsg is sent periodically with the session counters.
type StatsMsg struct {
	Uptime      time.Duration
	Updates     int64
	Decisions   int64
	Opens       int64
	Closes      int64
	StopLosses  int64
	Failures    int64
	Panics      int64
	RealizedPnL decimal.Decimal
	Fees        decimal.Decimal
	WinRate     decimal.Decimal
}

// ConnectionStatusMsg is sent when a feed connects or drops.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StepStatus is the progress of one startup step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepConnecting StepStatus = "connecting"
	StepReady      StepStatus = "ready"
	StepFailed     StepStatus = "failed"
)

// StartupMsg moves a startup step (config, binance, bitget, engine).
type StartupMsg struct {
	Step    string
	Status  StepStatus
	Message string
}
