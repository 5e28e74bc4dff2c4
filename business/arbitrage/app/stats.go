package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
)

// SessionStats are the counters of one process run.
type SessionStats struct {
	StartedAt     time.Time
	Updates       int64 // snapshots received from both feeds
	Decisions     int64
	OpenSignals   int64
	CloseSignals  int64
	Opens         int64
	Closes        int64
	StopLosses    int64
	OpenFailures  int64
	CloseFailures int64
	SkippedOrders int64 // signals sized to zero
	Panics        int64

	RealizedPnL decimal.Decimal
	TotalFees   decimal.Decimal
	Wins        int

	Position domain.Position
}

// Uptime returns how long the session has been running at now.
func (s SessionStats) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// WinRate returns the share of profitable closes, or zero without closes.
func (s SessionStats) WinRate() decimal.Decimal {
	if s.Closes == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Wins)).Div(decimal.NewFromInt(s.Closes))
}
