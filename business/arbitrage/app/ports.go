// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
)

// ExecutionPort places the two legs of a position. A nil error means both legs
// were accepted. Implementations must be safe for concurrent use.
type ExecutionPort interface {
	OpenPosition(ctx context.Context, dir domain.Direction, size, priceA, priceB decimal.Decimal) error
	ClosePosition(ctx context.Context, dir domain.Direction, size, priceA, priceB decimal.Decimal) error
	AccountBalance(ctx context.Context) (decimal.Decimal, error)
}

// Reporter defines the interface for displaying engine activity.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// UpdateMarket refreshes the quotes, spreads and feed status display.
	UpdateMarket(view MarketView)

	// ReportTrade sends an open or close attempt to be displayed/logged.
	ReportTrade(event domain.TradeEvent)

	// UpdatePosition refreshes the position display.
	UpdatePosition(pos domain.Position)

	// UpdateStats refreshes the session counters.
	UpdateStats(stats SessionStats)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// TradeJournal records trade events outside the process. It is write-only:
// nothing is ever read back to restore a position.
type TradeJournal interface {
	Record(ctx context.Context, event domain.TradeEvent) error
	Close() error
}

// MarketView is what the reporter shows about the two books.
type MarketView struct {
	A          *marketDomain.BookSnapshot
	B          *marketDomain.BookSnapshot
	ConnectedA bool
	ConnectedB bool
	Spreads    *domain.Spreads // nil until both books are valid
}
