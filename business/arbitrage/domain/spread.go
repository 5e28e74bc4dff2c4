package domain

import (
	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
)

// RelativeSpread returns (sell - buy) / buy, or zero when buy is not positive.
func RelativeSpread(sell, buy decimal.Decimal) decimal.Decimal {
	if !buy.IsPositive() {
		return decimal.Zero
	}
	return sell.Sub(buy).Div(buy)
}

// Spreads holds the two opening spreads of a pair of books.
type Spreads struct {
	AB decimal.Decimal // (bid_B - ask_A) / ask_A
	BA decimal.Decimal // (bid_A - ask_B) / ask_B
}

// OpeningSpreads computes both opening spreads. Callers must pass valid snapshots.
func OpeningSpreads(a, b *marketDomain.BookSnapshot) Spreads {
	return Spreads{
		AB: RelativeSpread(b.BestBid.Price, a.BestAsk.Price),
		BA: RelativeSpread(a.BestBid.Price, b.BestAsk.Price),
	}
}

// Thresholds are the relative spreads that trigger opening and closing.
type Thresholds struct {
	Open  decimal.Decimal
	Close decimal.Decimal
}
