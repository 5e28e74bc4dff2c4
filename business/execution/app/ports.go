// Package app contains the order executor and the venue port it drives.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/execution/domain"
)

// Venue places market orders on one perpetual futures venue.
type Venue interface {
	Name() string
	PlaceOrder(ctx context.Context, leg domain.Leg) (domain.Fill, error)
	SetLeverage(ctx context.Context, leverage int) error
	AvailableBalance(ctx context.Context) (decimal.Decimal, error)
}
