// Package simulated provides a paper-trading venue.
package simulated

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/execution/domain"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

// DefaultBalance is the paper balance when none is configured.
var DefaultBalance = decimal.NewFromInt(10000)

// Venue accepts every order immediately and keeps a fixed paper balance.
type Venue struct {
	name    string
	balance decimal.Decimal
	logger  logger.LoggerInterface

	mu       sync.Mutex
	fills    int
	leverage int
}

// NewVenue creates a simulated venue. A non-positive balance uses DefaultBalance.
func NewVenue(name string, balance decimal.Decimal, log logger.LoggerInterface) *Venue {
	if !balance.IsPositive() {
		balance = DefaultBalance
	}
	return &Venue{name: name, balance: balance, logger: log}
}

func (v *Venue) Name() string {
	return v.name
}

// PlaceOrder logs the order and reports it filled at the reference price.
func (v *Venue) PlaceOrder(ctx context.Context, leg domain.Leg) (domain.Fill, error) {
	if err := ctx.Err(); err != nil {
		return domain.Fill{}, err
	}

	v.mu.Lock()
	v.fills++
	v.mu.Unlock()

	fill := domain.Fill{
		Venue:   v.name,
		OrderID: "sim-" + uuid.NewString(),
		Leg:     leg,
		At:      time.Now(),
	}

	v.logger.Info(ctx, "simulated fill",
		"venue", v.name,
		"order_id", fill.OrderID,
		"action", leg.Action,
		"side", leg.Side(),
		"size", leg.Size.String(),
		"price", leg.RefPrice.String(),
	)
	return fill, nil
}

// SetLeverage records the leverage.
func (v *Venue) SetLeverage(ctx context.Context, leverage int) error {
	v.mu.Lock()
	v.leverage = leverage
	v.mu.Unlock()
	return nil
}

// AvailableBalance returns the paper balance.
func (v *Venue) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	return v.balance, nil
}

// Fills returns how many orders were accepted.
func (v *Venue) Fills() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fills
}
