package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

// sizePlaces is the precision orders are rounded down to.
const sizePlaces = 2

// RiskConfig holds sizing and risk parameters for the PositionManager.
type RiskConfig struct {
	OrderSizeRatio        decimal.Decimal // fraction of the thinner top level to take
	MaxPositionNotional   decimal.Decimal // margin budget per position, in quote
	Leverage              decimal.Decimal
	MinOrderSize          decimal.Decimal
	StopLossPercentage    decimal.Decimal // fraction of the entry-liquidation distance
	MaintenanceMarginRate decimal.Decimal
	Fees                  domain.FeeSchedule
}

// CloseResult is the outcome of a successful Close.
type CloseResult struct {
	PositionID  string
	Direction   domain.Direction
	Size        decimal.Decimal // amount closed
	Remaining   decimal.Decimal
	ExitPriceA  decimal.Decimal
	ExitPriceB  decimal.Decimal
	Profit      domain.ProfitResult
	FullyClosed bool
}

// RealizedStats are the totals accumulated over closed trades.
type RealizedStats struct {
	NetProfit decimal.Decimal
	Fees      decimal.Decimal
	Closes    int
	Wins      int
}

// PositionManager is the only owner of the Position. Every other component
// receives copies.
type PositionManager struct {
	config RiskConfig
	port   ExecutionPort
	logger logger.LoggerInterface

	// opMu serializes Open and Close, including their port calls.
	opMu sync.Mutex

	mu       sync.RWMutex
	position domain.Position
	realized RealizedStats

	now   func() time.Time
	newID func() string
}

// NewPositionManager creates a flat PositionManager.
func NewPositionManager(cfg RiskConfig, port ExecutionPort, log logger.LoggerInterface) *PositionManager {
	return &PositionManager{
		config:   cfg,
		port:     port,
		logger:   log,
		position: domain.FlatPosition(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Position returns a copy of the current position.
func (m *PositionManager) Position() domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// Realized returns the realized totals.
func (m *PositionManager) Realized() RealizedStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.realized
}

// Fees returns the fee schedule used for profit accounting.
func (m *PositionManager) Fees() domain.FeeSchedule {
	return m.config.Fees
}

// CanOpen reports whether a new position may be opened.
func (m *PositionManager) CanOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position.State == domain.PositionFlat
}

// SizeOrder takes OrderSizeRatio of the thinner side, caps it at
// MaxPositionNotional*Leverage/refPrice and rounds down to two decimals.
// It returns zero when the result is below MinOrderSize or refPrice is not positive.
func (m *PositionManager) SizeOrder(qtyA, qtyB, refPrice decimal.Decimal) decimal.Decimal {
	if !refPrice.IsPositive() {
		return decimal.Zero
	}

	size := decimal.Min(qtyA, qtyB).Mul(m.config.OrderSizeRatio)

	maxSize := m.config.MaxPositionNotional.Mul(m.config.Leverage).Div(refPrice)
	size = decimal.Min(size, maxSize)
	size = size.RoundFloor(sizePlaces)

	if !size.IsPositive() || size.LessThan(m.config.MinOrderSize) {
		return decimal.Zero
	}
	return size
}

// Open places both legs and records the position. On a port error the
// position stays flat and nothing is retried. A failed balance fetch or
// liquidation estimate leaves the position open without risk data.
func (m *PositionManager) Open(ctx context.Context, dir domain.Direction, size, priceA, priceB decimal.Decimal) (domain.Position, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.CanOpen() {
		return domain.Position{}, apperror.New(apperror.CodePositionAlreadyOpen)
	}
	if !dir.Valid() {
		return domain.Position{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("unknown direction "+string(dir)))
	}
	if !size.IsPositive() {
		return domain.Position{}, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("size "+size.String()))
	}

	if err := m.port.OpenPosition(ctx, dir, size, priceA, priceB); err != nil {
		return domain.Position{}, err
	}

	pos := domain.Position{
		ID:          m.newID(),
		State:       domain.PositionOpen,
		Direction:   dir,
		Size:        size,
		EntryPriceA: priceA,
		EntryPriceB: priceB,
		OpenedAt:    m.now(),
	}
	m.armRisk(ctx, &pos)

	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()

	return pos, nil
}

// armRisk computes liquidation and stop-loss for the venue A leg. For BA
// that is the short on A; the short on B is deliberately not the one tracked.
func (m *PositionManager) armRisk(ctx context.Context, pos *domain.Position) {
	balance, err := m.port.AccountBalance(ctx)
	if err != nil {
		m.logger.Warn(ctx, "balance unavailable, stop-loss disabled for position",
			"position_id", pos.ID,
			"error", apperror.New(apperror.CodeBalanceFetchFailed, apperror.WithCause(err)))
		return
	}

	side := pos.Direction.SideA()
	liq, err := domain.LiquidationPrice(side, pos.EntryPriceA, pos.Size, balance, m.config.MaintenanceMarginRate)
	if err != nil {
		m.logger.Warn(ctx, "liquidation estimate failed, stop-loss disabled for position",
			"position_id", pos.ID,
			"balance", balance.String(),
			"error", err)
		return
	}

	pos.LiquidationPrice = liq
	pos.StopLossPrice = domain.StopLossPrice(side, pos.EntryPriceA, liq, m.config.StopLossPercentage)

	m.logger.Info(ctx, "risk levels set",
		"position_id", pos.ID,
		"leg_a_side", string(side),
		"liquidation", liq.StringFixed(2),
		"stop_loss", pos.StopLossPrice.StringFixed(2))
}

// CloseSize returns the quantity a close against available would send:
// min(held, available) rounded down to two decimals, or the whole position
// when the remainder would fall below MinOrderSize. Zero means nothing can
// be closed.
func (m *PositionManager) CloseSize(available decimal.Decimal) decimal.Decimal {
	return m.closeSize(m.Position().Size, available)
}

func (m *PositionManager) closeSize(held, available decimal.Decimal) decimal.Decimal {
	size := decimal.Min(held, available).RoundFloor(sizePlaces)
	if !size.IsPositive() {
		return decimal.Zero
	}
	if rest := held.Sub(size); rest.IsPositive() && rest.LessThan(m.config.MinOrderSize) {
		return held
	}
	return size
}

// Close closes CloseSize(available) of the position. Entry prices are kept on
// a partial close; a fully closed position resets to flat. On a port error
// the size is unchanged.
func (m *PositionManager) Close(ctx context.Context, available, priceA, priceB decimal.Decimal) (*CloseResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	pos := m.Position()
	if !pos.IsOpen() {
		return nil, apperror.New(apperror.CodeNoOpenPosition)
	}

	size := m.closeSize(pos.Size, available)
	if !size.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("nothing available to close at "+available.String()))
	}

	if err := m.port.ClosePosition(ctx, pos.Direction, size, priceA, priceB); err != nil {
		return nil, err
	}

	profit := domain.CalculateProfit(pos.Direction, size,
		pos.EntryPriceA, pos.EntryPriceB, priceA, priceB, m.config.Fees)
	remaining := pos.Size.Sub(size)

	m.mu.Lock()
	if remaining.IsPositive() {
		m.position.Size = remaining
	} else {
		m.position = domain.FlatPosition()
	}
	m.realized.NetProfit = m.realized.NetProfit.Add(profit.NetProfit)
	m.realized.Fees = m.realized.Fees.Add(profit.TotalFees)
	m.realized.Closes++
	if profit.IsProfitable() {
		m.realized.Wins++
	}
	m.mu.Unlock()

	return &CloseResult{
		PositionID:  pos.ID,
		Direction:   pos.Direction,
		Size:        size,
		Remaining:   decimal.Max(remaining, decimal.Zero),
		ExitPriceA:  priceA,
		ExitPriceB:  priceB,
		Profit:      profit,
		FullyClosed: !remaining.IsPositive(),
	}, nil
}
