package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/internal/apperror"
)

// LiquidationPrice approximates the liquidation price of a single isolated leg
// carrying the whole account balance as margin.
//
//	cv = entry * size, mm = cv * mmr
//	long:  entry * (1 - (balance - mm) / cv), floored at zero
//	short: entry * (1 + (balance - mm) / cv)
//
// A balance that does not cover maintenance margin yields an error.
func LiquidationPrice(side Side, entry, size, balance, mmr decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() || !size.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("liquidation needs positive entry and size"))
	}

	cv := entry.Mul(size)
	mm := cv.Mul(mmr)
	if balance.LessThanOrEqual(mm) {
		return decimal.Zero, apperror.New(apperror.CodeInsufficientMargin,
			apperror.WithContext("balance "+balance.String()+" <= maintenance margin "+mm.String()))
	}

	buffer := balance.Sub(mm).Div(cv)
	one := decimal.NewFromInt(1)

	if side == SideLong {
		liq := entry.Mul(one.Sub(buffer))
		if liq.IsNegative() {
			return decimal.Zero, nil
		}
		return liq, nil
	}
	return entry.Mul(one.Add(buffer)), nil
}

// StopLossPrice places the stop pct of the way from liquidation back to entry.
func StopLossPrice(side Side, entry, liquidation, pct decimal.Decimal) decimal.Decimal {
	if side == SideLong {
		return liquidation.Add(entry.Sub(liquidation).Mul(pct))
	}
	return liquidation.Sub(liquidation.Sub(entry).Mul(pct))
}
