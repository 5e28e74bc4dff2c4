package domain

import (
	"github.com/shopspring/decimal"
)

// FeeSchedule holds the taker fee rate of each venue. Fees are charged on
// entry and on exit.
type FeeSchedule struct {
	A decimal.Decimal
	B decimal.Decimal
}

// LegResult is the realized outcome of one leg.
type LegResult struct {
	Side   Side
	Size   decimal.Decimal
	Entry  decimal.Decimal
	Exit   decimal.Decimal
	Fees   decimal.Decimal
	Profit decimal.Decimal // net of Fees
}

// ProfitResult is the realized outcome of closing some or all of a position.
type ProfitResult struct {
	LegA        LegResult
	LegB        LegResult
	TotalFees   decimal.Decimal
	GrossProfit decimal.Decimal
	NetProfit   decimal.Decimal
}

// IsProfitable returns true if the close made money after fees.
func (p ProfitResult) IsProfitable() bool {
	return p.NetProfit.IsPositive()
}

// LegProfit computes size*(exit-entry)*sign minus entry and exit fees.
func LegProfit(side Side, size, entry, exit, feeRate decimal.Decimal) LegResult {
	fees := size.Mul(entry).Mul(feeRate).Add(size.Mul(exit).Mul(feeRate))
	gross := size.Mul(exit.Sub(entry)).Mul(side.Sign())
	return LegResult{
		Side:   side,
		Size:   size,
		Entry:  entry,
		Exit:   exit,
		Fees:   fees,
		Profit: gross.Sub(fees),
	}
}

// CalculateProfit computes the realized profit of closing size of a position
// opened in direction dir. Live and simulated trading share this path.
func CalculateProfit(dir Direction, size, entryA, entryB, exitA, exitB decimal.Decimal, fees FeeSchedule) ProfitResult {
	legA := LegProfit(dir.SideA(), size, entryA, exitA, fees.A)
	legB := LegProfit(dir.SideB(), size, entryB, exitB, fees.B)

	totalFees := legA.Fees.Add(legB.Fees)
	net := legA.Profit.Add(legB.Profit)

	return ProfitResult{
		LegA:        legA,
		LegB:        legB,
		TotalFees:   totalFees,
		GrossProfit: net.Add(totalFees),
		NetProfit:   net,
	}
}
