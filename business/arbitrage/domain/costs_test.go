package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLegProfit(t *testing.T) {
	tests := []struct {
		name       string
		side       Side
		size       string
		entry      string
		exit       string
		fee        string
		wantFees   string
		wantProfit string
	}{
		{
			name:       "long_gains",
			side:       SideLong,
			size:       "1",
			entry:      "2000",
			exit:       "2010",
			fee:        "0.0005",
			wantFees:   "2.005", // 2000*0.0005 + 2010*0.0005
			wantProfit: "7.995",
		},
		{
			name:       "short_gains_when_price_falls",
			side:       SideShort,
			size:       "2",
			entry:      "2002",
			exit:       "1985",
			fee:        "0.0005",
			wantFees:   "3.987", // 2*2002*0.0005 + 2*1985*0.0005
			wantProfit: "30.013",
		},
		{
			name:       "long_loses",
			side:       SideLong,
			size:       "0.5",
			entry:      "2000",
			exit:       "1990",
			fee:        "0",
			wantFees:   "0",
			wantProfit: "-5",
		},
		{
			name:       "zero_size",
			side:       SideShort,
			size:       "0",
			entry:      "2000",
			exit:       "1000",
			fee:        "0.0005",
			wantFees:   "0",
			wantProfit: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LegProfit(tt.side,
				decimal.RequireFromString(tt.size),
				decimal.RequireFromString(tt.entry),
				decimal.RequireFromString(tt.exit),
				decimal.RequireFromString(tt.fee))

			if !got.Fees.Equal(decimal.RequireFromString(tt.wantFees)) {
				t.Errorf("fees = %s, want %s", got.Fees, tt.wantFees)
			}
			if !got.Profit.Equal(decimal.RequireFromString(tt.wantProfit)) {
				t.Errorf("profit = %s, want %s", got.Profit, tt.wantProfit)
			}
		})
	}
}

func TestCalculateProfit_RoundTripAtSamePricesLosesFees(t *testing.T) {
	fees := FeeSchedule{
		A: decimal.RequireFromString("0.0005"),
		B: decimal.RequireFromString("0.0005"),
	}
	size := decimal.RequireFromString("2.1")
	priceA := decimal.RequireFromString("2000")
	priceB := decimal.RequireFromString("2002")

	for _, dir := range []Direction{DirectionAB, DirectionBA} {
		t.Run(string(dir), func(t *testing.T) {
			res := CalculateProfit(dir, size, priceA, priceB, priceA, priceB, fees)

			// 2 * 2.1 * (2000 + 2002) * 0.0005
			wantFees := decimal.RequireFromString("8.4042")
			if !res.TotalFees.Equal(wantFees) {
				t.Errorf("total fees = %s, want %s", res.TotalFees, wantFees)
			}
			if !res.NetProfit.Equal(wantFees.Neg()) {
				t.Errorf("net profit = %s, want %s", res.NetProfit, wantFees.Neg())
			}
			if !res.GrossProfit.IsZero() {
				t.Errorf("gross profit = %s, want 0", res.GrossProfit)
			}
			if res.IsProfitable() {
				t.Error("round trip at unchanged prices must not be profitable")
			}
		})
	}
}

func TestCalculateProfit_ConvergenceIsProfitable(t *testing.T) {
	fees := FeeSchedule{
		A: decimal.RequireFromString("0.0005"),
		B: decimal.RequireFromString("0.0004"),
	}

	// Long A at 2000, short B at 2002; exit A at 1990, B at 1985.
	res := CalculateProfit(DirectionAB,
		decimal.RequireFromString("1"),
		decimal.RequireFromString("2000"),
		decimal.RequireFromString("2002"),
		decimal.RequireFromString("1990"),
		decimal.RequireFromString("1985"),
		fees)

	if res.LegA.Side != SideLong || res.LegB.Side != SideShort {
		t.Fatalf("unexpected sides %s/%s", res.LegA.Side, res.LegB.Side)
	}

	// A: -10 - (2000+1990)*0.0005 = -11.995
	if !res.LegA.Profit.Equal(decimal.RequireFromString("-11.995")) {
		t.Errorf("leg A profit = %s", res.LegA.Profit)
	}
	// B: +17 - (2002+1985)*0.0004 = 15.4052
	if !res.LegB.Profit.Equal(decimal.RequireFromString("15.4052")) {
		t.Errorf("leg B profit = %s", res.LegB.Profit)
	}
	if !res.NetProfit.Equal(decimal.RequireFromString("3.4102")) {
		t.Errorf("net profit = %s, want 3.4102", res.NetProfit)
	}
	if !res.GrossProfit.Equal(decimal.RequireFromString("7")) {
		t.Errorf("gross profit = %s, want 7", res.GrossProfit)
	}
}

func TestDirectionSides(t *testing.T) {
	if DirectionAB.SideA() != SideLong || DirectionAB.SideB() != SideShort {
		t.Error("AB must be long A, short B")
	}
	if DirectionBA.SideA() != SideShort || DirectionBA.SideB() != SideLong {
		t.Error("BA must be short A, long B")
	}
}
