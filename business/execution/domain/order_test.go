package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
)

func TestLeg_Side(t *testing.T) {
	tests := []struct {
		name   string
		side   arbDomain.Side
		action LegAction
		want   OrderSide
	}{
		{"open long", arbDomain.SideLong, ActionOpen, OrderBuy},
		{"open short", arbDomain.SideShort, ActionOpen, OrderSell},
		{"close long", arbDomain.SideLong, ActionClose, OrderSell},
		{"close short", arbDomain.SideShort, ActionClose, OrderBuy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leg := Leg{PositionSide: tt.side, Action: tt.action}
			if got := leg.Side(); got != tt.want {
				t.Errorf("Side() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenAndCloseLegs(t *testing.T) {
	size := decimal.RequireFromString("0.5")
	pA := decimal.RequireFromString("3000")
	pB := decimal.RequireFromString("3003")

	a, b := OpenLegs(arbDomain.DirectionAB, size, pA, pB)
	if a.Side() != OrderBuy || b.Side() != OrderSell {
		t.Errorf("AB open: expected buy A / sell B, got %s / %s", a.Side(), b.Side())
	}
	if !a.RefPrice.Equal(pA) || !b.RefPrice.Equal(pB) {
		t.Error("expected reference prices per venue")
	}
	if a.Reverse().Side() != OrderSell {
		t.Error("expected unwinding the long A leg to sell")
	}

	a, b = CloseLegs(arbDomain.DirectionBA, size, pA, pB)
	if a.Side() != OrderBuy || b.Side() != OrderSell {
		t.Errorf("BA close: expected buy A / sell B, got %s / %s", a.Side(), b.Side())
	}
}
