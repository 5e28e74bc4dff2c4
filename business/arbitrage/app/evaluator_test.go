package app

import (
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	marketDomain "github.com/fd1az/perp-arbitrage/business/market/domain"
)

func newTestEvaluator() *SpreadEvaluator {
	return NewSpreadEvaluator(domain.Thresholds{
		Open:  dec("0.0006"),
		Close: dec("0.0002"),
	}, 0)
}

func view(s marketDomain.BookSnapshot) VenueView {
	return VenueView{Snapshot: &s, Connected: true}
}

func TestEvaluate_OpensAB(t *testing.T) {
	e := newTestEvaluator()

	// spreadAB = (2002 - 2000) / 2000 = 0.001
	a := book(marketDomain.VenueBinance, "1999.5", "4", "2000", "5")
	b := book(marketDomain.VenueBitget, "2002", "3", "2002.5", "6")

	sig := e.Evaluate(view(a), view(b), domain.FlatPosition())
	if sig.Kind != domain.SignalOpen {
		t.Fatalf("expected open signal, got %s", sig.Kind)
	}

	o := sig.Open
	if o.Direction != domain.DirectionAB {
		t.Errorf("expected AB, got %s", o.Direction)
	}
	if !o.EntryPriceA.Equal(dec("2000")) || !o.EntryPriceB.Equal(dec("2002")) {
		t.Errorf("unexpected entry prices %s / %s", o.EntryPriceA, o.EntryPriceB)
	}
	if !o.RefPrice.Equal(dec("2000")) {
		t.Errorf("expected ref price ask A, got %s", o.RefPrice)
	}
	if !o.QtyA.Equal(dec("5")) || !o.QtyB.Equal(dec("3")) {
		t.Errorf("expected qty (askQtyA, bidQtyB) = (5, 3), got (%s, %s)", o.QtyA, o.QtyB)
	}
	if !o.Spread.Equal(dec("0.001")) {
		t.Errorf("expected spread 0.001, got %s", o.Spread)
	}
}

func TestEvaluate_OpensBA(t *testing.T) {
	e := newTestEvaluator()

	// spreadBA = (2003 - 2001) / 2001 ≈ 0.0009995
	a := book(marketDomain.VenueBinance, "2003", "2", "2003.5", "9")
	b := book(marketDomain.VenueBitget, "2000.5", "7", "2001", "4")

	sig := e.Evaluate(view(a), view(b), domain.FlatPosition())
	if sig.Kind != domain.SignalOpen || sig.Open.Direction != domain.DirectionBA {
		t.Fatalf("expected BA open, got %+v", sig)
	}

	o := sig.Open
	if !o.EntryPriceA.Equal(dec("2003")) || !o.EntryPriceB.Equal(dec("2001")) {
		t.Errorf("expected A at bid, B at ask, got %s / %s", o.EntryPriceA, o.EntryPriceB)
	}
	if !o.RefPrice.Equal(dec("2001")) {
		t.Errorf("expected ref price ask B, got %s", o.RefPrice)
	}
	if !o.QtyA.Equal(dec("2")) || !o.QtyB.Equal(dec("4")) {
		t.Errorf("expected qty (bidQtyA, askQtyB) = (2, 4), got (%s, %s)", o.QtyA, o.QtyB)
	}
}

func TestEvaluate_OpenThresholdIsStrict(t *testing.T) {
	e := NewSpreadEvaluator(domain.Thresholds{Open: dec("0.001"), Close: dec("0.0002")}, 0)

	// spreadAB is exactly 0.001
	a := book(marketDomain.VenueBinance, "1999", "1", "2000", "1")
	b := book(marketDomain.VenueBitget, "2002", "1", "2003", "1")

	if sig := e.Evaluate(view(a), view(b), domain.FlatPosition()); sig.Kind != domain.SignalNone {
		t.Errorf("spread equal to threshold must not open, got %s", sig.Kind)
	}
}

func TestEvaluate_Gates(t *testing.T) {
	e := newTestEvaluator()
	a := book(marketDomain.VenueBinance, "1999.5", "4", "2000", "5")
	b := book(marketDomain.VenueBitget, "2002", "3", "2002.5", "6")
	invalid := book(marketDomain.VenueBitget, "0", "3", "2002.5", "6")

	tests := []struct {
		name string
		a, b VenueView
	}{
		{"missing A", VenueView{Connected: true}, view(b)},
		{"missing B", view(a), VenueView{Connected: true}},
		{"A disconnected", VenueView{Snapshot: &a, Connected: false}, view(b)},
		{"B disconnected", view(a), VenueView{Snapshot: &b, Connected: false}},
		{"B invalid", view(a), view(invalid)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sig := e.Evaluate(tt.a, tt.b, domain.FlatPosition()); sig.Kind != domain.SignalNone {
				t.Errorf("expected no signal, got %s", sig.Kind)
			}
		})
	}
}

func TestEvaluate_StaleSnapshotGate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewSpreadEvaluator(domain.Thresholds{Open: dec("0.0006"), Close: dec("0.0002")}, time.Second)
	e.now = func() time.Time { return now }

	a := book(marketDomain.VenueBinance, "1999.5", "4", "2000", "5")
	b := book(marketDomain.VenueBitget, "2002", "3", "2002.5", "6")
	a.ReceivedAt = now.Add(-500 * time.Millisecond)
	b.ReceivedAt = now.Add(-3 * time.Second)

	if sig := e.Evaluate(view(a), view(b), domain.FlatPosition()); sig.Kind != domain.SignalNone {
		t.Errorf("expected stale B to block, got %s", sig.Kind)
	}

	b.ReceivedAt = now
	if sig := e.Evaluate(view(a), view(b), domain.FlatPosition()); sig.Kind != domain.SignalOpen {
		t.Errorf("expected open once B is fresh, got %s", sig.Kind)
	}
}

func openAB() domain.Position {
	return domain.Position{
		ID:          "pos-1",
		State:       domain.PositionOpen,
		Direction:   domain.DirectionAB,
		Size:        dec("2.1"),
		EntryPriceA: dec("2000"),
		EntryPriceB: dec("2002"),
	}
}

func TestEvaluate_ClosesABOnReverseSpread(t *testing.T) {
	e := newTestEvaluator()

	// closeSpread = (1990 - 1985) / 1985 ≈ 0.00252
	a := book(marketDomain.VenueBinance, "1990", "1.5", "1990.5", "8")
	b := book(marketDomain.VenueBitget, "1984.5", "6", "1985", "4")

	sig := e.Evaluate(view(a), view(b), openAB())
	if sig.Kind != domain.SignalClose {
		t.Fatalf("expected close, got %s", sig.Kind)
	}

	c := sig.Close
	if !c.ExitPriceA.Equal(dec("1990")) || !c.ExitPriceB.Equal(dec("1985")) {
		t.Errorf("expected exit A at bid, B at ask, got %s / %s", c.ExitPriceA, c.ExitPriceB)
	}
	if !c.AvailableSize.Equal(dec("1.5")) {
		t.Errorf("expected available min(bidQtyA, askQtyB) = 1.5, got %s", c.AvailableSize)
	}
	if c.Reason != domain.CloseReasonProfit {
		t.Errorf("expected profit reason, got %s", c.Reason)
	}
}

func TestEvaluate_HoldsWhileSpreadPersists(t *testing.T) {
	e := newTestEvaluator()

	// Books unchanged from entry: closeSpread for AB is negative.
	a := book(marketDomain.VenueBinance, "1999.5", "4", "2000", "5")
	b := book(marketDomain.VenueBitget, "2002", "3", "2002.5", "6")

	if sig := e.Evaluate(view(a), view(b), openAB()); sig.Kind != domain.SignalNone {
		t.Errorf("expected hold, got %s", sig.Kind)
	}
}

func TestEvaluate_ClosesBA(t *testing.T) {
	e := newTestEvaluator()
	pos := domain.Position{
		State:       domain.PositionOpen,
		Direction:   domain.DirectionBA,
		Size:        dec("1"),
		EntryPriceA: dec("2003"),
		EntryPriceB: dec("2001"),
	}

	// closeSpread = (2010 - 2000) / 2000 = 0.005
	a := book(marketDomain.VenueBinance, "1999", "3", "2000", "0.4")
	b := book(marketDomain.VenueBitget, "2010", "2", "2011", "2")

	sig := e.Evaluate(view(a), view(b), pos)
	if sig.Kind != domain.SignalClose {
		t.Fatalf("expected close, got %s", sig.Kind)
	}
	if !sig.Close.ExitPriceA.Equal(dec("2000")) || !sig.Close.ExitPriceB.Equal(dec("2010")) {
		t.Errorf("expected exit A at ask, B at bid, got %s / %s", sig.Close.ExitPriceA, sig.Close.ExitPriceB)
	}
	if !sig.Close.AvailableSize.Equal(dec("0.4")) {
		t.Errorf("expected available 0.4, got %s", sig.Close.AvailableSize)
	}
}

func TestEvaluate_StopLoss(t *testing.T) {
	e := newTestEvaluator()

	tests := []struct {
		name       string
		pos        domain.Position
		a, b       marketDomain.BookSnapshot
		wantKind   domain.SignalKind
		wantReason domain.CloseReason
	}{
		{
			name: "AB stop on bid A",
			pos: func() domain.Position {
				p := openAB()
				p.StopLossPrice = dec("1950")
				return p
			}(),
			a:          book(marketDomain.VenueBinance, "1950", "2", "1951", "2"),
			b:          book(marketDomain.VenueBitget, "1960", "2", "1961", "2"),
			wantKind:   domain.SignalClose,
			wantReason: domain.CloseReasonStopLoss,
		},
		{
			name: "AB stop overrides profit",
			pos: func() domain.Position {
				p := openAB()
				p.StopLossPrice = dec("1950")
				return p
			}(),
			// closeSpread = (1940 - 1930) / 1930 > threshold and bid A below stop
			a:          book(marketDomain.VenueBinance, "1940", "2", "1941", "2"),
			b:          book(marketDomain.VenueBitget, "1929", "2", "1930", "2"),
			wantKind:   domain.SignalClose,
			wantReason: domain.CloseReasonStopLoss,
		},
		{
			name: "AB without risk data never stops",
			pos:  openAB(),
			a:    book(marketDomain.VenueBinance, "1000", "2", "1001", "2"),
			b:    book(marketDomain.VenueBitget, "1100", "2", "1101", "2"),
			// closeSpread negative, no stop armed
			wantKind: domain.SignalNone,
		},
		{
			name: "BA stop on ask A",
			pos: domain.Position{
				State:         domain.PositionOpen,
				Direction:     domain.DirectionBA,
				Size:          dec("1"),
				EntryPriceA:   dec("2000"),
				EntryPriceB:   dec("1998"),
				StopLossPrice: dec("2050"),
			},
			a:          book(marketDomain.VenueBinance, "2049", "2", "2050", "2"),
			b:          book(marketDomain.VenueBitget, "2040", "2", "2041", "2"),
			wantKind:   domain.SignalClose,
			wantReason: domain.CloseReasonStopLoss,
		},
		{
			name: "BA below stop holds",
			pos: domain.Position{
				State:         domain.PositionOpen,
				Direction:     domain.DirectionBA,
				Size:          dec("1"),
				EntryPriceA:   dec("2000"),
				EntryPriceB:   dec("1998"),
				StopLossPrice: dec("2050"),
			},
			a:        book(marketDomain.VenueBinance, "2039", "2", "2040", "2"),
			b:        book(marketDomain.VenueBitget, "2030", "2", "2031", "2"),
			wantKind: domain.SignalNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := e.Evaluate(view(tt.a), view(tt.b), tt.pos)
			if sig.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", sig.Kind, tt.wantKind)
			}
			if tt.wantKind == domain.SignalClose && sig.Close.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", sig.Close.Reason, tt.wantReason)
			}
		})
	}
}
