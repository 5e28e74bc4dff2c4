package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PositionView is the current paired position.
type PositionView struct {
	Open        bool
	Direction   string
	Size        decimal.Decimal
	EntryA      decimal.Decimal
	EntryB      decimal.Decimal
	EntrySpread decimal.Decimal
	HasRisk     bool
	Liquidation decimal.Decimal
	StopLoss    decimal.Decimal
	OpenedAt    time.Time
}

// PositionComponent renders the position panel.
type PositionComponent struct {
	pos PositionView
}

// NewPositionComponent creates a new position component.
func NewPositionComponent() *PositionComponent {
	return &PositionComponent{}
}

// Update replaces the displayed position.
func (p *PositionComponent) Update(pos PositionView) {
	p.pos = pos
}

// View renders the position component.
func (p *PositionComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var b strings.Builder
	b.WriteString(headerStyle.Render("POSITION"))
	b.WriteString("\n")

	if !p.pos.Open {
		b.WriteString(dimStyle.Render("Flat"))
		return b.String()
	}

	held := time.Since(p.pos.OpenedAt).Round(time.Second)
	b.WriteString(fmt.Sprintf("%s  size %s  held %s\n",
		valueStyle.Render(p.pos.Direction),
		valueStyle.Render(p.pos.Size.StringFixed(2)),
		dimStyle.Render(held.String()),
	))
	b.WriteString(fmt.Sprintf("Entry A %s  │  Entry B %s  │  Spread %s\n",
		p.pos.EntryA.StringFixed(2),
		p.pos.EntryB.StringFixed(2),
		formatBps(p.pos.EntrySpread),
	))

	if p.pos.HasRisk {
		b.WriteString(fmt.Sprintf("Liquidation %s  │  Stop-loss %s",
			warnStyle.Render(p.pos.Liquidation.StringFixed(2)),
			warnStyle.Render(p.pos.StopLoss.StringFixed(2)),
		))
	} else {
		b.WriteString(warnStyle.Render("No risk levels (balance unavailable)"))
	}

	return b.String()
}
