package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Stats holds statistics for display.
type Stats struct {
	Uptime      time.Duration
	Updates     int64
	Decisions   int64
	Opens       int64
	Closes      int64
	StopLosses  int64
	Failures    int64
	Panics      int64
	RealizedPnL decimal.Decimal
	Fees        decimal.Decimal
	WinRate     decimal.Decimal
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	failures := s.stats.Failures + s.stats.Panics
	failuresDisplay := valueStyle.Render(fmt.Sprintf("%d", failures))
	if failures > 0 {
		failuresDisplay = errorStyle.Render(fmt.Sprintf("%d", failures))
	}

	pnlDisplay := profitStyle.Render("$" + s.stats.RealizedPnL.StringFixed(2))
	if s.stats.RealizedPnL.IsNegative() {
		pnlDisplay = errorStyle.Render("-$" + s.stats.RealizedPnL.Abs().StringFixed(2))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Updates: %s  │  Decisions: %s  │  Opens: %s  │  Closes: %s (stop-loss %s)\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Updates)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Decisions)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opens)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Closes)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.StopLosses)),
		) +
		fmt.Sprintf("Realized: %s  │  Fees: %s  │  Win rate: %s  │  Failures: %s  │  Uptime: %s",
			pnlDisplay,
			valueStyle.Render("$"+s.stats.Fees.StringFixed(2)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", s.stats.WinRate.InexactFloat64()*100)),
			failuresDisplay,
			valueStyle.Render(s.stats.Uptime.Round(time.Second).String()),
		)
}
