package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// TradeRow is one open or close attempt in the list.
type TradeRow struct {
	Timestamp string
	Action    string // OPEN, CLOSE, STOP
	Direction string
	Size      decimal.Decimal
	PriceA    decimal.Decimal
	PriceB    decimal.Decimal
	Spread    decimal.Decimal
	HasProfit bool
	NetProfit decimal.Decimal
	Failed    bool
	Error     string
}

// TradesComponent renders the trade history, newest first.
type TradesComponent struct {
	rows        []TradeRow
	maxRows     int
	visibleRows int
	offset      int
}

// NewTradesComponent creates a new trades component keeping maxRows entries.
func NewTradesComponent(maxRows int) *TradesComponent {
	return &TradesComponent{
		rows:        make([]TradeRow, 0),
		maxRows:     maxRows,
		visibleRows: 8,
	}
}

// Add adds a new trade to the top of the list.
func (t *TradesComponent) Add(row TradeRow) {
	t.rows = append([]TradeRow{row}, t.rows...)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[:t.maxRows]
	}
	t.offset = 0
}

// Len returns the number of stored trades.
func (t *TradesComponent) Len() int {
	return len(t.rows)
}

// Clear clears all trades.
func (t *TradesComponent) Clear() {
	t.rows = make([]TradeRow, 0)
	t.offset = 0
}

// ScrollUp moves the window towards newer trades.
func (t *TradesComponent) ScrollUp() {
	if t.offset > 0 {
		t.offset--
	}
}

// ScrollDown moves the window towards older trades.
func (t *TradesComponent) ScrollDown() {
	if t.offset+t.visibleRows < len(t.rows) {
		t.offset++
	}
}

// View renders the trades component.
func (t *TradesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("TRADES (%d)", len(t.rows))))
	b.WriteString("\n")

	if len(t.rows) == 0 {
		b.WriteString(dimStyle.Render("No trades yet..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%-8s  %-5s  %-4s  %7s  %10s  %10s  %10s  %s\n",
		"Time", "Type", "Dir", "Size", "Price A", "Price B", "Spread", "PnL"))

	end := t.offset + t.visibleRows
	if end > len(t.rows) {
		end = len(t.rows)
	}

	for _, row := range t.rows[t.offset:end] {
		line := fmt.Sprintf("%-8s  %-5s  %-4s  %7s  %10s  %10s  %10s  ",
			row.Timestamp,
			row.Action,
			row.Direction,
			row.Size.StringFixed(2),
			row.PriceA.StringFixed(2),
			row.PriceB.StringFixed(2),
			formatBps(row.Spread),
		)

		switch {
		case row.Failed:
			line += lossStyle.Render("✗ " + truncate(row.Error, 32))
		case row.HasProfit && row.NetProfit.IsNegative():
			line += lossStyle.Render(fmt.Sprintf("-$%s", row.NetProfit.Abs().StringFixed(2)))
		case row.HasProfit:
			line += profitStyle.Render(fmt.Sprintf("+$%s", row.NetProfit.StringFixed(2)))
		default:
			line += dimStyle.Render("-")
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(t.rows) > t.visibleRows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d-%d of %d", t.offset+1, end, len(t.rows))))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
