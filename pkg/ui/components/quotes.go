// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var bps = decimal.NewFromInt(10000)

// QuoteRow is the top of one venue's book.
type QuoteRow struct {
	Venue     string
	Connected bool
	HasBook   bool
	Bid       decimal.Decimal
	BidQty    decimal.Decimal
	Ask       decimal.Decimal
	AskQty    decimal.Decimal
	Age       time.Duration
}

// SpreadRow is one direction's opening spread.
type SpreadRow struct {
	Label  string
	Spread decimal.Decimal
}

// QuotesComponent renders both books and the opening spreads.
type QuotesComponent struct {
	symbol         string
	rows           []QuoteRow
	spreads        []SpreadRow
	openThreshold  decimal.Decimal
	closeThreshold decimal.Decimal
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{symbol: "ETHUSDT"}
}

// SetSymbol sets the instrument name shown in the header.
func (q *QuotesComponent) SetSymbol(symbol string) {
	if symbol != "" {
		q.symbol = symbol
	}
}

// SetThresholds sets the open and close thresholds spreads are compared to.
func (q *QuotesComponent) SetThresholds(open, close decimal.Decimal) {
	q.openThreshold = open
	q.closeThreshold = close
}

// Update replaces the book rows and spreads. A nil spreads slice hides the
// spread section.
func (q *QuotesComponent) Update(rows []QuoteRow, spreads []SpreadRow) {
	q.rows = rows
	q.spreads = spreads
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	if len(q.rows) == 0 {
		return "Waiting for order books..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("BOOKS (%s)", q.symbol)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %-8s  %12s  %9s  %12s  %9s  %6s\n",
		"Venue", "Bid", "Qty", "Ask", "Qty", "Age"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 64)) + "\n")

	for _, row := range q.rows {
		if !row.HasBook {
			status := "waiting"
			if !row.Connected {
				status = "disconnected"
			}
			b.WriteString(fmt.Sprintf("  %-8s  %s\n", row.Venue, warnStyle.Render(status)))
			continue
		}

		age := fmt.Sprintf("%dms", row.Age.Milliseconds())
		ageStyle := dimStyle
		if row.Age > 2*time.Second {
			ageStyle = warnStyle
		}

		b.WriteString(fmt.Sprintf("  %-8s  %12s  %9s  %12s  %9s  %s\n",
			row.Venue,
			row.Bid.StringFixed(2),
			row.BidQty.StringFixed(3),
			row.Ask.StringFixed(2),
			row.AskQty.StringFixed(3),
			ageStyle.Render(fmt.Sprintf("%6s", age)),
		))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 64)) + "\n")

	if q.spreads == nil {
		b.WriteString(dimStyle.Render("  Waiting for both books...") + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Open above %s  │  Close above %s\n\n",
		formatBps(q.openThreshold), formatBps(q.closeThreshold)))

	for _, s := range q.spreads {
		style := negativeStyle
		marker := " "
		if s.Spread.IsPositive() {
			style = dimStyle
		}
		if s.Spread.GreaterThan(q.openThreshold) {
			style = positiveStyle
			marker = "▶"
		}
		b.WriteString(fmt.Sprintf("  %s %-22s %s\n", marker, s.Label, style.Render(fmt.Sprintf("%12s", formatBps(s.Spread)))))
	}

	return b.String()
}

func formatBps(fraction decimal.Decimal) string {
	return fmt.Sprintf("%+.2f bps", fraction.Mul(bps).InexactFloat64())
}
