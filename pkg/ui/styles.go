package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("#7C3AED")
	ColorProfit = lipgloss.Color("#10B981")
	ColorLoss   = lipgloss.Color("#EF4444")
	ColorRisk   = lipgloss.Color("#F59E0B")
	ColorDim    = lipgloss.Color("#6B7280")
	ColorFaint  = lipgloss.Color("#9CA3AF")
	ColorFrame  = lipgloss.Color("#374151")
)

var (
	// PanelStyle frames the dashboard columns.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorFrame).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorAccent).
			Padding(0, 2)

	AccentText = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StrongText = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	ProfitText = lipgloss.NewStyle().Foreground(ColorProfit)
	LossText   = lipgloss.NewStyle().Foreground(ColorLoss)
	RiskText   = lipgloss.NewStyle().Foreground(ColorRisk)
	DimText    = lipgloss.NewStyle().Foreground(ColorDim)
	FaintText  = lipgloss.NewStyle().Foreground(ColorFaint)

	// PausedBadge marks a dashboard frozen by the operator. The engine keeps
	// trading underneath.
	PausedBadge = lipgloss.NewStyle().Bold(true).Foreground(ColorRisk)
	ErrorHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorLoss)
	TaglineText = lipgloss.NewStyle().Bold(true).Foreground(ColorRisk)
)
