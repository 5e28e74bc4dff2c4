// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/perp-arbitrage/pkg/ui/components"
)

// Feed names shown in the status bar and startup screen.
const (
	FeedBinance = "Binance"
	FeedBitget  = "Bitget"
)

// StartupStep is one line of the startup checklist.
type StartupStep struct {
	Name   string
	Status StepStatus
}

type stepBadge struct {
	icon  string
	label string
	style lipgloss.Style
}

var stepBadges = map[StepStatus]stepBadge{
	StepPending: {"○", "Pending", DimText},
	StepReady:   {"✓", "Ready", ProfitText},
	StepFailed:  {"✗", "Failed", LossText},
}

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "binance", "bitget", "engine"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	quotes   *components.QuotesComponent
	trades   *components.TradesComponent
	position *components.PositionComponent
	stats    *components.StatsComponent
	status   *components.StatusComponent

	keys KeyMap
	help help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready      bool
	quitting   bool
	paused     bool // freezes the books panel
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string     // Recent log messages

	// Startup state
	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time
	firstBook       bool
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		quotes:       components.NewQuotesComponent(),
		trades:       components.NewTradesComponent(50),
		position:     components.NewPositionComponent(),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(FeedBinance, FeedBitget),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 5),
		errors:       make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStep{
			"config":  {Name: "Loading configuration", Status: StepPending},
			"binance": {Name: "Connecting to Binance futures", Status: StepPending},
			"bitget":  {Name: "Connecting to Bitget futures", Status: StepPending},
			"engine":  {Name: "Starting arbitrage engine", Status: StepPending},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.trades.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.trades.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.trades.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case MarketMsg:
		m.applyConnection(FeedBinance, msg.A.Connected)
		m.applyConnection(FeedBitget, msg.B.Connected)
		if msg.A.HasBook || msg.B.HasBook {
			m.firstBook = true
		}
		if !m.paused {
			m.quotes.SetSymbol(msg.Symbol)
			m.quotes.SetThresholds(msg.OpenThreshold, msg.CloseThreshold)
			var spreads []components.SpreadRow
			if msg.HasSpreads {
				spreads = []components.SpreadRow{
					{Label: "A→B (long A, short B)", Spread: msg.SpreadAB},
					{Label: "B→A (short A, long B)", Spread: msg.SpreadBA},
				}
			}
			m.quotes.Update([]components.QuoteRow{quoteRow(msg.A), quoteRow(msg.B)}, spreads)
		}
		m.lastUpdate = time.Now()

	case TradeMsg:
		m.trades.Add(tradeRow(msg))
		if msg.Failed {
			m.addError(fmt.Sprintf("%s %s: %s", msg.Kind, msg.Direction, msg.Error))
		}
		m.lastUpdate = time.Now()

	case PositionMsg:
		m.position.Update(components.PositionView{
			Open:        msg.Open,
			Direction:   msg.Direction,
			Size:        msg.Size,
			EntryA:      msg.EntryA,
			EntryB:      msg.EntryB,
			EntrySpread: msg.EntrySpread,
			HasRisk:     msg.HasRisk,
			Liquidation: msg.Liquidation,
			StopLoss:    msg.StopLoss,
			OpenedAt:    msg.OpenedAt,
		})

	case StatsMsg:
		m.stats.Update(components.Stats{
			Uptime:      msg.Uptime,
			Updates:     msg.Updates,
			Decisions:   msg.Decisions,
			Opens:       msg.Opens,
			Closes:      msg.Closes,
			StopLosses:  msg.StopLosses,
			Failures:    msg.Failures,
			Panics:      msg.Panics,
			RealizedPnL: msg.RealizedPnL,
			Fees:        msg.Fees,
			WinRate:     msg.WinRate,
		})

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.markStep(strings.ToLower(msg.Name), msg.Connected)
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.addError(msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Message != "" {
			m.logs = addLog(m.logs, string(msg.Status), msg.Message)
		}
		m.checkStartup()
	}

	return m, nil
}

func (m *Model) applyConnection(name string, connected bool) {
	if prev, ok := m.status.Get(name); ok && prev.Connected == connected {
		return
	}
	m.status.Update(components.ConnectionStatus{Name: name, Connected: connected, LastUpdate: time.Now()})
	m.markStep(strings.ToLower(name), connected)
}

func (m *Model) markStep(stepKey string, connected bool) {
	step, ok := m.startupSteps[stepKey]
	if !ok {
		return
	}
	if connected {
		step.Status = StepReady
	} else if step.Status != StepReady {
		step.Status = StepConnecting
	}
	if cfg := m.startupSteps["config"]; cfg != nil {
		cfg.Status = StepReady
	}
	m.checkStartup()
}

func (m *Model) checkStartup() {
	for _, step := range m.startupSteps {
		if step.Status != StepReady {
			return
		}
	}
	m.startupComplete = true
}

func (m *Model) addError(message string) {
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

func quoteRow(q QuoteView) components.QuoteRow {
	return components.QuoteRow{
		Venue:     q.Venue,
		Connected: q.Connected,
		HasBook:   q.HasBook,
		Bid:       q.Bid,
		BidQty:    q.BidQty,
		Ask:       q.Ask,
		AskQty:    q.AskQty,
		Age:       q.Age,
	}
}

func tradeRow(msg TradeMsg) components.TradeRow {
	action := "OPEN"
	switch {
	case msg.Reason == "stop_loss":
		action = "STOP"
	case msg.Kind == "closed" || msg.Kind == "close_failed":
		action = "CLOSE"
	}
	return components.TradeRow{
		Timestamp: msg.Time.Format("15:04:05"),
		Action:    action,
		Direction: msg.Direction,
		Size:      msg.Size,
		PriceA:    msg.PriceA,
		PriceB:    msg.PriceB,
		Spread:    msg.Spread,
		HasProfit: msg.HasProfit,
		NetProfit: msg.NetProfit,
		Failed:    msg.Failed,
		Error:     msg.Error,
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		// Show startup until the first book or all steps are ready
		if !m.firstBook && !m.startupComplete {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(BannerStyle.Render(" ⚖ Perp Arbitrage Engine "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.quotes.View() + "\n" + m.position.View()
	rightCol := m.trades.View()

	if m.width > 100 {
		left := PanelStyle.Width(m.width/2 - 2).Render(leftCol)
		right := PanelStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 20 {
			width = 80
		}
		b.WriteString(PanelStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(PanelStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		b.WriteString(ErrorHeader.Render("ERRORS"))
		b.WriteString(FaintText.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(LossText.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(FaintText.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedBadge.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
    ██████╗ ███████╗██████╗ ██████╗
    ██╔══██╗██╔════╝██╔══██╗██╔══██╗
    ██████╔╝█████╗  ██████╔╝██████╔╝
    ██╔═══╝ ██╔══╝  ██╔══██╗██╔═══╝
    ██║     ███████╗██║  ██║██║
    ╚═╝     ╚══════╝╚═╝  ╚═╝╚═╝
`
	sb.WriteString(AccentText.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(DimText.Render("       B I N A N C E  ⇄  B I T G E T"))
	sb.WriteString("\n\n\n")
	sb.WriteString(TaglineText.Render("        Buy low on one, sell high on the other"))
	sb.WriteString("\n\n\n")
	sb.WriteString(ProfitText.Render(fmt.Sprintf("             Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(DimText.Render("       Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(AccentText.Render("  ⚖ Perp Arbitrage Engine"))
	sb.WriteString("\n\n")
	sb.WriteString(StrongText.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, stepKey := range startupOrder {
		step, ok := m.startupSteps[stepKey]
		if !ok {
			continue
		}

		badge, ok := stepBadges[step.Status]
		if step.Status == StepConnecting {
			frame := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinnerFrames)
			badge = stepBadge{spinnerFrames[frame], "Connecting...", RiskText}
		} else if !ok {
			badge = stepBadges[StepPending]
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			badge.style.Render(badge.icon),
			DimText.Render(step.Name),
			badge.style.Render(badge.label),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(DimText.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(DimText.Render("  Waiting for the first order book..."))
	sb.WriteString("\n")

	for _, line := range m.logs {
		sb.WriteString(DimText.Render("  " + line))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, DimText.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
