// Package main is the entry point for the cross-venue perpetual arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fd1az/perp-arbitrage/business/arbitrage"
	arbitrageDI "github.com/fd1az/perp-arbitrage/business/arbitrage/di"
	"github.com/fd1az/perp-arbitrage/business/execution"
	"github.com/fd1az/perp-arbitrage/business/journal"
	"github.com/fd1az/perp-arbitrage/business/market"
	"github.com/fd1az/perp-arbitrage/internal/apm"
	"github.com/fd1az/perp-arbitrage/internal/config"
	"github.com/fd1az/perp-arbitrage/internal/health"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/metrics"
	"github.com/fd1az/perp-arbitrage/internal/monolith"
	"github.com/fd1az/perp-arbitrage/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("perp-arbitrage %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, cancel, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	log := newLogger(cfg, tuiMode)
	log.Info(ctx, "starting perp arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"symbol", cfg.Market.Symbol,
		"mode", cfg.Execution.Mode,
	)

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	healthServer := health.NewServer(cfg.App.HealthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		healthServer.Stop(stopCtx)
	}()

	mono, err := monolith.New(cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown finished with errors", "error", err)
		}
	}()

	// Define modules in dependency order
	modules := []monolith.Module{
		&market.Module{},    // Feeds start here; engine subscribes on startup
		&execution.Module{}, // Venues and leverage setup
		&journal.Module{},   // Optional trade journal sinks
		&arbitrage.Module{}, // Depends on all of the above
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		startFunc := func() error {
			if err := mono.StartModules(ctx, modules...); err != nil {
				return fmt.Errorf("failed to start modules: %w", err)
			}
			return nil
		}
		return runTUI(ctx, cancel, startFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	log.Info(ctx, "all modules started, watching spreads")

	<-ctx.Done()

	stats := arbitrageDI.GetEngine(mono.Services()).Stats()
	log.Info(context.Background(), "shutting down",
		"uptime", stats.Uptime(time.Now()).Round(time.Second).String(),
		"opens", stats.Opens,
		"closes", stats.Closes,
		"realized_pnl", stats.RealizedPnL.StringFixed(4),
	)
	return nil
}

// newLogger writes JSON logs to stderr in CLI mode. In TUI mode the output
// is discarded and warnings and errors are forwarded to the log panel.
func newLogger(cfg *config.Config, tuiMode bool) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if !tuiMode {
		return logger.New(os.Stderr, level, cfg.App.Name, logger.OtelTraceID)
	}

	forward := func(lvl string) logger.EventFn {
		return func(ctx context.Context, r logger.Record) {
			ui.Send(ui.LogMsg{Level: lvl, Message: r.Message})
		}
	}
	return logger.NewWithEvents(io.Discard, level, cfg.App.Name, logger.OtelTraceID, logger.Events{
		Warn:  forward("warn"),
		Error: forward("error"),
	})
}

// setupTelemetry installs the tracer and meter providers when telemetry is
// enabled and returns their shutdown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	headers, err := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
	if err != nil {
		return nil, fmt.Errorf("telemetry.otlp_headers: %w", err)
	}

	traceProvider, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Exporter:    apm.Exporter(cfg.Telemetry.TraceExporter),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     headers,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithPrometheus(prometheus.NewRegistry()),
	}
	metricProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.Telemetry.PrometheusPort, metricProvider.Handler())
	if err := metricsServer.Start(); err != nil {
		log.Warn(ctx, "failed to start metrics server", "error", err)
	} else {
		log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)
	}

	return func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()

		metricsServer.Stop(stopCtx)
		metricProvider.Shutdown(stopCtx)
		traceProvider.Stop()
	}, nil
}

func runTUI(ctx context.Context, cancel context.CancelFunc, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program immediately (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		// Connections happen here, the TUI shows progress
		ui.Send(ui.StartupMsg{Step: "config", Status: ui.StepReady})
		if err := startFunc(); err != nil {
			ui.Send(ui.StartupMsg{Step: "engine", Status: ui.StepFailed, Message: err.Error()})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		p.Quit()
		errCh <- nil
	}()

	_, err := p.Run()
	// Quitting the TUI ends the session.
	cancel()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(shutdownTimeout):
		return nil
	}
}
