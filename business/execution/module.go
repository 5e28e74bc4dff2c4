// Package execution implements the execution bounded context: placing both
// legs of a position on the two venues.
package execution

import (
	"context"
	"time"

	"github.com/fd1az/perp-arbitrage/business/execution/app"
	executionDI "github.com/fd1az/perp-arbitrage/business/execution/di"
	"github.com/fd1az/perp-arbitrage/business/execution/infra/binance"
	"github.com/fd1az/perp-arbitrage/business/execution/infra/bitget"
	"github.com/fd1az/perp-arbitrage/business/execution/infra/simulated"
	"github.com/fd1az/perp-arbitrage/internal/config"
	"github.com/fd1az/perp-arbitrage/internal/di"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/monolith"
)

const leverageSetupTimeout = 15 * time.Second

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers the venues and the executor. Simulation mode
// uses paper venues; live mode signs real orders.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.VenueA, func(sr di.ServiceRegistry) app.Venue {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Execution.IsLive() {
			return simulated.NewVenue(binance.VenueName, cfg.Execution.SimulatedBalanceDecimal(), log)
		}

		symbol := cfg.Binance.ProductSymbol
		if symbol == "" {
			symbol = cfg.Market.Symbol
		}
		venue, err := binance.NewVenue(binance.Config{
			BaseURL:           cfg.Binance.RESTURL,
			APIKey:            cfg.Binance.APIKey,
			SecretKey:         cfg.Binance.SecretKey,
			Symbol:            symbol,
			RequestsPerMinute: cfg.Binance.RequestsPerMinute,
			RequestTimeout:    cfg.Execution.LegTimeout,
		}, log)
		if err != nil {
			panic("failed to create binance venue: " + err.Error())
		}
		return venue
	})

	di.RegisterToken(c, executionDI.VenueB, func(sr di.ServiceRegistry) app.Venue {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Execution.IsLive() {
			return simulated.NewVenue(bitget.VenueName, cfg.Execution.SimulatedBalanceDecimal(), log)
		}

		venue, err := bitget.NewVenue(bitget.Config{
			BaseURL:           cfg.Bitget.RESTURL,
			APIKey:            cfg.Bitget.APIKey,
			SecretKey:         cfg.Bitget.SecretKey,
			Passphrase:        cfg.Bitget.Passphrase,
			ProductSymbol:     cfg.Bitget.ProductSymbol,
			RequestsPerMinute: cfg.Bitget.RequestsPerMinute,
			RequestTimeout:    cfg.Execution.LegTimeout,
		}, log)
		if err != nil {
			panic("failed to create bitget venue: " + err.Error())
		}
		return venue
	})

	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		executor, err := app.NewExecutor(
			executionDI.GetVenueA(sr),
			executionDI.GetVenueB(sr),
			app.ExecutorConfig{
				LegTimeout:      cfg.Execution.LegTimeout,
				UnwindOnPartial: cfg.Execution.UnwindOnPartial,
			},
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	return nil
}

// Startup applies the configured leverage on both venues. A live session
// does not start with leverage it cannot confirm.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	executor := executionDI.GetExecutor(mono.Services())

	setupCtx, cancel := context.WithTimeout(ctx, leverageSetupTimeout)
	defer cancel()

	if err := executor.SetLeverage(setupCtx, cfg.Risk.Leverage); err != nil {
		if cfg.Execution.IsLive() {
			return err
		}
		log.Warn(ctx, "leverage setup failed", "error", err)
	}

	log.Info(ctx, "execution module started",
		"mode", cfg.Execution.Mode,
		"leverage", cfg.Risk.Leverage,
		"unwind_on_partial", cfg.Execution.UnwindOnPartial,
	)
	return nil
}
