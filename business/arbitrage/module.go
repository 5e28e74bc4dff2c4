// Package arbitrage implements the arbitrage bounded context: spread
// evaluation, position management and the decision engine.
package arbitrage

import (
	"context"

	"github.com/fd1az/perp-arbitrage/business/arbitrage/app"
	arbDI "github.com/fd1az/perp-arbitrage/business/arbitrage/di"
	"github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage/business/arbitrage/infra"
	executionDI "github.com/fd1az/perp-arbitrage/business/execution/di"
	journalDI "github.com/fd1az/perp-arbitrage/business/journal/di"
	marketDI "github.com/fd1az/perp-arbitrage/business/market/di"
	"github.com/fd1az/perp-arbitrage/internal/config"
	"github.com/fd1az/perp-arbitrage/internal/di"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/monolith"
	"github.com/fd1az/perp-arbitrage/pkg/ui"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbDI.Evaluator, func(sr di.ServiceRegistry) *app.SpreadEvaluator {
		cfg := sr.Get("config").(*config.Config)
		return app.NewSpreadEvaluator(thresholds(cfg), cfg.Market.MaxSnapshotAge)
	})

	di.RegisterToken(c, arbDI.PositionManager, func(sr di.ServiceRegistry) *app.PositionManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		risk := app.RiskConfig{
			OrderSizeRatio:        cfg.Risk.OrderSizeRatioDecimal(),
			MaxPositionNotional:   cfg.Risk.MaxPositionNotionalDecimal(),
			Leverage:              cfg.Risk.LeverageDecimal(),
			MinOrderSize:          cfg.Risk.MinOrderSizeDecimal(),
			StopLossPercentage:    cfg.Risk.StopLossPercentageDecimal(),
			MaintenanceMarginRate: cfg.Risk.MaintenanceMarginRateDecimal(),
			Fees: domain.FeeSchedule{
				A: cfg.Binance.TakerFeeDecimal(),
				B: cfg.Bitget.TakerFeeDecimal(),
			},
		}
		return app.NewPositionManager(risk, executionDI.GetExecutor(sr), log)
	})

	di.RegisterToken(c, arbDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.App.TUIMode {
			return infra.NewConsoleReporter()
		}
		th := thresholds(cfg)
		return infra.NewTUIReporter(ui.Send, infra.TUIReporterConfig{
			Symbol:         cfg.Market.Symbol,
			OpenThreshold:  th.Open,
			CloseThreshold: th.Close,
		})
	})

	di.RegisterToken(c, arbDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var journal app.TradeJournal
		if j := journalDI.GetJournal(sr); j.Enabled() {
			journal = j
		}

		engine, err := app.NewEngine(
			marketDI.GetBinanceFeed(sr),
			marketDI.GetBitgetFeed(sr),
			arbDI.GetEvaluator(sr),
			arbDI.GetPositionManager(sr),
			arbDI.GetReporter(sr),
			journal,
			app.EngineConfig{Simulated: !cfg.Execution.IsLive()},
			log,
		)
		if err != nil {
			panic("failed to create arbitrage engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup starts the engine. It must run after the market, execution and
// journal modules.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	engine := arbDI.GetEngine(mono.Services())
	if err := engine.Start(ctx); err != nil {
		return err
	}
	mono.OnClose(engine.Stop)

	mono.Logger().Info(ctx, "arbitrage module started")
	return nil
}

func thresholds(cfg *config.Config) domain.Thresholds {
	return domain.Thresholds{
		Open:  cfg.Strategy.OpenThresholdDecimal(),
		Close: cfg.Strategy.CloseThresholdDecimal(),
	}
}
