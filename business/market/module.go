// Package market implements the market data bounded context: one live
// top-of-book feed per venue.
package market

import (
	"context"

	"github.com/fd1az/perp-arbitrage/business/market/app"
	marketDI "github.com/fd1az/perp-arbitrage/business/market/di"
	"github.com/fd1az/perp-arbitrage/business/market/infra/binance"
	"github.com/fd1az/perp-arbitrage/business/market/infra/bitget"
	"github.com/fd1az/perp-arbitrage/internal/config"
	"github.com/fd1az/perp-arbitrage/internal/di"
	"github.com/fd1az/perp-arbitrage/internal/health"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers both venue feeds with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.BinanceFeed, func(sr di.ServiceRegistry) app.Feed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		feed, err := binance.NewFeed(binance.Config{
			BaseURL:        cfg.Binance.WebSocketURL,
			Symbol:         cfg.Market.Symbol,
			ReconnectDelay: cfg.Market.ReconnectDelay,
			ReadTimeout:    cfg.Market.ReadTimeout,
		}, log)
		if err != nil {
			panic("failed to create binance feed: " + err.Error())
		}
		return feed
	})

	di.RegisterToken(c, marketDI.BitgetFeed, func(sr di.ServiceRegistry) app.Feed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		feed, err := bitget.NewFeed(bitget.Config{
			URL:            cfg.Bitget.WebSocketURL,
			Symbol:         cfg.Market.Symbol,
			ReconnectDelay: cfg.Market.ReconnectDelay,
			PingInterval:   cfg.Market.PingInterval,
			ReadTimeout:    cfg.Market.ReadTimeout,
		}, log)
		if err != nil {
			panic("failed to create bitget feed: " + err.Error())
		}
		return feed
	})

	return nil
}

// Startup starts both feed loops and ties readiness to their connections.
// Feeds keep reconnecting in the background, so a venue being down at
// startup does not fail the process.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	feeds := map[string]app.Feed{
		"feed.binance": marketDI.GetBinanceFeed(mono.Services()),
		"feed.bitget":  marketDI.GetBitgetFeed(mono.Services()),
	}
	for name, feed := range feeds {
		if err := feed.Connect(ctx); err != nil {
			return err
		}
		mono.Health().RegisterCheck(name,
			health.FeedCheck(feed.IsConnected, feed.LastFrameAt, mono.Config().Market.MaxSnapshotAge))
	}

	log.Info(ctx, "market module started", "symbol", mono.Config().Market.Symbol)
	return nil
}

