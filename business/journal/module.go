// Package journal implements the trade journal bounded context: an
// append-only record of trade events in Redis and/or Postgres.
package journal

import (
	"context"
	"time"

	"github.com/fd1az/perp-arbitrage/business/journal/app"
	journalDI "github.com/fd1az/perp-arbitrage/business/journal/di"
	"github.com/fd1az/perp-arbitrage/business/journal/infra/postgres"
	"github.com/fd1az/perp-arbitrage/business/journal/infra/redis"
	"github.com/fd1az/perp-arbitrage/internal/di"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/monolith"
)

const connectTimeout = 10 * time.Second

// Module implements the journal bounded context.
type Module struct{}

// RegisterServices registers the journal with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, journalDI.Journal, func(sr di.ServiceRegistry) *app.Journal {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewJournal(log)
	})
	return nil
}

// Startup connects the enabled sinks. An enabled sink that cannot connect
// fails startup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().Journal
	log := mono.Logger()
	journal := journalDI.GetJournal(mono.Services())

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if cfg.Redis.Enabled {
		bus, err := redis.New(connectCtx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Stream:   cfg.Redis.Stream,
		})
		if err != nil {
			return err
		}
		journal.Add(bus)
		log.Info(ctx, "trade journal sink connected", "sink", bus.Name(), "addr", cfg.Redis.Addr)
	}

	if cfg.Postgres.Enabled {
		store, err := postgres.New(connectCtx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			journal.Close()
			return err
		}
		journal.Add(store)
		log.Info(ctx, "trade journal sink connected", "sink", store.Name())
	}

	mono.OnClose(journal.Close)

	log.Info(ctx, "journal module started", "enabled", journal.Enabled())
	return nil
}
