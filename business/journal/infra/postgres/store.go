// Package postgres stores journal entries in PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/journal/domain"
)

// SinkName identifies the sink in errors and logs.
const SinkName = "postgres"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds connection parameters for the Postgres sink.
type Config struct {
	DSN      string
	MaxConns int
}

// Store is a journal sink writing one row per trade event.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool, verifies it and applies pending migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Name() string {
	return SinkName
}

const insertEvent = `
	INSERT INTO trade_events (
		id, position_id, kind, direction,
		size, price_a, price_b, spread,
		reason, remaining, net_profit, fees,
		error, simulated, occurred_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15
	) ON CONFLICT (id) DO NOTHING`

// Write inserts the entry. Replaying an entry with a known ID is a no-op.
func (s *Store) Write(ctx context.Context, entry domain.Entry) error {
	if _, err := s.pool.Exec(ctx, insertEvent, InsertArgs(entry)...); err != nil {
		return fmt.Errorf("postgres: insert trade event %s: %w", entry.ID, err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// InsertArgs returns the positional arguments of insertEvent. Decimals are
// passed as strings so NUMERIC columns keep full precision; optional
// columns are NULL when empty.
func InsertArgs(e domain.Entry) []any {
	return []any{
		e.ID, e.PositionID, e.Kind, e.Direction,
		e.Size.String(), e.PriceA.String(), e.PriceB.String(), e.Spread.String(),
		nullString(e.Reason), e.Remaining.String(), nullDecimal(e.NetProfit), nullDecimal(e.Fees),
		nullString(e.Error), e.Simulated, e.At,
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// RunMigrations applies the embedded migrations in lexicographic order and
// tracks them in schema_migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := s.pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("postgres: create schema_migrations table: %w", err)
	}

	names, err := MigrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		var applied bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)", name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("postgres: check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", name, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("postgres: begin tx for %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("postgres: commit migration %s: %w", name, err)
		}
	}
	return nil
}

// MigrationNames lists the embedded .sql files in apply order.
func MigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: read migrations dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
