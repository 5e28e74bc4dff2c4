package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/journal/domain"
)

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("MigrationNames failed: %v", err)
	}
	if len(names) == 0 || names[0] != "001_trade_events.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}

	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS trade_events") {
		t.Error("first migration must create trade_events")
	}
}

func TestInsertArgs(t *testing.T) {
	net := decimal.RequireFromString("12.345678901234567890")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	args := InsertArgs(domain.Entry{
		ID:        "evt-1",
		Kind:      "closed",
		Size:      decimal.RequireFromString("0.5"),
		NetProfit: &net,
		At:        at,
	})

	if len(args) != strings.Count(insertEvent, "$") {
		t.Fatalf("got %d args for %d placeholders", len(args), strings.Count(insertEvent, "$"))
	}
	if args[4] != "0.5" {
		t.Errorf("size = %v, want \"0.5\"", args[4])
	}
	if got := args[10].(*string); got == nil || *got != "12.34567890123456789" {
		t.Errorf("net_profit = %v", got)
	}
	if args[8].(*string) != nil {
		t.Error("empty reason must be NULL")
	}
	if args[11].(*string) != nil {
		t.Error("missing fees must be NULL")
	}
	if args[14] != at {
		t.Errorf("occurred_at = %v", args[14])
	}
}

// TestStore_Write runs against a real database when ARB_TEST_POSTGRES_DSN is set.
func TestStore_Write(t *testing.T) {
	dsn := os.Getenv("ARB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ARB_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := New(ctx, Config{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	id := "test-" + time.Now().Format("20060102150405.000000")
	entry := domain.Entry{ID: id, PositionID: "pos", Kind: "opened", Direction: "AB", At: time.Now()}

	if err := store.Write(ctx, entry); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write(ctx, entry); err != nil {
		t.Fatalf("replayed Write must be a no-op: %v", err)
	}
	defer store.pool.Exec(context.Background(), "DELETE FROM trade_events WHERE id = $1", id)

	var count int
	if err := store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trade_events WHERE id = $1", id).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
