package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

const depthFrame = `{"e":"depthUpdate","E":1700000000000,"T":1700000000000,"s":"ETHUSDT","u":1,` +
	`"b":[["2000.10","3.5"],["2000.00","8"]],"a":[["2000.20","1.25"],["2000.30","4"]]}`

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base, symbol, want string
	}{
		{"", "ETHUSDT", "wss://fstream.binance.com/ws/ethusdt@depth5"},
		{"ws://localhost:1234/ws/", "BTCUSDT", "ws://localhost:1234/ws/btcusdt@depth5"},
	}
	for _, tt := range tests {
		if got := StreamURL(tt.base, tt.symbol); got != tt.want {
			t.Errorf("StreamURL(%q, %q) = %q, want %q", tt.base, tt.symbol, got, tt.want)
		}
	}
}

func TestFeed_ForwardsSnapshotsAndAnswersPing(t *testing.T) {
	pongs := make(chan string, 1)
	paths := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case paths <- r.URL.Path:
		default:
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		conn.Write(ctx, websocket.MessageText, []byte("ping"))
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		select {
		case pongs <- string(data):
		default:
		}

		conn.Write(ctx, websocket.MessageText, []byte(`{"e":"depthUpdate","b":[["oops"]]`))
		conn.Write(ctx, websocket.MessageText, []byte(`{"e":"depthUpdate","b":[["abc","1"]],"a":[["1","1"]]}`))
		conn.Write(ctx, websocket.MessageText, []byte(depthFrame))

		<-ctx.Done()
	}))
	defer server.Close()

	feed, err := NewFeed(Config{
		BaseURL:        "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		Symbol:         "ETHUSDT",
		ReconnectDelay: 50 * time.Millisecond,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFeed failed: %v", err)
	}
	defer feed.Close()

	snaps := make(chan domain.BookSnapshot, 4)
	feed.OnSnapshot(func(snap domain.BookSnapshot) { snaps <- snap })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := feed.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case path := <-paths:
		if path != "/ws/ethusdt@depth5" {
			t.Errorf("unexpected stream path %q", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("feed never dialled")
	}

	select {
	case pong := <-pongs:
		if pong != "pong" {
			t.Errorf("expected pong reply, got %q", pong)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no pong reply")
	}

	select {
	case snap := <-snaps:
		if snap.Venue != domain.VenueBinance || snap.Symbol != "ETHUSDT" {
			t.Errorf("unexpected snapshot identity %s/%s", snap.Venue, snap.Symbol)
		}
		if !snap.BestBid.Price.Equal(decimal.RequireFromString("2000.10")) {
			t.Errorf("expected bid 2000.10, got %s", snap.BestBid.Price)
		}
		if !snap.BestAsk.Qty.Equal(decimal.RequireFromString("1.25")) {
			t.Errorf("expected ask qty 1.25, got %s", snap.BestAsk.Qty)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot forwarded")
	}

	// Ping and the two malformed frames must not have produced snapshots.
	select {
	case snap := <-snaps:
		t.Errorf("unexpected extra snapshot %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}

	if !feed.IsConnected() {
		t.Error("expected feed to report connected")
	}
}

func TestFeed_CloseWithoutConnect(t *testing.T) {
	feed, err := NewFeed(Config{Symbol: "ETHUSDT"}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFeed failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		feed.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a feed that never started")
	}
}

func TestNewFeed_RequiresSymbol(t *testing.T) {
	if _, err := NewFeed(Config{}, &mockLogger{}); err == nil {
		t.Error("expected error for empty symbol")
	}
}
