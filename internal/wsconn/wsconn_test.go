package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/perp-arbitrage/internal/apperror"
)

// mockWSServer accepts every connection and hands it to handler.
func mockWSServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		if handler != nil {
			handler(conn)
		}
	}))
}

// drain reads until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestClient(t *testing.T, url string, mutate func(cfg *Config)) *Client {
	t.Helper()

	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{Name: "binance"})
	if apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("expected CodeConfigurationError, got %v", err)
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	tests := []struct {
		name      string
		url       string
		wantErr   bool
		wantState State
	}{
		{"reachable venue", wsURL(server), false, StateConnected},
		{"nothing listening", "ws://127.0.0.1:1", true, StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.url, func(cfg *Config) { cfg.HandshakeTimeout = time.Second })

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			err := client.Connect(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Connect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && apperror.GetCode(err) != apperror.CodeWebSocketConnectionError {
				t.Errorf("expected CodeWebSocketConnectionError, got %v", err)
			}
			if got := client.State(); got != tt.wantState {
				t.Errorf("State() = %s, want %s", got, tt.wantState)
			}
			if client.IsConnected() != (tt.wantState == StateConnected) {
				t.Errorf("IsConnected() = %v", client.IsConnected())
			}
		})
	}
}

func TestClient_SendJSON_Subscribe(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			return
		}
		received <- data
		drain(conn)
	})
	defer server.Close()

	client := newTestClient(t, wsURL(server), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	type arg struct {
		InstType string `json:"instType"`
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
	}
	sub := struct {
		Op   string `json:"op"`
		Args []arg  `json:"args"`
	}{
		Op:   "subscribe",
		Args: []arg{{InstType: "USDT-FUTURES", Channel: "books5", InstID: "ETHUSDT"}},
	}
	if err := client.SendJSON(ctx, sub); err != nil {
		t.Fatalf("SendJSON failed: %v", err)
	}

	select {
	case data := <-received:
		want := `{"op":"subscribe","args":[{"instType":"USDT-FUTURES","channel":"books5","instId":"ETHUSDT"}]}`
		if string(data) != want {
			t.Errorf("server got %s, want %s", data, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the subscription")
	}
}

func TestClient_SendJSON_Unencodable(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := newTestClient(t, wsURL(server), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	err := client.SendJSON(ctx, map[string]any{"bad": make(chan int)})
	if apperror.GetCode(err) != apperror.CodeInvalidFormat {
		t.Errorf("expected CodeInvalidFormat, got %v", err)
	}
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	client := newTestClient(t, "ws://127.0.0.1:1", nil)

	err := client.Send(context.Background(), []byte("ping"))
	if apperror.GetCode(err) != apperror.CodeWebSocketSendError {
		t.Errorf("expected CodeWebSocketSendError, got %v", err)
	}
}

func TestClient_DeliversFramesInOrder(t *testing.T) {
	const frames = 50

	server := mockWSServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for i := 0; i < frames; i++ {
			msg := fmt.Sprintf(`{"e":"depthUpdate","u":%d}`, i)
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
				return
			}
		}
		drain(conn)
	})
	defer server.Close()

	client := newTestClient(t, wsURL(server), nil)

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	client.OnMessage(func(ctx context.Context, msg []byte) {
		var update struct {
			U int `json:"u"`
		}
		if err := json.Unmarshal(msg, &update); err != nil {
			t.Errorf("unexpected frame %s", msg)
			return
		}

		mu.Lock()
		got = append(got, update.U)
		if len(got) == frames {
			close(done)
		}
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for frames")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, u := range got {
		if u != i {
			t.Fatalf("frame %d carried u=%d, frames reordered", i, u)
		}
	}
	if client.LastMessageAt().IsZero() {
		t.Error("LastMessageAt not updated")
	}
}

func TestClient_StateTransitions(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(50 * time.Millisecond)
	})
	defer server.Close()

	client := newTestClient(t, wsURL(server), nil)

	var (
		mu     sync.Mutex
		states []State
		causes []error
	)
	dropped := make(chan struct{})
	client.OnStateChange(func(state State, err error) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
		causes = append(causes, err)
		if state == StateDisconnected {
			close(dropped)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("server close was not observed")
	}

	mu.Lock()
	defer mu.Unlock()

	want := []State{StateConnecting, StateConnected, StateDisconnected}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, states[i], want[i])
		}
	}
	if causes[2] == nil {
		t.Error("a server-side drop should report its cause")
	}
}

func TestClient_ReadTimeoutDropsSilentConnection(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := newTestClient(t, wsURL(server), func(cfg *Config) { cfg.ReadTimeout = 50 * time.Millisecond })

	dropped := make(chan struct{}, 1)
	client.OnStateChange(func(state State, err error) {
		if state == StateDisconnected {
			select {
			case dropped <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("silent connection was not dropped")
	}
}

func TestClient_OversizedFrameDropsConnection(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("A", 4096)))
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := newTestClient(t, wsURL(server), func(cfg *Config) { cfg.MaxMessageSize = 100 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for client.IsConnected() {
		select {
		case <-deadline:
			t.Fatal("expected disconnect after an oversized frame")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := newTestClient(t, wsURL(server), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := client.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i+1, err)
		}
	}
	if client.State() != StateClosed {
		t.Errorf("State() = %s, want %s", client.State(), StateClosed)
	}

	err := client.Connect(ctx)
	if apperror.GetCode(err) != apperror.CodeWebSocketClosed {
		t.Errorf("Connect after Close: expected CodeWebSocketClosed, got %v", err)
	}
}
