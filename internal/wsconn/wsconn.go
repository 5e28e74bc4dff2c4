// Package wsconn provides a WebSocket client with fixed-delay reconnection and
// per-connection heartbeats, built on github.com/coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/perp-arbitrage/internal/apperror"
)

const meterName = "wsconn"

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL  string
	Name string

	// ReconnectDelay is the fixed wait between a disconnect (or failed dial)
	// and the next attempt.
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration

	// PingInterval sends protocol-level ping frames; 0 disables.
	PingInterval time.Duration
	PongTimeout  time.Duration

	// KeepAliveInterval sends KeepAliveMessage as a text frame; 0 disables.
	// Some venues expect an application-level "ping" instead of ping frames.
	KeepAliveInterval time.Duration
	KeepAliveMessage  []byte

	// ReadTimeout is the longest silence tolerated before the connection is
	// dropped; 0 disables.
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:              url,
		Name:             name,
		ReconnectDelay:   2 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1 << 20,
	}
}

// MessageHandler receives every inbound data frame in arrival order.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions. err carries the cause of a
// disconnect, if any.
type StateHandler func(state State, err error)

// ConnectHandler runs once per established connection before reads start.
// Returning an error drops the connection.
type ConnectHandler func(ctx context.Context) error

type clientMetrics struct {
	messagesReceived metric.Int64Counter
	connects         metric.Int64Counter
	disconnects      metric.Int64Counter
}

// Client is a WebSocket client. One Client owns at most one live connection.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.RWMutex

	state   State
	stateMu sync.RWMutex

	onMessage MessageHandler
	onState   StateHandler
	onConnect ConnectHandler
	handlerMu sync.RWMutex

	// lifetime of the client; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	// closed when the current connection ends
	dropped chan struct{}

	lastMessage atomic.Int64
	closeOnce   sync.Once

	metrics *clientMetrics
	attrs   metric.MeasurementOption
}

// New creates a new WebSocket client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("wsconn: url is required"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config: cfg,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		attrs:  metric.WithAttributes(attribute.String("conn", cfg.Name)),
	}

	if err := c.initMetrics(); err != nil {
		cancel()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.messagesReceived, err = meter.Int64Counter(
		"ws_messages_received_total",
		metric.WithDescription("Total WebSocket messages received"),
	)
	if err != nil {
		return err
	}

	c.metrics.connects, err = meter.Int64Counter(
		"ws_connects_total",
		metric.WithDescription("Successful WebSocket connections"),
	)
	if err != nil {
		return err
	}

	c.metrics.disconnects, err = meter.Int64Counter(
		"ws_disconnects_total",
		metric.WithDescription("WebSocket disconnects"),
	)
	if err != nil {
		return err
	}

	return nil
}

// OnMessage registers the inbound message handler.
func (c *Client) OnMessage(handler MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = handler
	c.handlerMu.Unlock()
}

// OnStateChange registers the state transition handler.
func (c *Client) OnStateChange(handler StateHandler) {
	c.handlerMu.Lock()
	c.onState = handler
	c.handlerMu.Unlock()
}

// OnConnect registers a handler run once per connection, e.g. to subscribe.
func (c *Client) OnConnect(handler ConnectHandler) {
	c.handlerMu.Lock()
	c.onConnect = handler
	c.handlerMu.Unlock()
}

// Connect performs a single connection attempt. On success a reader and the
// configured heartbeats run until the connection drops or Close is called.
func (c *Client) Connect(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	c.setState(StateConnecting, nil)

	dialCtx := ctx
	if c.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.HandshakeTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, c.config.URL, nil)
	if err != nil {
		wrapped := apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
		c.setState(StateDisconnected, wrapped)
		return wrapped
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	connCtx, connCancel := context.WithCancel(c.ctx)
	dropped := make(chan struct{})

	c.connMu.Lock()
	c.conn = conn
	c.dropped = dropped
	c.connMu.Unlock()

	c.lastMessage.Store(time.Now().UnixNano())
	c.setState(StateConnected, nil)
	c.metrics.connects.Add(ctx, 1, c.attrs)

	if err := c.runConnectHandler(connCtx); err != nil {
		c.drop(conn, connCancel, dropped, err)
		return err
	}

	go c.heartbeat(connCtx, conn)
	go c.readLoop(connCtx, conn, connCancel, dropped)

	return nil
}

// runConnectHandler converts a panicking handler into an error so the caller's
// reconnect delay still applies.
func (c *Client) runConnectHandler(ctx context.Context) (err error) {
	c.handlerMu.RLock()
	handler := c.onConnect
	c.handlerMu.RUnlock()

	if handler == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperror.New(apperror.CodeWebSocketConnectionError,
				apperror.WithContext(fmt.Sprintf("%s: connect handler panic: %v", c.config.Name, r)))
		}
	}()

	if err := handler(ctx); err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": connect handler"))
	}
	return nil
}

// ConnectWithRetry retries Connect with the fixed reconnect delay until it
// succeeds, ctx is done or the client is closed.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if waitErr := c.wait(ctx, c.config.ReconnectDelay); waitErr != nil {
			return waitErr
		}
	}
}

// Run keeps the client connected until ctx is done or Close is called. There
// is no terminal failure state: every drop or failed dial is followed by the
// reconnect delay and a new attempt.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err == nil {
			c.connMu.RLock()
			dropped := c.dropped
			c.connMu.RUnlock()

			select {
			case <-dropped:
			case <-ctx.Done():
				c.closeConn(websocket.StatusGoingAway, "shutdown")
				return ctx.Err()
			case <-c.ctx.Done():
				return nil
			}
		}

		if c.ctx.Err() != nil {
			return nil
		}

		c.setState(StateReconnecting, nil)
		if err := c.wait(ctx, c.config.ReconnectDelay); err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, dropped chan struct{}) {
	for {
		readCtx := ctx
		var readCancel context.CancelFunc = func() {}
		if c.config.ReadTimeout > 0 {
			readCtx, readCancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}

		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			c.drop(conn, cancel, dropped, err)
			return
		}

		c.lastMessage.Store(time.Now().UnixNano())
		c.metrics.messagesReceived.Add(ctx, 1, c.attrs)

		c.handlerMu.RLock()
		handler := c.onMessage
		c.handlerMu.RUnlock()

		if handler != nil {
			handler(ctx, data)
		}
	}
}

// heartbeat owns both ping timers of one connection; it exits with the
// connection so nothing is ever written to a dead socket.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	var pingC, keepAliveC <-chan time.Time

	if c.config.PingInterval > 0 {
		t := time.NewTicker(c.config.PingInterval)
		defer t.Stop()
		pingC = t.C
	}
	if c.config.KeepAliveInterval > 0 && len(c.config.KeepAliveMessage) > 0 {
		t := time.NewTicker(c.config.KeepAliveInterval)
		defer t.Stop()
		keepAliveC = t.C
	}
	if pingC == nil && keepAliveC == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingC:
			pingCtx, cancel := context.WithTimeout(ctx, c.pongTimeout())
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				conn.Close(websocket.StatusPolicyViolation, "pong timeout")
				return
			}
		case <-keepAliveC:
			if err := c.write(ctx, conn, c.config.KeepAliveMessage); err != nil && ctx.Err() == nil {
				conn.Close(websocket.StatusInternalError, "keepalive failed")
				return
			}
		}
	}
}

func (c *Client) pongTimeout() time.Duration {
	if c.config.PongTimeout > 0 {
		return c.config.PongTimeout
	}
	return 10 * time.Second
}

func (c *Client) drop(conn *websocket.Conn, cancel context.CancelFunc, dropped chan struct{}, cause error) {
	cancel()
	conn.Close(websocket.StatusNormalClosure, "")

	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()

	close(dropped)

	c.metrics.disconnects.Add(context.Background(), 1, c.attrs)

	var err error
	if cause != nil && c.ctx.Err() == nil {
		err = apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(cause),
			apperror.WithContext(c.config.Name+": connection dropped"))
	}
	c.setState(StateDisconnected, err)
}

// Send writes a text frame on the current connection.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(c.config.Name+": not connected"))
	}

	if err := c.write(ctx, conn, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON encodes v as JSON and sends it.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": marshal"))
	}
	return c.Send(ctx, data)
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// IsConnected reports whether a connection is currently established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// LastMessageAt returns when the last frame arrived.
func (c *Client) LastMessageAt() time.Time {
	return time.Unix(0, c.lastMessage.Load())
}

// Name returns the configured connection name.
func (c *Client) Name() string {
	return c.config.Name
}

// ReconnectDelay returns the fixed delay between attempts.
func (c *Client) ReconnectDelay() time.Duration {
	return c.config.ReconnectDelay
}

// Close terminates the connection and stops any reconnection. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.closeConn(websocket.StatusNormalClosure, "")
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) closeConn(code websocket.StatusCode, reason string) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn != nil {
		conn.Close(code, reason)
	}
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed || (c.state == state && err == nil) {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.stateMu.Unlock()

	c.handlerMu.RLock()
	handler := c.onState
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(state, err)
	}
}
