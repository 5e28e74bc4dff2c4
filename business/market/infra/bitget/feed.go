package bitget

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fd1az/perp-arbitrage/business/market/app"
	"github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/wsconn"
)

// BaseWSURL is the v2 public endpoint.
const BaseWSURL = "wss://ws.bitget.com/v2/ws/public"

// DefaultPingInterval keeps the session under the venue's 30s idle limit.
const DefaultPingInterval = 18 * time.Second

var (
	pingFrame = []byte("ping")
	pongFrame = []byte("pong")
)

// Ensure Feed implements app.Feed.
var _ app.Feed = (*Feed)(nil)

// Config holds configuration for the Bitget feed.
type Config struct {
	URL            string // empty = BaseWSURL
	Symbol         string // instId, e.g. "ETHUSDT"
	ReconnectDelay time.Duration
	PingInterval   time.Duration // text "ping" cadence; empty = DefaultPingInterval
	ReadTimeout    time.Duration
}

// Feed streams the top of the Bitget book.
type Feed struct {
	config  Config
	client  *wsconn.Client
	logger  logger.LoggerInterface
	metrics *app.FeedMetrics

	handler   app.SnapshotHandler
	handlerMu sync.RWMutex

	startOnce sync.Once
	done      chan struct{}
	now       func() time.Time
}

// NewFeed creates a Bitget feed. Nothing is dialled until Connect.
func NewFeed(cfg Config, log logger.LoggerInterface) (*Feed, error) {
	if cfg.Symbol == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("bitget feed: symbol is required"))
	}
	if cfg.URL == "" {
		cfg.URL = BaseWSURL
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}

	wsCfg := wsconn.DefaultConfig(cfg.URL, string(domain.VenueBitget))
	// The venue expects text pings; protocol pings are not answered.
	wsCfg.PingInterval = 0
	wsCfg.KeepAliveInterval = cfg.PingInterval
	wsCfg.KeepAliveMessage = pingFrame
	if cfg.ReconnectDelay > 0 {
		wsCfg.ReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.ReadTimeout > 0 {
		wsCfg.ReadTimeout = cfg.ReadTimeout
	}

	client, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}

	metrics, err := app.NewFeedMetrics(domain.VenueBitget)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		config:  cfg,
		client:  client,
		logger:  log,
		metrics: metrics,
		done:    make(chan struct{}),
		now:     time.Now,
	}

	client.OnConnect(f.subscribe)
	client.OnMessage(f.handleMessage)
	client.OnStateChange(f.handleState)

	return f, nil
}

func (f *Feed) Venue() domain.Venue {
	return domain.VenueBitget
}

// OnSnapshot registers the snapshot consumer.
func (f *Feed) OnSnapshot(handler app.SnapshotHandler) {
	f.handlerMu.Lock()
	f.handler = handler
	f.handlerMu.Unlock()
}

// Connect starts the reconnecting read loop. Later calls are no-ops.
func (f *Feed) Connect(ctx context.Context) error {
	f.startOnce.Do(func() {
		go func() {
			defer close(f.done)
			if err := f.client.Run(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error(ctx, "bitget feed stopped", "error", err)
			}
		}()
	})
	return nil
}

func (f *Feed) IsConnected() bool {
	return f.client.IsConnected()
}

func (f *Feed) LastFrameAt() time.Time {
	return f.client.LastMessageAt()
}

// Close stops the feed and waits for the loop to exit if it was started.
func (f *Feed) Close() error {
	err := f.client.Close()

	started := true
	f.startOnce.Do(func() { started = false; close(f.done) })
	if started {
		<-f.done
	}
	return err
}

// subscribe runs on every new connection.
func (f *Feed) subscribe(ctx context.Context) error {
	if err := f.client.SendJSON(ctx, NewSubscribeRequest(f.config.Symbol)); err != nil {
		return apperror.New(apperror.CodeFeedSubscribeFailed,
			apperror.WithCause(err),
			apperror.WithContext(f.config.Symbol))
	}
	return nil
}

func (f *Feed) handleState(state wsconn.State, err error) {
	ctx := context.Background()
	switch state {
	case wsconn.StateConnected:
		f.logger.Info(ctx, "bitget feed connected", "symbol", f.config.Symbol)
	case wsconn.StateDisconnected:
		if err != nil {
			f.logger.Warn(ctx, "bitget feed disconnected", "error", err)
		}
	case wsconn.StateReconnecting:
		f.logger.Debug(ctx, "bitget feed reconnecting", "delay", f.client.ReconnectDelay())
	}
}

func (f *Feed) handleMessage(ctx context.Context, data []byte) {
	if bytes.Equal(bytes.TrimSpace(data), pongFrame) {
		f.metrics.Liveness(ctx)
		return
	}

	msg, err := parsePushMessage(data)
	if err != nil {
		f.dropMalformed(ctx, data, err)
		return
	}

	switch {
	case msg.Event == EventError:
		f.logger.Error(ctx, "bitget subscription error", "code", msg.Code.String(), "msg", msg.Msg)
		return
	case msg.Event != "":
		f.logger.Debug(ctx, "bitget event", "event", msg.Event, "channel", msg.Arg.Channel)
		return
	case msg.Action != ActionSnapshot && msg.Action != ActionUpdate:
		f.dropMalformed(ctx, data, fmt.Errorf("unknown action %q", msg.Action))
		return
	case len(msg.Data) == 0:
		f.dropMalformed(ctx, data, fmt.Errorf("%s without data", msg.Action))
		return
	}

	// books5 pushes carry the full top five on both actions.
	book := msg.Data[0]
	snap, err := domain.NewBookSnapshot(domain.VenueBitget, f.config.Symbol, book.Bids, book.Asks, f.now())
	if err != nil {
		f.dropMalformed(ctx, data, err)
		return
	}

	f.metrics.Snapshot(ctx)

	f.handlerMu.RLock()
	handler := f.handler
	f.handlerMu.RUnlock()
	if handler != nil {
		handler(snap)
	}
}

func (f *Feed) dropMalformed(ctx context.Context, data []byte, err error) {
	f.metrics.ParseError(ctx)
	f.logger.Warn(ctx, "bitget frame dropped",
		"error", apperror.New(apperror.CodeInvalidBookMessage, apperror.WithCause(err)),
		"size", len(data))
}
