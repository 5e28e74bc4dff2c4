package binance

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fd1az/perp-arbitrage/business/market/app"
	"github.com/fd1az/perp-arbitrage/business/market/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/wsconn"
)

// BaseWSURL is the futures raw-stream endpoint.
const BaseWSURL = "wss://fstream.binance.com/ws"

var (
	pingFrame = []byte("ping")
	pongFrame = []byte("pong")
)

// Ensure Feed implements app.Feed.
var _ app.Feed = (*Feed)(nil)

// Config holds configuration for the Binance feed.
type Config struct {
	BaseURL        string // empty = BaseWSURL
	Symbol         string // e.g. "ETHUSDT"
	ReconnectDelay time.Duration
	ReadTimeout    time.Duration
}

// Feed streams the top of the Binance book.
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

// NewFeed creates a Binance feed. Nothing is dialled until Connect.
func NewFeed(cfg Config, log logger.LoggerInterface) (*Feed, error) {
	if cfg.Symbol == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("binance feed: symbol is required"))
	}

	wsCfg := wsconn.DefaultConfig(StreamURL(cfg.BaseURL, cfg.Symbol), string(domain.VenueBinance))
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

	metrics, err := app.NewFeedMetrics(domain.VenueBinance)
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

	client.OnMessage(f.handleMessage)
	client.OnStateChange(f.handleState)

	return f, nil
}

// StreamURL builds the partial depth stream URL for symbol.
func StreamURL(baseURL, symbol string) string {
	if baseURL == "" {
		baseURL = BaseWSURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.ToLower(symbol) + "@depth5"
}

func (f *Feed) Venue() domain.Venue {
	return domain.VenueBinance
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
				f.logger.Error(ctx, "binance feed stopped", "error", err)
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

func (f *Feed) handleState(state wsconn.State, err error) {
	ctx := context.Background()
	switch state {
	case wsconn.StateConnected:
		f.logger.Info(ctx, "binance feed connected", "symbol", f.config.Symbol)
	case wsconn.StateDisconnected:
		if err != nil {
			f.logger.Warn(ctx, "binance feed disconnected", "error", err)
		}
	case wsconn.StateReconnecting:
		f.logger.Debug(ctx, "binance feed reconnecting", "delay", f.client.ReconnectDelay())
	}
}

func (f *Feed) handleMessage(ctx context.Context, data []byte) {
	if bytes.Equal(bytes.TrimSpace(data), pingFrame) {
		f.metrics.Liveness(ctx)
		if err := f.client.Send(ctx, pongFrame); err != nil {
			f.logger.Warn(ctx, "binance pong failed", "error", err)
		}
		return
	}

	event, err := parseDepthEvent(data)
	if err != nil {
		f.dropMalformed(ctx, data, err)
		return
	}
	if event.EventType != EventTypeDepthUpdate {
		f.logger.Debug(ctx, "binance frame ignored", "event", event.EventType)
		return
	}

	snap, err := domain.NewBookSnapshot(domain.VenueBinance, f.config.Symbol, event.Bids, event.Asks, f.now())
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
	f.logger.Warn(ctx, "binance frame dropped",
		"error", apperror.New(apperror.CodeInvalidBookMessage, apperror.WithCause(err)),
		"size", len(data))
}
