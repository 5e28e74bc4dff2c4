// Package redis publishes journal entries on a Redis channel and appends
// them to a capped stream.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/perp-arbitrage/business/journal/domain"
)

const (
	// SinkName identifies the sink in errors and logs.
	SinkName = "redis"

	// streamMaxLen caps the stream via XADD MAXLEN ~.
	streamMaxLen int64 = 10000

	defaultChannel = "arbitrage:trades"
	defaultStream  = "arbitrage:trades:log"
)

// Config holds connection and key settings for the Redis sink.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Channel receives every entry via PUBLISH. Empty uses the default.
	Channel string
	// Stream receives every entry via XADD. Empty uses the default.
	Stream string
}

// Bus is a journal sink backed by Redis pub/sub and streams.
type Bus struct {
	rdb     *redis.Client
	channel string
	stream  string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return NewWithClient(rdb, cfg.Channel, cfg.Stream), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, channel, stream string) *Bus {
	if channel == "" {
		channel = defaultChannel
	}
	if stream == "" {
		stream = defaultStream
	}
	return &Bus{rdb: rdb, channel: channel, stream: stream}
}

func (b *Bus) Name() string {
	return SinkName
}

// Write publishes the entry and appends it to the stream in one pipeline.
func (b *Bus) Write(ctx context.Context, entry domain.Entry) error {
	payload, err := entry.Payload()
	if err != nil {
		return fmt.Errorf("redis: encode entry %s: %w", entry.ID, err)
	}

	_, err = b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, b.channel, payload)
		pipe.XAdd(ctx, StreamArgs(b.stream, entry, payload))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: write entry %s: %w", entry.ID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}

// StreamArgs builds the XADD arguments for an entry. The stream is trimmed
// approximately to streamMaxLen.
func StreamArgs(stream string, entry domain.Entry, payload []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"id":          entry.ID,
			"position_id": entry.PositionID,
			"kind":        entry.Kind,
			"payload":     string(payload),
		},
	}
}
