// Package app contains the port definitions for the market context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/perp-arbitrage/business/market/domain"
)

// SnapshotHandler receives every valid snapshot a feed produces, in arrival order.
type SnapshotHandler func(snap domain.BookSnapshot)

// Feed is a live top-of-book stream from one venue.
type Feed interface {
	// Venue identifies the venue behind the feed.
	Venue() domain.Venue

	// Connect starts the connection loop in the background. The loop reconnects
	// after every failure until Close is called or ctx is cancelled.
	Connect(ctx context.Context) error

	// OnSnapshot registers the consumer. It may be called while connected;
	// snapshots produced before registration are dropped.
	OnSnapshot(handler SnapshotHandler)

	// IsConnected reports whether a connection is currently open.
	IsConnected() bool

	// LastFrameAt is when the venue last sent anything, heartbeats included.
	LastFrameAt() time.Time

	// Close stops the connection loop and waits for it to exit.
	Close() error
}
