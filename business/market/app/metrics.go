package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/perp-arbitrage/business/market/domain"
)

const meterName = "market"

// FeedMetrics counts what a feed does with inbound frames.
type FeedMetrics struct {
	snapshots   metric.Int64Counter
	parseErrors metric.Int64Counter
	liveness    metric.Int64Counter
	attrs       metric.MeasurementOption
}

// NewFeedMetrics registers the feed counters for venue.
func NewFeedMetrics(venue domain.Venue) (*FeedMetrics, error) {
	meter := otel.Meter(meterName)
	m := &FeedMetrics{
		attrs: metric.WithAttributes(attribute.String("venue", venue.String())),
	}

	var err error
	m.snapshots, err = meter.Int64Counter(
		"market_snapshots_total",
		metric.WithDescription("Valid top-of-book snapshots forwarded"),
	)
	if err != nil {
		return nil, err
	}

	m.parseErrors, err = meter.Int64Counter(
		"market_parse_errors_total",
		metric.WithDescription("Inbound frames dropped as malformed"),
	)
	if err != nil {
		return nil, err
	}

	m.liveness, err = meter.Int64Counter(
		"market_liveness_frames_total",
		metric.WithDescription("Ping/pong text frames handled by the feed"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *FeedMetrics) Snapshot(ctx context.Context) {
	m.snapshots.Add(ctx, 1, m.attrs)
}

func (m *FeedMetrics) ParseError(ctx context.Context) {
	m.parseErrors.Add(ctx, 1, m.attrs)
}

func (m *FeedMetrics) Liveness(ctx context.Context) {
	m.liveness.Add(ctx, 1, m.attrs)
}
