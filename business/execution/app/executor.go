package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage/business/execution/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

const (
	tracerName = "execution.executor"
	meterName  = "execution"

	defaultLegTimeout = 5 * time.Second

	unwindAttempts   = 3
	unwindRetryDelay = 500 * time.Millisecond
)

// ExecutorConfig holds configuration for the Executor.
type ExecutorConfig struct {
	// LegTimeout bounds each order request.
	LegTimeout time.Duration
	// UnwindOnPartial reverses the filled leg when the other leg of an open fails.
	UnwindOnPartial bool
}

// Executor places both legs of a position concurrently, one per venue.
// It satisfies the arbitrage engine's execution port.
type Executor struct {
	venueA Venue
	venueB Venue
	config ExecutorConfig
	logger logger.LoggerInterface

	tracer  trace.Tracer
	orders  metric.Int64Counter
	unwinds metric.Int64Counter
	latency metric.Float64Histogram
}

// NewExecutor creates an Executor over venue A and venue B.
func NewExecutor(venueA, venueB Venue, cfg ExecutorConfig, log logger.LoggerInterface) (*Executor, error) {
	if cfg.LegTimeout <= 0 {
		cfg.LegTimeout = defaultLegTimeout
	}

	e := &Executor{
		venueA: venueA,
		venueB: venueB,
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	meter := otel.Meter(meterName)
	var err error
	e.orders, err = meter.Int64Counter(
		"execution_orders_total",
		metric.WithDescription("Orders sent per venue, action and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	e.unwinds, err = meter.Int64Counter(
		"execution_unwinds_total",
		metric.WithDescription("Filled legs reversed after the paired leg failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	e.latency, err = meter.Float64Histogram(
		"execution_leg_duration_seconds",
		metric.WithDescription("Order round-trip time per venue"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

type legResult struct {
	fill domain.Fill
	err  error
}

// OpenPosition opens both legs of dir. If exactly one leg fills, the filled
// leg is reversed (when configured) and a CodePartialFill error is returned.
func (e *Executor) OpenPosition(ctx context.Context, dir arbDomain.Direction, size, priceA, priceB decimal.Decimal) error {
	ctx, span := e.tracer.Start(ctx, "execution.open", trace.WithAttributes(
		attribute.String("direction", string(dir)),
		attribute.String("size", size.String()),
	))
	defer span.End()

	legA, legB := domain.OpenLegs(dir, size, priceA, priceB)
	resA, resB := e.placeBoth(ctx, legA, legB)

	err := e.settle(ctx, "open", resA, resB, legA, legB, e.config.UnwindOnPartial)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ClosePosition reduces both legs of dir by size. A one-sided close is
// reported as CodePartialFill and never reversed.
func (e *Executor) ClosePosition(ctx context.Context, dir arbDomain.Direction, size, priceA, priceB decimal.Decimal) error {
	ctx, span := e.tracer.Start(ctx, "execution.close", trace.WithAttributes(
		attribute.String("direction", string(dir)),
		attribute.String("size", size.String()),
	))
	defer span.End()

	legA, legB := domain.CloseLegs(dir, size, priceA, priceB)
	resA, resB := e.placeBoth(ctx, legA, legB)

	err := e.settle(ctx, "close", resA, resB, legA, legB, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// AccountBalance returns venue A's available balance, the venue whose leg the
// liquidation and stop-loss levels are computed for.
func (e *Executor) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.LegTimeout)
	defer cancel()

	balance, err := e.venueA.AvailableBalance(ctx)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithContext(e.venueA.Name()), apperror.WithCause(err))
	}
	return balance, nil
}

// SetLeverage sets leverage on both venues.
func (e *Executor) SetLeverage(ctx context.Context, leverage int) error {
	var g errgroup.Group
	for _, v := range []Venue{e.venueA, e.venueB} {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, e.config.LegTimeout)
			defer cancel()
			if err := v.SetLeverage(ctx, leverage); err != nil {
				return apperror.New(apperror.CodeLeverageSetupFailed,
					apperror.WithContext(v.Name()), apperror.WithCause(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// placeBoth sends both orders at the same time and waits for both answers.
// A failing leg does not cancel the other: the caller needs both outcomes.
func (e *Executor) placeBoth(ctx context.Context, legA, legB domain.Leg) (legResult, legResult) {
	var resA, resB legResult
	var g errgroup.Group

	g.Go(func() error {
		resA.fill, resA.err = e.place(ctx, e.venueA, legA)
		return nil
	})
	g.Go(func() error {
		resB.fill, resB.err = e.place(ctx, e.venueB, legB)
		return nil
	})
	_ = g.Wait()

	return resA, resB
}

func (e *Executor) place(ctx context.Context, venue Venue, leg domain.Leg) (domain.Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.LegTimeout)
	defer cancel()

	start := time.Now()
	fill, err := venue.PlaceOrder(ctx, leg)

	result := "filled"
	if err != nil {
		result = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("venue", venue.Name()),
		attribute.String("action", string(leg.Action)),
		attribute.String("result", result),
	)
	e.orders.Add(ctx, 1, attrs)
	e.latency.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		e.logger.Warn(ctx, "order leg failed",
			"venue", venue.Name(),
			"action", leg.Action,
			"side", leg.Side(),
			"size", leg.Size.String(),
			"error", err,
		)
		return domain.Fill{}, err
	}

	e.logger.Info(ctx, "order leg filled",
		"venue", venue.Name(),
		"order_id", fill.OrderID,
		"action", leg.Action,
		"side", leg.Side(),
		"size", leg.Size.String(),
	)
	return fill, nil
}

func (e *Executor) settle(ctx context.Context, action string, resA, resB legResult, legA, legB domain.Leg, unwind bool) error {
	switch {
	case resA.err == nil && resB.err == nil:
		return nil

	case resA.err != nil && resB.err != nil:
		return apperror.New(apperror.CodeLegFailed,
			apperror.WithContext(action+" both legs"),
			apperror.WithCause(errors.Join(
				fmt.Errorf("%s: %w", e.venueA.Name(), resA.err),
				fmt.Errorf("%s: %w", e.venueB.Name(), resB.err),
			)))
	}

	filledVenue, filledLeg, failedVenue, failErr := e.venueA, legA, e.venueB, resB.err
	if resA.err != nil {
		filledVenue, filledLeg, failedVenue, failErr = e.venueB, legB, e.venueA, resA.err
	}

	e.logger.Error(ctx, "one-sided "+action,
		"filled_venue", filledVenue.Name(),
		"failed_venue", failedVenue.Name(),
		"error", failErr,
	)

	if unwind {
		e.unwind(ctx, filledVenue, filledLeg)
	}

	return apperror.New(apperror.CodePartialFill,
		apperror.WithContext(fmt.Sprintf("%s filled on %s, failed on %s", action, filledVenue.Name(), failedVenue.Name())),
		apperror.WithCause(failErr))
}

// unwind reverses a filled opening leg, retrying transient failures. Final
// failures are logged only: the position stays flat either way and the
// operator has to check the venue.
func (e *Executor) unwind(ctx context.Context, venue Venue, leg domain.Leg) {
	// The decision context may already be done; the reversal must still go out.
	ctx = context.WithoutCancel(ctx)

	reverse := leg.Reverse()
	var err error
	for attempt := 1; attempt <= unwindAttempts; attempt++ {
		if _, err = e.place(ctx, venue, reverse); err == nil || !apperror.IsTransient(err) {
			break
		}
		if attempt < unwindAttempts {
			e.logger.Warn(ctx, "unwind attempt failed, retrying",
				"venue", venue.Name(),
				"attempt", attempt,
				"error", err,
			)
			time.Sleep(unwindRetryDelay)
		}
	}

	result := "ok"
	if err != nil {
		result = "failed"
		e.logger.Error(ctx, "unwind failed, manual intervention required",
			"venue", venue.Name(),
			"side", reverse.Side(),
			"size", reverse.Size.String(),
			"error", err,
		)
	}
	e.unwinds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", venue.Name()),
		attribute.String("result", result),
	))
}
