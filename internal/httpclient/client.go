package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "httpclient"

	defaultRequestTimeout        = 10 * time.Second
	defaultDialKeepAlive         = 30 * time.Second
	defaultMaxConnsPerHost       = 4
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond
)

// Client builds requests against one venue.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

type instrumentedClient struct {
	http    *http.Client
	venue   string
	baseURL string
	headers map[string]string

	tracer      trace.Tracer
	traceBodies bool
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewInstrumentedClient creates a client whose transport is traced with
// otelhttp and whose requests are counted and timed per venue and endpoint.
// Connections to the venue are kept warm; order latency matters more than
// socket count.
func NewInstrumentedClient(opts ...ClientOption) (Client, error) {
	options := newClientOptions(opts...)

	transport := options.roundTripper
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   defaultMaxConnsPerHost,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	timeout := options.requestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	venue := options.venue
	if venue == "" {
		venue = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(instrumentationName)

	requests, err := meter.Int64Counter(
		"venue_http_requests_total",
		metric.WithDescription("REST requests per venue, endpoint and outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"venue_http_request_duration_seconds",
		metric.WithDescription("REST round-trip time per venue and endpoint"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &instrumentedClient{
		http: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				}),
			),
		},
		venue:       venue,
		baseURL:     options.baseURL,
		headers:     options.headers,
		tracer:      tracer,
		traceBodies: options.traceBodies,
		requests:    requests,
		duration:    duration,
	}, nil
}

func (c *instrumentedClient) NewRequest(opts ...RequestOption) Request {
	options := &RequestOptions{}
	for _, o := range opts {
		o(options)
	}

	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}

	return &request{
		client:  c,
		options: options,
		headers: headers,
	}
}
