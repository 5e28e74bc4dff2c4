// Package httpclient provides the instrumented REST client used by the venue
// adapters: OTEL tracing and metrics per venue, signed-query friendly query
// handling and pluggable response classification.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ClientOptions holds configuration for the instrumented HTTP client.
type ClientOptions struct {
	baseURL        string
	venue          string
	headers        map[string]string
	requestTimeout time.Duration
	roundTripper   http.RoundTripper
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	traceBodies    bool
}

// ClientOption configures ClientOptions.
type ClientOption func(*ClientOptions)

func newClientOptions(opts ...ClientOption) *ClientOptions {
	options := &ClientOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithBaseURL sets the URL every request path is joined to.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		o.baseURL = url
	}
}

// WithVenue names the venue in metric attributes and spans.
func WithVenue(name string) ClientOption {
	return func(o *ClientOptions) {
		o.venue = name
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		o.headers = headers
	}
}

// WithRequestTimeout bounds each request end to end.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		o.requestTimeout = timeout
	}
}

// WithRoundTripper replaces the default transport. It is still wrapped by
// otelhttp.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) {
		o.roundTripper = rt
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *ClientOptions) {
		o.meterProvider = mp
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *ClientOptions) {
		o.tracer = tracer
	}
}

// WithBodyTracing records request and response bodies as span events.
// Order bodies carry no secrets; signatures and keys live in headers and
// the query, which are redacted.
func WithBodyTracing(enable bool) ClientOption {
	return func(o *ClientOptions) {
		o.traceBodies = enable
	}
}

// RequestOptions holds per-request configuration.
type RequestOptions struct {
	classify      ResponseClassifier
	endpoint      string
	redactHeaders []string
}

// RequestOption configures a single request.
type RequestOption func(*RequestOptions)

// ResponseClassifier turns a venue answer into an error, or nil when the
// request succeeded. Venues decide: some refuse orders with HTTP 200.
type ResponseClassifier func(statusCode int, body []byte) error

// WithClassifier sets the response classifier. Without one, any status
// >= 400 is an error.
func WithClassifier(classify ResponseClassifier) RequestOption {
	return func(o *RequestOptions) {
		o.classify = classify
	}
}

// WithEndpoint labels the request's metrics with a low-cardinality endpoint
// name, typically the path without query.
func WithEndpoint(endpoint string) RequestOption {
	return func(o *RequestOptions) {
		o.endpoint = endpoint
	}
}

// WithRedactedHeaders masks the named headers in trace events.
func WithRedactedHeaders(names ...string) RequestOption {
	return func(o *RequestOptions) {
		o.redactHeaders = append(o.redactHeaders, names...)
	}
}
