package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const redacted = "*****"

// Request is a single REST call being built.
type Request interface {
	SetHeader(key, value string) Request
	// SetRawQuery sends query verbatim. Signed endpoints need the exact
	// string that was signed, so nothing re-encodes or reorders it.
	SetRawQuery(query string) Request
	SetBody(body []byte) Request
	Do(ctx context.Context, method, path string) (*Response, error)
}

// Response is a fully read venue answer.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// Body returns the response body.
func (r *Response) Body() []byte {
	return r.body
}

type request struct {
	client   *instrumentedClient
	options  *RequestOptions
	headers  map[string]string
	rawQuery string
	body     []byte
}

func (r *request) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *request) SetRawQuery(query string) Request {
	r.rawQuery = query
	return r
}

func (r *request) SetBody(body []byte) Request {
	r.body = body
	return r
}

// Do sends the request and classifies the answer. A non-nil Response is
// returned whenever the venue answered, even if the answer is an error.
func (r *request) Do(ctx context.Context, method, path string) (*Response, error) {
	endpoint := r.options.endpoint
	if endpoint == "" {
		endpoint = path
	}

	ctx, span := r.client.tracer.Start(ctx, "venue.http "+method+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("venue", r.client.venue),
			attribute.String("http.method", method),
			attribute.String("endpoint", endpoint),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := r.do(ctx, span, method, path)
	r.record(ctx, endpoint, outcome(resp, err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (r *request) do(ctx context.Context, span trace.Span, method, path string) (*Response, error) {
	fullURL := strings.TrimSuffix(r.client.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if r.rawQuery != "" {
		fullURL += "?" + r.rawQuery
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
		if r.client.traceBodies {
			span.AddEvent("request.body", trace.WithAttributes(
				attribute.String("http.request_body", string(r.body))))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	span.AddEvent("request.headers", trace.WithAttributes(r.headerAttrs(req.Header)...))

	httpResp, err := r.client.http.Do(req)
	if err != nil {
		markNetworkError(span, err)
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if r.client.traceBodies {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(data))))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		body:       data,
	}

	classify := r.options.classify
	if classify == nil {
		classify = defaultClassifier
	}
	return resp, classify(resp.StatusCode, data)
}

func defaultClassifier(statusCode int, body []byte) error {
	if statusCode >= 400 {
		return fmt.Errorf("http status %d: %s", statusCode, body)
	}
	return nil
}

func (r *request) headerAttrs(headers http.Header) []attribute.KeyValue {
	hidden := make(map[string]bool, len(r.options.redactHeaders))
	for _, h := range r.options.redactHeaders {
		hidden[http.CanonicalHeaderKey(h)] = true
	}

	attrs := make([]attribute.KeyValue, 0, len(headers))
	for k, values := range headers {
		v := strings.Join(values, ",")
		if hidden[k] {
			v = redacted
		}
		attrs = append(attrs, attribute.String("http.request.header."+strings.ToLower(k), v))
	}
	return attrs
}

func markNetworkError(span trace.Span, err error) {
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
}

// outcome is a bounded label: "ok", "error" for answered failures and
// "network" when the venue never answered.
func outcome(resp *Response, err error) string {
	switch {
	case err == nil:
		return "ok"
	case resp == nil:
		return "network"
	default:
		return "error"
	}
}

func (r *request) record(ctx context.Context, endpoint, result string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("venue", r.client.venue),
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", result),
	)
	r.client.requests.Add(ctx, 1, attrs)
	r.client.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// EncodeQuery encodes params as key=value pairs sorted by key.
func EncodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
