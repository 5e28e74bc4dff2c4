package apm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "", map[string]string{}, false},
		{"single", "x-honeycomb-team=abc", map[string]string{"x-honeycomb-team": "abc"}, false},
		{"multiple", "api-key=k1, x-team = t2", map[string]string{"api-key": "k1", "x-team": "t2"}, false},
		{"value with equals", "auth=Basic a2V5Og==", map[string]string{"auth": "Basic a2V5Og=="}, false},
		{"missing value separator", "novalue", nil, true},
		{"missing key", "=v", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeaders(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestNewTraceProvider_None(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Config{Exporter: NoExporter}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewTraceProvider failed: %v", err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestNewTraceProvider_UnknownExporter(t *testing.T) {
	if _, err := NewTraceProvider(context.Background(), Config{Exporter: "jaeger"}, &mockLogger{}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestNewTraceProvider_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		ServiceName: "perp-arbitrage-test",
		Exporter:    StdoutExporter,
		Writer:      &buf,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewTraceProvider failed: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "execution.open")
	span.End()

	if err := tp.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !strings.Contains(buf.String(), "execution.open") {
		t.Errorf("span not exported, output: %s", buf.String())
	}
}
