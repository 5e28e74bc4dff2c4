package apperror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("open: %w", New(CodePartialFill, WithContext("open filled on binance, failed on bitget")))

	if !errors.Is(err, New(CodePartialFill)) {
		t.Error("expected errors.Is to match on code")
	}
	if errors.Is(err, New(CodeLegFailed)) {
		t.Error("different codes must not match")
	}
	if GetCode(err) != CodePartialFill {
		t.Errorf("GetCode() = %s", GetCode(err))
	}
	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("plain errors map to CodeUnknownError")
	}
}

func TestNew_MessageFallsBackToCode(t *testing.T) {
	err := New(Code("SOMETHING_NEW"))
	if err.Message != "SOMETHING_NEW" {
		t.Errorf("Message = %q", err.Message)
	}

	err = New(CodeOrderRejected, WithMessage("margin is insufficient"))
	if err.Message != "margin is insufficient" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestError_IncludesContextAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := New(CodeBinanceAPIError, WithContext("/fapi/v1/order"), WithCause(cause))

	want := string(CodeBinanceAPIError) + ": " + messages[CodeBinanceAPIError] + " (/fapi/v1/order): connection reset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("cause must be reachable through Unwrap")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", New(CodeVenueRateLimited), true},
		{"venue 5xx", New(CodeBitgetAPIError), true},
		{"rejection", New(CodeOrderRejected), false},
		{"wrapped rejection with transient cause", New(CodeOrderRejected, WithCause(New(CodeServiceTimeout))), false},
		{"bare deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogValue(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Error("close failed", "error", New(CodeLegFailed, WithContext("close both legs"), WithCause(errors.New("timeout"))))

	var rec struct {
		Error map[string]string `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v\n%s", err, buf.String())
	}

	want := map[string]string{
		"code":    string(CodeLegFailed),
		"message": messages[CodeLegFailed],
		"context": "close both legs",
		"cause":   "timeout",
	}
	for k, v := range want {
		if rec.Error[k] != v {
			t.Errorf("error.%s = %q, want %q", k, rec.Error[k], v)
		}
	}
	if _, ok := rec.Error["stack"]; ok {
		t.Error("stack is reserved for panics")
	}
}
