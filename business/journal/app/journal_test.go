package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage/business/journal/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
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

type fakeSink struct {
	name     string
	err      error
	entries  []domain.Entry
	closed   bool
	closeErr error
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(ctx context.Context, entry domain.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return s.closeErr
}

func TestJournal_RecordFansOut(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	j := NewJournal(&mockLogger{}, a)
	j.Add(b)

	if !j.Enabled() {
		t.Fatal("journal with sinks must be enabled")
	}

	event := arbDomain.TradeEvent{ID: "evt-1", Kind: arbDomain.TradeOpened, Size: decimal.NewFromInt(1)}
	if err := j.Record(context.Background(), event); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	for _, s := range []*fakeSink{a, b} {
		if len(s.entries) != 1 || s.entries[0].ID != "evt-1" {
			t.Errorf("sink %s got %+v", s.name, s.entries)
		}
	}
}

func TestJournal_FailingSinkDoesNotStopOthers(t *testing.T) {
	broken := &fakeSink{name: "redis", err: errors.New("connection refused")}
	ok := &fakeSink{name: "postgres"}
	j := NewJournal(&mockLogger{}, broken, ok)

	err := j.Record(context.Background(), arbDomain.TradeEvent{ID: "evt-2", Kind: arbDomain.TradeClosed})
	if err == nil {
		t.Fatal("expected error from broken sink")
	}
	if apperror.GetCode(err) != apperror.CodeJournalWriteFailed {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeJournalWriteFailed)
	}
	if len(ok.entries) != 1 {
		t.Error("healthy sink must still receive the entry")
	}
}

func TestJournal_EmptyIsDisabled(t *testing.T) {
	j := NewJournal(&mockLogger{})
	if j.Enabled() {
		t.Error("journal without sinks must be disabled")
	}
	if err := j.Record(context.Background(), arbDomain.TradeEvent{}); err != nil {
		t.Errorf("Record on empty journal: %v", err)
	}
}

func TestJournal_CloseClosesAllSinks(t *testing.T) {
	a := &fakeSink{name: "a", closeErr: errors.New("boom")}
	b := &fakeSink{name: "b"}
	j := NewJournal(&mockLogger{}, a, b)

	if err := j.Close(); err == nil {
		t.Error("expected close error to be returned")
	}
	if !a.closed || !b.closed {
		t.Error("all sinks must be closed")
	}
	if j.Enabled() {
		t.Error("closed journal must be disabled")
	}
}
