// Package app contains the trade journal service.
package app

import (
	"context"
	"errors"
	"sync"

	arbDomain "github.com/fd1az/perp-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage/business/journal/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/logger"
)

// Sink stores journal entries somewhere outside the process.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry domain.Entry) error
	Close() error
}

// Journal fans trade events out to every configured sink. A failing sink
// does not stop the others.
type Journal struct {
	logger logger.LoggerInterface

	mu    sync.RWMutex
	sinks []Sink
}

// NewJournal creates a Journal with the given sinks.
func NewJournal(log logger.LoggerInterface, sinks ...Sink) *Journal {
	return &Journal{logger: log, sinks: sinks}
}

// Add registers another sink.
func (j *Journal) Add(sink Sink) {
	j.mu.Lock()
	j.sinks = append(j.sinks, sink)
	j.mu.Unlock()
}

// Enabled reports whether at least one sink is configured.
func (j *Journal) Enabled() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.sinks) > 0
}

// Record writes event to all sinks.
func (j *Journal) Record(ctx context.Context, event arbDomain.TradeEvent) error {
	j.mu.RLock()
	sinks := j.sinks
	j.mu.RUnlock()

	entry := domain.FromEvent(event)

	var errs []error
	for _, sink := range sinks {
		if err := sink.Write(ctx, entry); err != nil {
			errs = append(errs, apperror.New(apperror.CodeJournalWriteFailed,
				apperror.WithContext(sink.Name()), apperror.WithCause(err)))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (j *Journal) Close() error {
	j.mu.Lock()
	sinks := j.sinks
	j.sinks = nil
	j.mu.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(sinks) > 0 {
		j.logger.Info(context.Background(), "trade journal closed", "sinks", len(sinks))
	}
	return errors.Join(errs...)
}
