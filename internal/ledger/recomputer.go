package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
)

// Source is the part of the store the Recomputer needs.
type Source interface {
	Subscribe(ctx context.Context) (<-chan storage.Snapshot, func(), error)
}

// Sink receives every freshly built report.
type Sink interface {
	Publish(ctx context.Context, report *Report) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, report *Report) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, report *Report) error {
	return f(ctx, report)
}

// Recomputer rebuilds the report on every store change.
type Recomputer struct {
	source  Source
	roster  *calculator.Roster
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	latest  atomic.Pointer[Report]
	mu      sync.Mutex
	lastErr error
}

// Option configures a Recomputer.
type Option func(*Recomputer)

// WithSinks adds sinks that receive each report.
func WithSinks(sinks ...Sink) Option {
	return func(r *Recomputer) { r.sinks = append(r.sinks, sinks...) }
}

// WithMetrics records recompute results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recomputer) { r.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recomputer) { r.logger = l }
}

// NewRecomputer creates a Recomputer for the given source and roster.
func NewRecomputer(source Source, roster *calculator.Roster, opts ...Option) *Recomputer {
	r := &Recomputer{
		source: source,
		roster: roster,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Latest returns the most recent report, or nil if none has been computed
// yet.
func (r *Recomputer) Latest() *Report {
	return r.latest.Load()
}

// LastError returns the error from the most recent snapshot, or nil if it
// produced a report.
func (r *Recomputer) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Run subscribes to the source and processes snapshots until ctx is done or
// the subscription ends. A snapshot that cannot be built is logged and the
// previous report stays in place.
func (r *Recomputer) Run(ctx context.Context) error {
	updates, cancel, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to store: %w", err)
	}
	defer cancel()

	r.logger.Info("Recompute loop started", "members", r.roster.Len())
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				r.logger.Info("Store subscription closed")
				return nil
			}
			r.process(ctx, &snap)
		}
	}
}

func (r *Recomputer) process(ctx context.Context, snap *storage.Snapshot) {
	start := time.Now()
	report, err := Build(snap, r.roster)
	elapsed := time.Since(start)

	if err != nil {
		var unknown *calculator.UnknownMemberError
		if errors.As(err, &unknown) {
			r.logger.Error("Expense references unknown member",
				"version", snap.Version,
				"expense_id", unknown.RecordID,
				"member", unknown.Member,
				"role", unknown.Role,
			)
		} else {
			r.logger.Error("Recompute failed", "version", snap.Version, "error", err)
		}
		if r.metrics != nil {
			r.metrics.RecomputeFailed(elapsed)
		}
		r.setErr(err)
		return
	}

	r.latest.Store(report)
	if r.metrics != nil {
		r.metrics.RecomputeSucceeded(elapsed, report.Balances.Net(), len(report.Settlement.Transfers), len(report.History))
	}
	r.logger.Debug("Settlement recomputed",
		"version", report.Version,
		"expenses", len(report.History),
		"transfers", len(report.Settlement.Transfers),
		"settled", report.Settlement.Settled,
		"duration_ms", elapsed.Milliseconds(),
	)

	r.setErr(nil)
	r.publish(ctx, report)
}

// publish fans the report out to all sinks concurrently. A failing sink is
// logged and does not affect the others.
func (r *Recomputer) publish(ctx context.Context, report *Report) {
	if len(r.sinks) == 0 {
		return
	}
	var g errgroup.Group
	for _, sink := range r.sinks {
		g.Go(func() error {
			if err := sink.Publish(ctx, report); err != nil {
				r.logger.Warn("Sink failed", "version", report.Version, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Recomputer) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}
