package briefing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

type fetchResult struct {
	signals []domain.NormalizedSignal
	err     error
}

// gather fetches every source concurrently. A failing, panicking or slow
// source contributes no signals and one stale warning; it never affects the
// others. Signals keep source registration order.
func (o *Orchestrator) gather(ctx context.Context) ([]domain.NormalizedSignal, []string) {
	results := make([]fetchResult, len(o.sources))

	var g errgroup.Group
	for i, src := range o.sources {
		g.Go(func() error {
			sigs, err := o.fetch(ctx, src)
			results[i] = fetchResult{signals: sigs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var signals []domain.NormalizedSignal
	warnings := []string{}
	for i, r := range results {
		name := o.sources[i].Name()
		if r.err != nil {
			o.logger.Warn("source failed, continuing without it", "source", name, "error", r.err)
			warnings = append(warnings, fmt.Sprintf("%s unavailable: %v", name, r.err))
			continue
		}
		signals = append(signals, r.signals...)
	}
	return signals, warnings
}

func (o *Orchestrator) fetch(ctx context.Context, src Source) ([]domain.NormalizedSignal, error) {
	timeout := o.sourceTimeout
	if ts, ok := src.(TimeoutSource); ok && ts.Timeout() > 0 {
		timeout = ts.Timeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{err: fmt.Errorf("source panicked: %v", p)}
			}
		}()
		sigs, err := src.Fetch(ctx)
		done <- fetchResult{signals: sigs, err: err}
	}()

	var r fetchResult
	select {
	case r = <-done:
	case <-ctx.Done():
		r = fetchResult{err: fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())}
	}

	outcome := "success"
	if r.err != nil {
		outcome = "error"
	}
	if o.metrics != nil {
		o.metrics.SourceFetches.WithLabelValues(src.Name(), outcome).Inc()
		o.metrics.SourceFetchDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
		if r.err == nil {
			o.metrics.SignalsCollected.Add(float64(len(r.signals)))
		}
	}
	return r.signals, r.err
}
