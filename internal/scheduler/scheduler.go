// Package scheduler runs the briefing cycle on a fixed interval and hands
// each briefing to a publisher.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

const (
	initialBackoff     = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
	maxPublishAttempts = 6
)

// Generator produces one briefing per call. *briefing.Orchestrator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context) domain.InsightBriefing
}

// Publisher delivers a finished briefing downstream.
type Publisher interface {
	Publish(ctx context.Context, b domain.InsightBriefing) error
}

// Scheduler drives the generate-publish loop.
type Scheduler struct {
	generator Generator
	publisher Publisher
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu     sync.Mutex
	lastID string
	lastAt time.Time
}

// New creates a Scheduler. A nil clock uses real time.
func New(g Generator, p Publisher, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		generator: g,
		publisher: p,
		clock:     clock,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one briefing has been published.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no briefing has been published yet")
	}
	return nil
}

// Ready reports whether a briefing has been published.
func (s *Scheduler) Ready() bool {
	return s.ready.Load()
}

// LastPublished returns the id and publish time of the most recent briefing.
func (s *Scheduler) LastPublished() (string, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID, s.lastAt, s.lastID != ""
}

// Run generates a briefing immediately and then once per interval until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.setRunning(1)
	defer s.setRunning(0)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		default:
		}

		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	b := s.generator.Generate(ctx)
	if ctx.Err() != nil {
		return
	}
	s.publish(ctx, b)
}

// publish retries with exponential backoff: start at 200ms, double each
// retry, cap at 5s. A briefing that still fails is dropped; the next cycle
// produces a fresh one.
func (s *Scheduler) publish(ctx context.Context, b domain.InsightBriefing) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := s.publisher.Publish(ctx, b)
		if err == nil {
			if s.metrics != nil {
				s.metrics.BriefingsPublished.Inc()
			}
			s.mu.Lock()
			s.lastID, s.lastAt = b.ID, s.clock.Now()
			s.mu.Unlock()
			s.ready.Store(true)
			s.logger.Info("briefing published", "briefing_id", b.ID, "attempts", attempt)
			return
		}
		if s.metrics != nil {
			s.metrics.PublishErrors.Inc()
		}
		if ctx.Err() != nil {
			return
		}
		if attempt == maxPublishAttempts {
			s.logger.Error("dropping briefing after repeated publish failures",
				"briefing_id", b.ID, "attempts", attempt, "error", err)
			return
		}
		s.logger.Warn("publish briefing failed, retrying",
			"briefing_id", b.ID, "attempt", attempt, "backoff", backoff, "error", err)
		if !s.sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (s *Scheduler) setRunning(v float64) {
	if s.metrics != nil {
		s.metrics.SchedulerRunning.Set(v)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}
