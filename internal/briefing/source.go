package briefing

import (
	"context"
	"time"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// Source is a normalizer: it fetches provider data and maps it to
// normalized signals. Implementations should honor ctx cancellation, but the
// orchestrator abandons a source that overruns its timeout either way.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.NormalizedSignal, error)
}

// TimeoutSource is implemented by sources that need a timeout other than
// the orchestrator default.
type TimeoutSource interface {
	Source
	Timeout() time.Duration
}

// FetchFunc is the body of a SourceFunc.
type FetchFunc func(ctx context.Context) ([]domain.NormalizedSignal, error)

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc struct {
	name    string
	timeout time.Duration
	fetch   FetchFunc
}

// NewSourceFunc creates a named source. A zero timeout uses the
// orchestrator default.
func NewSourceFunc(name string, timeout time.Duration, fn FetchFunc) *SourceFunc {
	return &SourceFunc{name: name, timeout: timeout, fetch: fn}
}

func (s *SourceFunc) Name() string { return s.name }

func (s *SourceFunc) Timeout() time.Duration { return s.timeout }

func (s *SourceFunc) Fetch(ctx context.Context) ([]domain.NormalizedSignal, error) {
	return s.fetch(ctx)
}

// StaticSource always returns the same signals. It backs the one-shot CLI
// and tests.
func StaticSource(name string, signals []domain.NormalizedSignal) *SourceFunc {
	return NewSourceFunc(name, 0, func(context.Context) ([]domain.NormalizedSignal, error) {
		return signals, nil
	})
}
