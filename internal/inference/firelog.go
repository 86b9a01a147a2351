package inference

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FireLog remembers when each rule last produced a result. It is owned by
// the caller and shared across passes so TTL dedup survives between
// briefings. Safe for concurrent use.
type FireLog struct {
	mu    sync.Mutex
	clock clockwork.Clock
	fired map[string]time.Time
}

// NewFireLog creates an empty FireLog. A nil clock uses real time.
func NewFireLog(clock clockwork.Clock) *FireLog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FireLog{clock: clock, fired: make(map[string]time.Time)}
}

// FiredWithin reports whether ruleID fired less than ttl ago.
func (l *FireLog) FiredWithin(ruleID string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.fired[ruleID]
	if !ok {
		return false
	}
	return l.clock.Since(at) < ttl
}

// Record marks ruleID as fired now.
func (l *FireLog) Record(ruleID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired[ruleID] = l.clock.Now()
}

// LastFired returns when ruleID last fired.
func (l *FireLog) LastFired(ruleID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.fired[ruleID]
	return at, ok
}

// Reset forgets every recorded firing.
func (l *FireLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired = make(map[string]time.Time)
}
