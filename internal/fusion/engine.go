// Package fusion combines normalized signals into per-entity aggregates and a
// global risk level. Fusion is synchronous, single-pass and deterministic for a
// given input and clock reading.
package fusion

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/jonboulle/clockwork"
)

const (
	// HalfLife is the age at which a signal retains half its strength.
	HalfLife = 6 * time.Hour

	propagationMinWeight = 0.45
	propagationFactor    = 0.6

	maxWeight = 0.6
	avgWeight = 0.4

	convergenceMinSources = 3
	convergenceStep       = 0.25
	convergenceCap        = 2.0

	crossValidationPerPair = 0.12
	crossValidationCap     = 15.0

	weakSignalCeiling = 25.0
	weakSignalMinSum  = 60.0
	weakSignalMinimum = 3
	weakSignalFloor   = 0.9 * weakSignalMinSum

	dominanceRatio = 1.4

	globalRiskTopN = 8
	maxDominant    = 3
)

var propagationEdges = []domain.EdgeType{
	domain.EdgeAffects,
	domain.EdgeBelongsToSector,
	domain.EdgeSupplyChainDependency,
}

// Engine fuses signals against an immutable entity graph.
type Engine struct {
	graph  *graph.Graph
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewEngine creates a fusion Engine. A nil graph disables propagation and
// convergence-zone detection; a nil clock uses real time.
func NewEngine(g *graph.Graph, clock clockwork.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{graph: g, clock: clock, logger: logger}
}

// Decay applies exponential half-life decay to strength for a signal of the
// given age. Negative ages (timestamps in the future) are treated as zero.
func Decay(strength float64, age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return strength * math.Pow(0.5, float64(age)/float64(HalfLife))
}

// Fuse runs decay, one-hop propagation, per-entity aggregation and global
// risk scoring over a batch of signals.
func (e *Engine) Fuse(signals []domain.NormalizedSignal) domain.FusionResult {
	now := e.clock.Now()
	b := newBuckets()

	for _, raw := range signals {
		s := raw.Clamped()
		s.Strength = domain.ClampStrength(Decay(s.Strength, now.Sub(s.Timestamp)))

		targets := uniqueIDs(s.AffectedEntityIDs)
		if len(targets) == 0 {
			e.logger.Debug("signal has no affected entities, skipping", "signal_id", s.ID, "source", s.Source)
			continue
		}
		direct := make(map[string]bool, len(targets))
		for _, id := range targets {
			direct[id] = true
			b.add(id, s)
		}
		for _, p := range e.propagate(s, targets, direct) {
			b.add(p.AffectedEntityIDs[0], p)
		}
	}

	fused := make([]domain.FusedEntitySignal, 0, len(b.order))
	for _, id := range b.order {
		fused = append(fused, fuseEntity(id, b.signals[id]))
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusedStrength != fused[j].FusedStrength {
			return fused[i].FusedStrength > fused[j].FusedStrength
		}
		return fused[i].EntityID < fused[j].EntityID
	})

	return domain.FusionResult{
		Timestamp:              now,
		EntitySignals:          fused,
		GlobalRiskLevel:        GlobalRisk(fused),
		ActiveConvergenceZones: e.convergenceZones(fused),
	}
}

// propagate synthesizes one copy of s for every one-hop neighbor of its direct
// targets that the signal does not already target. When two targets reach the
// same neighbor, the stronger copy wins.
func (e *Engine) propagate(s domain.NormalizedSignal, targets []string, direct map[string]bool) []domain.NormalizedSignal {
	if e.graph == nil {
		return nil
	}
	best := make(map[string]domain.NormalizedSignal)
	for _, id := range targets {
		for _, r := range e.graph.Traverse(id, propagationEdges, 1, propagationMinWeight) {
			if direct[r.EntityID] {
				continue
			}
			cp := s
			cp.ID = s.ID + "@" + r.EntityID
			cp.Strength = domain.ClampStrength(s.Strength * r.Weight * propagationFactor)
			cp.AffectedEntityIDs = []string{r.EntityID}
			cp.PropagatedFrom = id
			if prev, ok := best[r.EntityID]; !ok || cp.Strength > prev.Strength {
				best[r.EntityID] = cp
			}
		}
	}

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.NormalizedSignal, 0, len(ids))
	for _, id := range ids {
		out = append(out, best[id])
	}
	return out
}

func (e *Engine) convergenceZones(fused []domain.FusedEntitySignal) []string {
	zones := []string{}
	if e.graph == nil {
		return zones
	}
	for _, f := range fused {
		if f.ConvergenceMultiplier <= 1 {
			continue
		}
		if ent, ok := e.graph.Entity(f.EntityID); ok && ent.Type == domain.EntityRegion {
			zones = append(zones, f.EntityID)
		}
	}
	return zones
}

// GlobalRisk is the rank-weighted average of the top eight fused strengths,
// with weights 8, 7, …, 1. Input must be sorted by fused strength descending.
func GlobalRisk(sorted []domain.FusedEntitySignal) float64 {
	var num, den float64
	for i, f := range sorted {
		if i >= globalRiskTopN {
			break
		}
		w := float64(globalRiskTopN - i)
		num += w * f.FusedStrength
		den += w
	}
	if den == 0 {
		return 0
	}
	return domain.ClampStrength(num / den)
}

// buckets keeps per-entity signal lists in first-seen order.
type buckets struct {
	signals map[string][]domain.NormalizedSignal
	order   []string
}

func newBuckets() *buckets {
	return &buckets{signals: make(map[string][]domain.NormalizedSignal)}
}

func (b *buckets) add(id string, s domain.NormalizedSignal) {
	if _, ok := b.signals[id]; !ok {
		b.order = append(b.order, id)
	}
	b.signals[id] = append(b.signals[id], s)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
