package fusion

import (
	"math"
	"sort"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// fuseEntity aggregates every signal attached to one entity.
func fuseEntity(id string, signals []domain.NormalizedSignal) domain.FusedEntitySignal {
	deduped := DedupBySource(signals)

	fused := BaseStrength(deduped)
	mult := ConvergenceMultiplier(len(deduped))
	fused *= mult
	fused += CrossValidationBonus(fused, deduped)
	if weakSignalsAccumulate(deduped) {
		fused = math.Max(fused, weakSignalFloor)
	}
	fused = domain.ClampStrength(fused)

	dir, dominant := VoteDirection(deduped)

	return domain.FusedEntitySignal{
		EntityID:              id,
		ContributingSignals:   signals,
		FusedStrength:         fused,
		FusedDirection:        dir,
		DirectionDominant:     dominant,
		ConvergenceMultiplier: mult,
		SignalCount:           len(signals),
		DominantSources:       dominantSources(deduped),
	}
}

// DedupBySource keeps the strongest signal per source, preserving the order
// in which sources first appeared. Equal strengths keep the earlier signal.
func DedupBySource(signals []domain.NormalizedSignal) []domain.NormalizedSignal {
	idx := make(map[domain.SignalSource]int)
	var out []domain.NormalizedSignal
	for _, s := range signals {
		i, ok := idx[s.Source]
		if !ok {
			idx[s.Source] = len(out)
			out = append(out, s)
			continue
		}
		if s.Strength > out[i].Strength {
			out[i] = s
		}
	}
	return out
}

// BaseStrength is 0.6×max + 0.4×mean over the given strengths.
func BaseStrength(signals []domain.NormalizedSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	var maxS, sum float64
	for _, s := range signals {
		maxS = math.Max(maxS, s.Strength)
		sum += s.Strength
	}
	return maxWeight*maxS + avgWeight*sum/float64(len(signals))
}

// ConvergenceMultiplier amplifies entities confirmed by three or more
// independent sources: min(2.0, 1 + (n−2)×0.25).
func ConvergenceMultiplier(sources int) float64 {
	if sources < convergenceMinSources {
		return 1
	}
	return math.Min(convergenceCap, 1+float64(sources-2)*convergenceStep)
}

// CrossValidationBonus rewards agreement across source categories. Each
// distinct pair of present categories adds 0.12 to the boost; the bonus is
// fused×boost, capped at +15.
func CrossValidationBonus(fused float64, signals []domain.NormalizedSignal) float64 {
	present := make(map[domain.SourceCategory]bool)
	for _, s := range signals {
		present[s.Source.Category()] = true
	}
	k := len(present)
	pairs := k * (k - 1) / 2
	boost := float64(pairs) * crossValidationPerPair
	return math.Min(crossValidationCap, fused*boost)
}

// weakSignalsAccumulate reports whether at least three individually weak
// signals add up to something worth attention.
func weakSignalsAccumulate(signals []domain.NormalizedSignal) bool {
	var n int
	var sum float64
	for _, s := range signals {
		if s.Strength < weakSignalCeiling {
			n++
			sum += s.Strength
		}
	}
	return n >= weakSignalMinimum && sum >= weakSignalMinSum
}

// VoteDirection tallies strength×confidence per direction. The first
// direction (in order of appearance) with the highest tally wins; it is
// dominant when it beats the runner-up by at least 40%.
func VoteDirection(signals []domain.NormalizedSignal) (domain.Direction, bool) {
	if len(signals) == 0 {
		return domain.DirectionNeutral, false
	}
	votes := make(map[domain.Direction]float64)
	var order []domain.Direction
	for _, s := range signals {
		if _, ok := votes[s.Direction]; !ok {
			order = append(order, s.Direction)
		}
		votes[s.Direction] += s.Strength * s.Confidence
	}

	top := order[0]
	for _, d := range order[1:] {
		if votes[d] > votes[top] {
			top = d
		}
	}
	var runnerUp float64
	for _, d := range order {
		if d != top && votes[d] > runnerUp {
			runnerUp = votes[d]
		}
	}
	if runnerUp == 0 {
		return top, votes[top] > 0 || len(order) == 1
	}
	return top, votes[top] >= runnerUp*dominanceRatio
}

func dominantSources(deduped []domain.NormalizedSignal) []domain.SignalSource {
	sorted := append([]domain.NormalizedSignal(nil), deduped...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Strength > sorted[j].Strength })
	n := len(sorted)
	if n > maxDominant {
		n = maxDominant
	}
	out := make([]domain.SignalSource, 0, n)
	for _, s := range sorted[:n] {
		out = append(out, s.Source)
	}
	return out
}
