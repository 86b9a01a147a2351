package inference

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// RuleSystemicCrisis is the rule id of a synthesized systemic result.
const RuleSystemicCrisis = "systemic_crisis"

const systemicMinCritical = 3

// SynthesizeSystemic collapses three or more CRITICAL results into a single
// systemic_crisis CRITICAL result that carries the union of their entities
// and triggers and the highest confidence. Non-critical results pass
// through unchanged. With fewer than three CRITICAL results the input is
// returned as is.
//
// Evaluate caps CRITICAL output at MaxCritical, so callers pass its results
// together with the suppressed ones from EvaluateDetailed. The output then
// holds a single CRITICAL result.
func SynthesizeSystemic(results []domain.InferenceResult) []domain.InferenceResult {
	var critical, rest []domain.InferenceResult
	for _, r := range results {
		if r.Severity == domain.SeverityCritical {
			critical = append(critical, r)
		} else {
			rest = append(rest, r)
		}
	}
	if len(critical) < systemicMinCritical {
		return results
	}

	meta := domain.InferenceResult{
		RuleID:            RuleSystemicCrisis,
		Severity:          domain.SeverityCritical,
		Title:             "Systemic crisis",
		AffectedEntityIDs: []string{},
		TriggerSignals:    []string{},
		SuggestedAction:   "Move to defensive positioning across books; escalate to the risk committee.",
	}
	titles := make([]string, 0, len(critical))
	for _, r := range critical {
		titles = append(titles, r.Title)
		meta.Confidence = math.Max(meta.Confidence, r.Confidence)
		for _, id := range r.AffectedEntityIDs {
			meta.AffectedEntityIDs = appendUnique(meta.AffectedEntityIDs, id)
		}
		for _, id := range r.TriggerSignals {
			meta.TriggerSignals = appendUnique(meta.TriggerSignals, id)
		}
	}
	meta.Summary = fmt.Sprintf("%d simultaneous critical conditions: %s.", len(critical), strings.Join(titles, "; "))

	out := append([]domain.InferenceResult{meta}, rest...)
	SortResults(out)
	return out
}
