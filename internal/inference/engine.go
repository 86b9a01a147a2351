// Package inference turns a fusion result into severity-tagged conclusions by
// running an ordered set of rules.
package inference

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

const (
	// FireTTL suppresses a rule that already fired within this window.
	FireTTL = 4 * time.Hour
	// MaxCritical caps CRITICAL results per pass.
	MaxCritical = 2
)

// Rule outcome labels for the rule_evaluations_total metric.
const (
	outcomeFired      = "fired"
	outcomeEmpty      = "empty"
	outcomeTTL        = "ttl"
	outcomeClaimed    = "claimed"
	outcomeSuppressed = "suppressed"
	outcomeError      = "error"
)

// Engine evaluates rules in priority order against one fusion result.
type Engine struct {
	rules   []Rule
	fires   *FireLog
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an inference Engine. Rules are ordered by priority, then
// id. A nil FireLog gets a fresh one backed by real time.
func NewEngine(rules []Rule, fires *FireLog, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() < sorted[j].Priority()
		}
		return sorted[i].ID() < sorted[j].ID()
	})
	if fires == nil {
		fires = NewFireLog(nil)
	}
	return &Engine{rules: sorted, fires: fires, logger: logger, metrics: metrics}
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs one inference pass. A rule is skipped when it fired within
// FireTTL or when a higher-priority rule already claimed its primary entity.
// Once MaxCritical CRITICAL results exist, further CRITICAL results are
// dropped without recording the rule as fired. Rule errors and panics are
// logged and never abort the pass. Results are ordered by severity, then
// confidence descending.
func (e *Engine) Evaluate(f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) []domain.InferenceResult {
	results, _ := e.EvaluateDetailed(f, ictx, g)
	return results
}

// EvaluateDetailed is Evaluate that also returns the CRITICAL results
// dropped by the cap, in rule order. Suppressed results are normalized but
// neither recorded in the fire log nor claim their primary entity.
func (e *Engine) EvaluateDetailed(f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) (results, suppressed []domain.InferenceResult) {
	claimed := make(map[string]string)
	critical := 0
	results = []domain.InferenceResult{}

	for _, r := range e.rules {
		id := r.ID()
		if e.fires.FiredWithin(id, FireTTL) {
			e.count(id, outcomeTTL)
			continue
		}
		primary := r.PrimaryEntityID()
		if owner, ok := claimed[primary]; primary != "" && ok {
			e.logger.Debug("rule skipped, primary entity claimed", "rule_id", id, "entity_id", primary, "claimed_by", owner)
			e.count(id, outcomeClaimed)
			continue
		}

		res, err := safeEvaluate(r, f, ictx, g)
		if err != nil {
			e.logger.Warn("rule evaluation failed", "rule_id", id, "error", err)
			e.count(id, outcomeError)
			continue
		}
		if res == nil {
			e.count(id, outcomeEmpty)
			continue
		}
		normalize(res, id)
		if res.Severity == domain.SeverityCritical {
			if critical >= MaxCritical {
				e.logger.Info("critical result suppressed, cap reached", "rule_id", id, "cap", MaxCritical)
				e.count(id, outcomeSuppressed)
				suppressed = append(suppressed, *res)
				continue
			}
			critical++
		}

		e.fires.Record(id)
		if primary != "" {
			claimed[primary] = id
		}
		e.count(id, outcomeFired)
		results = append(results, *res)
	}

	SortResults(results)
	return results, suppressed
}

// SortResults orders results by severity rank, then confidence descending.
func SortResults(results []domain.InferenceResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Severity.Rank(), results[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return results[i].Confidence > results[j].Confidence
	})
}

func safeEvaluate(r Rule, f domain.FusionResult, ictx domain.InferenceContext, g *graph.Graph) (res *domain.InferenceResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("rule %s panicked: %v", r.ID(), p)
		}
	}()
	return r.Evaluate(f, ictx, g)
}

func normalize(res *domain.InferenceResult, ruleID string) {
	if res.RuleID == "" {
		res.RuleID = ruleID
	}
	res.Confidence = domain.ClampUnit(res.Confidence)
	if res.AffectedEntityIDs == nil {
		res.AffectedEntityIDs = []string{}
	}
	if res.TriggerSignals == nil {
		res.TriggerSignals = []string{}
	}
}

func (e *Engine) count(ruleID, outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RuleEvaluations.WithLabelValues(ruleID, outcome).Inc()
}
