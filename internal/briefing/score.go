package briefing

import (
	"math"
	"strings"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

const (
	fusionWeight   = 0.7
	severityWeight = 0.3
	severityCap    = 30.0

	topEntities = 5
	topAssets   = 5
	maxDrivers  = 5
)

// Risk labels from most to least severe.
const (
	LabelCritical = "CRITICAL"
	LabelHigh     = "HIGH"
	LabelElevated = "ELEVATED"
	LabelGuarded  = "GUARDED"
	LabelLow      = "LOW"
)

// SeverityBonus is 20 per CRITICAL, 10 per ELEVATED and 5 per WATCH result.
func SeverityBonus(results []domain.InferenceResult) float64 {
	var bonus float64
	for _, r := range results {
		switch r.Severity {
		case domain.SeverityCritical:
			bonus += 20
		case domain.SeverityElevated:
			bonus += 10
		case domain.SeverityWatch:
			bonus += 5
		}
	}
	return bonus
}

// RiskScore blends global fusion risk with inference severity:
// round(min(100, fusion×0.7 + min(30, bonus)×0.3)).
func RiskScore(fusionRisk float64, results []domain.InferenceResult) int {
	bonus := math.Min(severityCap, SeverityBonus(results))
	score := math.Min(100, fusionRisk*fusionWeight+bonus*severityWeight)
	return int(math.Round(math.Max(0, score)))
}

// RiskLabel maps a score to its label using thresholds 80, 60, 40 and 20.
func RiskLabel(score int) string {
	switch {
	case score >= 80:
		return LabelCritical
	case score >= 60:
		return LabelHigh
	case score >= 40:
		return LabelElevated
	case score >= 20:
		return LabelGuarded
	default:
		return LabelLow
	}
}

// Summarize counts signals per source, results per severity and lists the
// strongest fused entities.
func Summarize(signals []domain.NormalizedSignal, fused domain.FusionResult, results []domain.InferenceResult, g *graph.Graph) domain.SignalSummary {
	summary := domain.SignalSummary{
		Total:       len(signals),
		BySource:    make(map[domain.SignalSource]int),
		BySeverity:  make(map[domain.Severity]int, len(domain.Severities)),
		TopEntities: []domain.EntityStrength{},
	}
	for _, s := range signals {
		summary.BySource[s.Source]++
	}
	for _, sev := range domain.Severities {
		summary.BySeverity[sev] = 0
	}
	for _, r := range results {
		summary.BySeverity[r.Severity]++
	}
	for i, fe := range fused.EntitySignals {
		if i == topEntities {
			break
		}
		summary.TopEntities = append(summary.TopEntities, entityStrength(fe, g))
	}
	return summary
}

// Outlook aggregates fused asset and commodity directions, weighted by
// strength. Drivers are the assets reachable from the strongest fused
// non-asset entity.
func Outlook(fused domain.FusionResult, g *graph.Graph) domain.MarketOutlook {
	out := domain.MarketOutlook{Bias: domain.DirectionNeutral, Assets: []domain.EntityStrength{}}

	votes := make(map[domain.Direction]float64)
	var total float64
	var driverSource string
	for _, fe := range fused.EntitySignals {
		if !isMarketEntity(fe.EntityID, g) {
			if driverSource == "" {
				driverSource = fe.EntityID
			}
			continue
		}
		dir := fe.FusedDirection
		if dir == domain.DirectionAmbiguous || dir == "" {
			dir = domain.DirectionNeutral
		}
		votes[dir] += fe.FusedStrength
		total += fe.FusedStrength
		if len(out.Assets) < topAssets {
			out.Assets = append(out.Assets, entityStrength(fe, g))
		}
	}

	if total > 0 {
		switch {
		case votes[domain.DirectionRiskOff] > votes[domain.DirectionRiskOn] && votes[domain.DirectionRiskOff] > votes[domain.DirectionNeutral]:
			out.Bias = domain.DirectionRiskOff
		case votes[domain.DirectionRiskOn] > votes[domain.DirectionRiskOff] && votes[domain.DirectionRiskOn] > votes[domain.DirectionNeutral]:
			out.Bias = domain.DirectionRiskOn
		}
		out.Confidence = math.Round(votes[out.Bias]/total*100) / 100
	}

	if driverSource != "" && g != nil {
		for _, r := range g.AffectedAssets(driverSource) {
			if len(out.Drivers) == maxDrivers {
				break
			}
			out.Drivers = append(out.Drivers, g.Name(r.EntityID))
		}
	}
	return out
}

func entityStrength(fe domain.FusedEntitySignal, g *graph.Graph) domain.EntityStrength {
	name := fe.EntityID
	if g != nil {
		name = g.Name(fe.EntityID)
	}
	return domain.EntityStrength{
		EntityID:  fe.EntityID,
		Name:      name,
		Strength:  math.Round(fe.FusedStrength*10) / 10,
		Direction: fe.FusedDirection,
	}
}

func isMarketEntity(id string, g *graph.Graph) bool {
	if g != nil {
		if e, ok := g.Entity(id); ok {
			return e.Type == domain.EntityAsset || e.Type == domain.EntityCommodity
		}
	}
	return strings.HasPrefix(id, "asset:") || strings.HasPrefix(id, "commodity:")
}
