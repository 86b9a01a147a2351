package inference

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

// Entity ids referenced by the built-in rules.
const (
	regionKorea      = "region:korean_peninsula"
	countryDPRK      = "country:KP"
	regionTaiwan     = "region:taiwan_strait"
	regionMiddleEast = "region:middle_east"
	sectorChips      = "sector:semiconductors"
	commodityOil     = "commodity:crude_oil"
	assetVIX         = "asset:VIX"
	assetSPX         = "asset:SPX"
)

// Built-in rule ids.
const (
	RulePeninsulaEscalation = "peninsula_escalation"
	RulePeninsulaWatch      = "peninsula_watch"
	RuleTaiwanStrait        = "taiwan_strait_tension"
	RuleEnergyShock         = "middle_east_energy_shock"
	RuleConvergence         = "multi_source_convergence"
	RuleTailRisk            = "tail_risk_spike"
	RuleVIPAircraft         = "vip_aircraft_movement"
	RuleSemiconductor       = "semiconductor_supply_chain"
	RuleEventCalendar       = "event_calendar_volatility"
	RuleSeismic             = "seismic_infrastructure"
	RuleMarketStress        = "market_stress"
	RuleBaselineCalm        = "baseline_calm"
)

const maxTriggers = 10

var errNoGraph = errors.New("entity graph required")

// DefaultRules returns the built-in rule set for the Korean-peninsula-centric
// seed graph.
func DefaultRules() []Rule {
	return []Rule{
		NewRule(RulePeninsulaEscalation, 10, regionKorea, peninsulaEscalation),
		NewRule(RuleTaiwanStrait, 10, regionTaiwan, taiwanStrait),
		NewRule(RuleEnergyShock, 15, regionMiddleEast, energyShock),
		NewRule(RuleConvergence, 20, "", convergence),
		NewRule(RuleTailRisk, 25, "", tailRisk),
		NewRule(RuleVIPAircraft, 30, "", vipAircraft),
		NewRule(RuleSemiconductor, 30, sectorChips, semiconductor),
		NewRule(RuleEventCalendar, 35, "", eventCalendar),
		NewRule(RulePeninsulaWatch, 40, regionKorea, peninsulaWatch),
		NewRule(RuleSeismic, 45, "", seismic),
		NewRule(RuleMarketStress, 50, "", marketStress),
		NewRule(RuleBaselineCalm, 90, "", baselineCalm),
	}
}

// tier maps a minimum value to a severity. Tiers are checked in order.
type tier struct {
	min      float64
	severity domain.Severity
}

func grade(v float64, tiers ...tier) (domain.Severity, bool) {
	for _, t := range tiers {
		if v >= t.min {
			return t.severity, true
		}
	}
	return "", false
}

func peninsulaEscalation(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	fe, ok := f.Entity(regionKorea)
	if !ok {
		return nil, nil
	}
	sev, ok := grade(fe.FusedStrength, tier{70, domain.SeverityCritical}, tier{50, domain.SeverityElevated})
	if !ok {
		return nil, nil
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Korean peninsula escalation",
		Summary:           fmt.Sprintf("Fused threat on the Korean peninsula at %.0f from %s.", fe.FusedStrength, sourceList(fe)),
		AffectedEntityIDs: append(withAssets(g, regionKorea, 3), conflictParties(g, countryDPRK)...),
		SuggestedAction:   "Reduce KOSPI beta, hedge USD/KRW upside and review defense sector exposure.",
		ExpectedImpact:    impactLine(g, regionKorea),
		HistoricalRef:     "2017 ICBM test cycle: KOSPI sold off and USD/KRW spiked before recovering within weeks.",
		Confidence:        entityConfidence(fe),
		TriggerSignals:    triggerIDs(f, regionKorea),
	}, nil
}

func peninsulaWatch(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	fe, ok := f.Entity(regionKorea)
	if !ok || fe.FusedStrength < 30 {
		return nil, nil
	}
	return &domain.InferenceResult{
		Severity:          domain.SeverityWatch,
		Title:             "Korean peninsula activity",
		Summary:           fmt.Sprintf("Peninsula signals at %.0f, below escalation thresholds.", fe.FusedStrength),
		AffectedEntityIDs: withAssets(g, regionKorea, 2),
		SuggestedAction:   "Monitor KCNA and flight tracking for follow-through before repositioning.",
		Confidence:        entityConfidence(fe),
		TriggerSignals:    triggerIDs(f, regionKorea),
	}, nil
}

func taiwanStrait(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	fe, ok := f.Entity(regionTaiwan)
	if !ok {
		return nil, nil
	}
	sev, ok := grade(fe.FusedStrength, tier{70, domain.SeverityCritical}, tier{50, domain.SeverityElevated})
	if !ok {
		return nil, nil
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Taiwan Strait tension",
		Summary:           fmt.Sprintf("Taiwan Strait fused strength %.0f from %s.", fe.FusedStrength, sourceList(fe)),
		AffectedEntityIDs: withAssets(g, regionTaiwan, 3),
		SuggestedAction:   "Hedge foundry concentration and trim TWII and semiconductor exposure.",
		ExpectedImpact:    impactLine(g, regionTaiwan),
		HistoricalRef:     "August 2022 PLA exercises: TWII and regional chip names underperformed for several sessions.",
		Confidence:        entityConfidence(fe),
		TriggerSignals:    triggerIDs(f, regionTaiwan),
	}, nil
}

func energyShock(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	fe, ok := f.Entity(regionMiddleEast)
	if !ok || fe.FusedStrength < 50 {
		return nil, nil
	}
	oil := f.Strength(commodityOil)
	sev := domain.SeverityWatch
	switch {
	case fe.FusedStrength >= 75 && oil >= 40:
		sev = domain.SeverityCritical
	case fe.FusedStrength >= 60:
		sev = domain.SeverityElevated
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Middle East energy shock risk",
		Summary:           fmt.Sprintf("Middle East fused strength %.0f with crude oil pressure at %.0f.", fe.FusedStrength, oil),
		AffectedEntityIDs: withAssets(g, regionMiddleEast, 3),
		SuggestedAction:   "Add crude and gold hedges; review airline and shipping exposure.",
		ExpectedImpact:    impactLine(g, regionMiddleEast),
		HistoricalRef:     "2019 Abqaiq attack: Brent jumped roughly 15% in one session.",
		Confidence:        entityConfidence(fe),
		TriggerSignals:    triggerIDs(f, regionMiddleEast, commodityOil),
	}, nil
}

func convergence(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	if len(f.ActiveConvergenceZones) == 0 {
		return nil, nil
	}
	var top domain.FusedEntitySignal
	for _, id := range f.ActiveConvergenceZones {
		if fe, ok := f.Entity(id); ok && fe.FusedStrength > top.FusedStrength {
			top = fe
		}
	}
	sev := domain.SeverityWatch
	if top.FusedStrength >= 60 {
		sev = domain.SeverityElevated
	}
	return &domain.InferenceResult{
		Severity: sev,
		Title:    "Multi-source convergence",
		Summary: fmt.Sprintf("Independent sources converge on %s (strength %.0f, multiplier x%.2f).",
			strings.Join(names(g, f.ActiveConvergenceZones), ", "), top.FusedStrength, top.ConvergenceMultiplier),
		AffectedEntityIDs: append([]string(nil), f.ActiveConvergenceZones...),
		SuggestedAction:   "Treat converging regions as confirmed; tighten stops on exposed positions.",
		Confidence:        0.5 + (top.ConvergenceMultiplier-1)*0.4,
		TriggerSignals:    triggerIDs(f, f.ActiveConvergenceZones...),
	}, nil
}

func tailRisk(f domain.FusionResult, ictx domain.InferenceContext, _ *graph.Graph) (*domain.InferenceResult, error) {
	sev, ok := grade(ictx.TailRiskScore, tier{80, domain.SeverityCritical}, tier{60, domain.SeverityElevated})
	if !ok {
		return nil, nil
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Tail-risk spike",
		Summary:           fmt.Sprintf("Tail-risk gauge at %.0f.", ictx.TailRiskScore),
		AffectedEntityIDs: []string{assetVIX, assetSPX},
		SuggestedAction:   "Buy convexity: index puts or VIX calls sized to the drawdown budget.",
		HistoricalRef:     "February 2018 volatility unwind: VIX more than doubled in a day.",
		Confidence:        0.5 + ictx.TailRiskScore/250,
		TriggerSignals:    sourceTriggers(f, domain.SourceTailRisk),
	}, nil
}

func vipAircraft(f domain.FusionResult, ictx domain.InferenceContext, _ *graph.Graph) (*domain.InferenceResult, error) {
	if len(ictx.VIPAircraft) == 0 {
		return nil, nil
	}
	sev := domain.SeverityWatch
	if len(f.ActiveConvergenceZones) > 0 {
		sev = domain.SeverityElevated
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "VIP aircraft movement",
		Summary:           "Tracked VIP flights: " + strings.Join(ictx.VIPAircraft, ", ") + ".",
		AffectedEntityIDs: sourceEntities(f, domain.SourceFlightTracking),
		SuggestedAction:   "Watch for diplomatic or military announcements tied to the flight destinations.",
		Confidence:        0.55,
		TriggerSignals:    sourceTriggers(f, domain.SourceFlightTracking),
	}, nil
}

func semiconductor(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	fe, ok := f.Entity(sectorChips)
	if !ok {
		return nil, nil
	}
	sev, ok := grade(fe.FusedStrength, tier{65, domain.SeverityElevated}, tier{45, domain.SeverityWatch})
	if !ok {
		return nil, nil
	}
	if g == nil {
		return nil, errNoGraph
	}
	affected := []string{sectorChips}
	for _, l := range g.ReverseNeighbors(sectorChips, domain.EdgeBelongsToSector) {
		affected = append(affected, l.To)
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Semiconductor supply chain stress",
		Summary:           fmt.Sprintf("Semiconductor sector pressure at %.0f; exposed names: %s.", fe.FusedStrength, strings.Join(names(g, affected[1:]), ", ")),
		AffectedEntityIDs: affected,
		SuggestedAction:   "Check memory and foundry exposure; prefer names with diversified fabs.",
		ExpectedImpact:    impactLine(g, sectorChips),
		Confidence:        entityConfidence(fe),
		TriggerSignals:    triggerIDs(f, sectorChips),
	}, nil
}

func eventCalendar(f domain.FusionResult, ictx domain.InferenceContext, _ *graph.Graph) (*domain.InferenceResult, error) {
	h := ictx.HoursToNextEvent
	if h < 0 || h > 48 || f.GlobalRiskLevel < 30 {
		return nil, nil
	}
	sev := domain.SeverityWatch
	if h <= 24 && f.GlobalRiskLevel >= 50 {
		sev = domain.SeverityElevated
	}
	name := ictx.NextEventName
	if name == "" {
		name = "Scheduled event"
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Event-driven volatility ahead",
		Summary:           fmt.Sprintf("%s in %.0fh with global risk at %.0f.", name, h, f.GlobalRiskLevel),
		AffectedEntityIDs: topAssets(f, 3),
		SuggestedAction:   "Reduce gross exposure into the event or hedge with short-dated options.",
		Confidence:        0.45 + f.GlobalRiskLevel/200,
	}, nil
}

func seismic(f domain.FusionResult, _ domain.InferenceContext, g *graph.Graph) (*domain.InferenceResult, error) {
	var peak float64
	var hit []string
	for _, fe := range f.EntitySignals {
		for _, s := range fe.ContributingSignals {
			if s.Source != domain.SourceSeismic || s.PropagatedFrom != "" {
				continue
			}
			peak = math.Max(peak, s.Strength)
			hit = appendUnique(hit, fe.EntityID)
		}
	}
	sev, ok := grade(peak, tier{60, domain.SeverityElevated}, tier{40, domain.SeverityWatch})
	if !ok {
		return nil, nil
	}
	affected := append([]string(nil), hit...)
	if g != nil {
		for _, id := range hit {
			for _, r := range g.AffectedSectors(id) {
				affected = appendUnique(affected, r.EntityID)
			}
		}
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Seismic risk to infrastructure",
		Summary:           fmt.Sprintf("Seismic activity at %.0f near %s.", peak, strings.Join(names(g, hit), ", ")),
		AffectedEntityIDs: affected,
		SuggestedAction:   "Check fab and port operators in the affected area for outage notices.",
		HistoricalRef:     "2011 Tohoku earthquake: auto and chip supply chains disrupted for months.",
		Confidence:        0.4 + peak/200,
		TriggerSignals:    sourceTriggers(f, domain.SourceSeismic),
	}, nil
}

func marketStress(f domain.FusionResult, ictx domain.InferenceContext, _ *graph.Graph) (*domain.InferenceResult, error) {
	if !ictx.MarketAnomaly {
		return nil, nil
	}
	vix := f.Strength(assetVIX)
	sev := domain.SeverityWatch
	if vix >= 50 || f.GlobalRiskLevel >= 40 {
		sev = domain.SeverityElevated
	}
	return &domain.InferenceResult{
		Severity:          sev,
		Title:             "Broad market stress",
		Summary:           fmt.Sprintf("Market anomaly flagged; volatility signal %.0f, global risk %.0f.", vix, f.GlobalRiskLevel),
		AffectedEntityIDs: topAssets(f, 3),
		SuggestedAction:   "Raise cash buffers and avoid adding leverage until dispersion normalizes.",
		Confidence:        0.5 + math.Max(vix, f.GlobalRiskLevel)/250,
		TriggerSignals:    sourceTriggers(f, domain.SourceMarket),
	}, nil
}

func baselineCalm(f domain.FusionResult, _ domain.InferenceContext, _ *graph.Graph) (*domain.InferenceResult, error) {
	if f.GlobalRiskLevel >= 20 || len(f.ActiveConvergenceZones) > 0 {
		return nil, nil
	}
	return &domain.InferenceResult{
		Severity:        domain.SeverityInfo,
		Title:           "Baseline conditions",
		Summary:         fmt.Sprintf("Global risk at %.0f with no converging regions.", f.GlobalRiskLevel),
		SuggestedAction: "No action required; maintain standard monitoring.",
		Confidence:      0.8,
	}, nil
}

// entityConfidence grows with fused strength and source diversity.
func entityConfidence(fe domain.FusedEntitySignal) float64 {
	c := 0.35 + fe.FusedStrength/200 + 0.05*float64(len(fe.DominantSources))
	return math.Min(0.95, c)
}

func sourceList(fe domain.FusedEntitySignal) string {
	if len(fe.DominantSources) == 0 {
		return "no sources"
	}
	parts := make([]string, len(fe.DominantSources))
	for i, s := range fe.DominantSources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// triggerIDs collects contributing signal ids for the given entities.
func triggerIDs(f domain.FusionResult, ids ...string) []string {
	var out []string
	for _, id := range ids {
		fe, ok := f.Entity(id)
		if !ok {
			continue
		}
		for _, s := range fe.ContributingSignals {
			if len(out) >= maxTriggers {
				return out
			}
			out = appendUnique(out, s.ID)
		}
	}
	return out
}

// sourceTriggers collects directly attributed signal ids from one source.
func sourceTriggers(f domain.FusionResult, src domain.SignalSource) []string {
	var out []string
	for _, fe := range f.EntitySignals {
		for _, s := range fe.ContributingSignals {
			if s.Source != src || s.PropagatedFrom != "" {
				continue
			}
			if len(out) >= maxTriggers {
				return out
			}
			out = appendUnique(out, s.ID)
		}
	}
	return out
}

// sourceEntities lists entities that carry a direct signal from src.
func sourceEntities(f domain.FusionResult, src domain.SignalSource) []string {
	var out []string
	for _, fe := range f.EntitySignals {
		for _, s := range fe.ContributingSignals {
			if s.Source == src && s.PropagatedFrom == "" {
				out = appendUnique(out, fe.EntityID)
				break
			}
		}
	}
	return out
}

// topAssets returns the strongest fused asset-like entities, judged by id
// prefix so it works without a graph.
func topAssets(f domain.FusionResult, n int) []string {
	var out []string
	for _, fe := range f.EntitySignals {
		if strings.HasPrefix(fe.EntityID, "asset:") || strings.HasPrefix(fe.EntityID, "commodity:") {
			out = append(out, fe.EntityID)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func withAssets(g *graph.Graph, id string, n int) []string {
	out := []string{id}
	if g == nil {
		return out
	}
	for i, r := range g.AffectedAssets(id) {
		if i == n {
			break
		}
		out = append(out, r.EntityID)
	}
	return out
}

// conflictParties returns id and the countries it is an adversary of.
func conflictParties(g *graph.Graph, id string) []string {
	if g == nil {
		return nil
	}
	if _, ok := g.Entity(id); !ok {
		return nil
	}
	out := []string{id}
	for _, r := range g.Adversaries(id) {
		out = append(out, r.EntityID)
	}
	return out
}

func impactLine(g *graph.Graph, id string) string {
	if g == nil {
		return ""
	}
	reached := g.AffectedAssets(id)
	if len(reached) == 0 {
		return ""
	}
	sort.SliceStable(reached, func(i, j int) bool { return reached[i].Weight > reached[j].Weight })
	if len(reached) > 4 {
		reached = reached[:4]
	}
	parts := make([]string, len(reached))
	for i, r := range reached {
		parts[i] = fmt.Sprintf("%s (%.0f%%)", g.Name(r.EntityID), r.Weight*100)
	}
	return "Transmission to " + strings.Join(parts, ", ")
}

func names(g *graph.Graph, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if g == nil {
			out[i] = id
			continue
		}
		out[i] = g.Name(id)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
