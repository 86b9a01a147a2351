package domain

import "time"

// SignalSource identifies the provider category a signal came from.
type SignalSource string

const (
	SourceSatelliteThermal SignalSource = "satellite_thermal"
	SourceFlightTracking   SignalSource = "flight_tracking"
	SourceSeismic          SignalSource = "seismic"
	SourceNewsSentiment    SignalSource = "news_sentiment"
	SourceMarket           SignalSource = "market"
	SourcePredictionMarket SignalSource = "prediction_market"
	SourceTailRisk         SignalSource = "tail_risk"
	SourceCalendar         SignalSource = "calendar"
)

// SourceCategory groups sources for cross-validation.
type SourceCategory string

const (
	CategoryNews    SourceCategory = "news"
	CategoryMarket  SourceCategory = "market"
	CategoryFactual SourceCategory = "factual"
)

// Category maps a source onto its cross-validation category. Unknown sources
// are treated as factual observations.
func (s SignalSource) Category() SourceCategory {
	switch s {
	case SourceNewsSentiment:
		return CategoryNews
	case SourceMarket, SourcePredictionMarket, SourceTailRisk:
		return CategoryMarket
	default:
		return CategoryFactual
	}
}

// Direction is the market stance a signal implies.
type Direction string

const (
	DirectionRiskOn    Direction = "risk_on"
	DirectionRiskOff   Direction = "risk_off"
	DirectionNeutral   Direction = "neutral"
	DirectionAmbiguous Direction = "ambiguous"
)

// Directions lists every direction.
var Directions = []Direction{DirectionRiskOn, DirectionRiskOff, DirectionNeutral, DirectionAmbiguous}

// NormalizedSignal is the common contract every source normalizer produces.
type NormalizedSignal struct {
	ID                string         `json:"id"`
	Source            SignalSource   `json:"source"`
	Strength          float64        `json:"strength"`   // 0–100
	Direction         Direction      `json:"direction"`
	AffectedEntityIDs []string       `json:"affected_entity_ids"`
	Confidence        float64        `json:"confidence"` // 0.0–1.0
	Timestamp         time.Time      `json:"timestamp"`
	Headline          string         `json:"headline,omitempty"`
	Raw               map[string]any `json:"raw,omitempty"`

	// PropagatedFrom is set on copies synthesized by graph propagation.
	PropagatedFrom string `json:"propagated_from,omitempty"`
}

// Clamped returns a copy with strength and confidence forced into range.
func (s NormalizedSignal) Clamped() NormalizedSignal {
	s.Strength = ClampStrength(s.Strength)
	s.Confidence = ClampUnit(s.Confidence)
	return s
}

// FusedEntitySignal is the per-entity aggregate of all contributing signals.
type FusedEntitySignal struct {
	EntityID              string             `json:"entity_id"`
	ContributingSignals   []NormalizedSignal `json:"contributing_signals"`
	FusedStrength         float64            `json:"fused_strength"`
	FusedDirection        Direction          `json:"fused_direction"`
	DirectionDominant     bool               `json:"direction_dominant"`
	ConvergenceMultiplier float64            `json:"convergence_multiplier"`
	SignalCount           int                `json:"signal_count"`
	DominantSources       []SignalSource     `json:"dominant_sources"`
}

// FusionResult is recomputed on every cycle and never persisted.
type FusionResult struct {
	Timestamp              time.Time           `json:"timestamp"`
	EntitySignals          []FusedEntitySignal `json:"entity_signals"`
	GlobalRiskLevel        float64             `json:"global_risk_level"`
	ActiveConvergenceZones []string            `json:"active_convergence_zones"`
}

// Entity returns the fused signal for id, if any.
func (r FusionResult) Entity(id string) (FusedEntitySignal, bool) {
	for _, es := range r.EntitySignals {
		if es.EntityID == id {
			return es, true
		}
	}
	return FusedEntitySignal{}, false
}

// Strength returns the fused strength for id, or 0 when the entity received no signals.
func (r FusionResult) Strength(id string) float64 {
	es, _ := r.Entity(id)
	return es.FusedStrength
}
