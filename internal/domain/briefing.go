package domain

import "time"

// NarrativeMethod records which path produced a briefing's narrative text.
type NarrativeMethod string

const (
	NarrativeLLM      NarrativeMethod = "llm"
	NarrativeTemplate NarrativeMethod = "template"
)

// InsightBriefing is the sole public output of the fusion core.
type InsightBriefing struct {
	ID               string            `json:"id"`
	GeneratedAt      time.Time         `json:"generated_at"`
	RiskScore        int               `json:"risk_score"`
	RiskLabel        string            `json:"risk_label"`
	TopInferences    []InferenceResult `json:"top_inferences"`
	Narrative        string            `json:"narrative"`
	NarrativeMethod  NarrativeMethod   `json:"narrative_method"`
	SignalSummary    SignalSummary     `json:"signal_summary"`
	MarketOutlook    MarketOutlook     `json:"market_outlook"`
	ConvergenceZones []string          `json:"convergence_zones"`
	StaleWarnings    []string          `json:"stale_warnings"`
}

// SignalSummary counts what went into a briefing.
type SignalSummary struct {
	Total       int                  `json:"total"`
	BySource    map[SignalSource]int `json:"by_source"`
	BySeverity  map[Severity]int     `json:"by_severity"`
	TopEntities []EntityStrength     `json:"top_entities"`
}

// EntityStrength is a compact view of one fused entity.
type EntityStrength struct {
	EntityID  string    `json:"entity_id"`
	Name      string    `json:"name"`
	Strength  float64   `json:"strength"`
	Direction Direction `json:"direction"`
}

// MarketOutlook summarizes the aggregate stance across fused assets.
type MarketOutlook struct {
	Bias       Direction        `json:"bias"`
	Confidence float64          `json:"confidence"`
	Assets     []EntityStrength `json:"assets"`
	Drivers    []string         `json:"drivers,omitempty"`
}
