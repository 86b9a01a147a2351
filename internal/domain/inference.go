package domain

import "time"

// Severity ranks an inference. Lower Rank means more urgent.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityElevated Severity = "ELEVATED"
	SeverityWatch    Severity = "WATCH"
	SeverityInfo     Severity = "INFO"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityElevated, SeverityWatch, SeverityInfo}

// Rank orders severities for sorting: CRITICAL < ELEVATED < WATCH < INFO.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityElevated:
		return 1
	case SeverityWatch:
		return 2
	default:
		return 3
	}
}

// InferenceResult is a severity-tagged conclusion produced by one rule.
type InferenceResult struct {
	RuleID            string   `json:"rule_id"`
	Severity          Severity `json:"severity"`
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	AffectedEntityIDs []string `json:"affected_entity_ids"`
	SuggestedAction   string   `json:"suggested_action"`
	ExpectedImpact    string   `json:"expected_impact,omitempty"`
	HistoricalRef     string   `json:"historical_ref,omitempty"`
	Confidence        float64  `json:"confidence"`
	TriggerSignals    []string `json:"trigger_signals"`
}

// InferenceContext carries non-signal facts the rules can consult.
type InferenceContext struct {
	Now           time.Time `json:"now"`
	TailRiskScore float64   `json:"tail_risk_score"`
	VIPAircraft   []string  `json:"vip_aircraft,omitempty"`
	// HoursToNextEvent is negative when no scheduled event is upcoming.
	HoursToNextEvent float64 `json:"hours_to_next_event"`
	NextEventName    string  `json:"next_event_name,omitempty"`
	MarketAnomaly    bool    `json:"market_anomaly"`
}
