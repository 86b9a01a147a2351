// Package domain holds the types shared by every stage of the briefing
// pipeline: graph entities and edges, normalized signals, fusion output,
// inferences and the final briefing.
//
// # Signals
//
// Each upstream provider (satellite thermal anomalies, flight tracking,
// seismic feeds, news sentiment, market moves) is normalized into a
// [NormalizedSignal]:
//
//	strength    0–100, how loud the observation is
//	confidence  0.0–1.0, how much the provider is trusted
//	direction   risk_on | risk_off | neutral | ambiguous
//	timestamp   observation time, used for half-life decay
//
// Values outside their ranges are clamped on entry ([NormalizedSignal.Clamped])
// and again after every arithmetic step that can overshoot.
//
// # Source categories
//
// Sources are grouped for cross-validation:
//
//	news     news_sentiment
//	market   market, prediction_market, tail_risk
//	factual  satellite_thermal, flight_tracking, seismic, calendar
//
// # Severities
//
// Inferences carry one of four severities, ordered by [Severity.Rank]:
//
//	CRITICAL < ELEVATED < WATCH < INFO
//
// At most two CRITICAL inferences are emitted per briefing.
package domain
