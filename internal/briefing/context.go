package briefing

import (
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// Raw keys read from provider payloads.
const (
	rawVIPLabel  = "vip_label"
	rawAnomaly   = "anomaly"
	rawEventName = "event_name"
	rawEventAt   = "event_at"
)

// marketAnomalyStrength flags a market signal as anomalous on its own.
const marketAnomalyStrength = 70

// BuildInferenceContext derives the non-signal facts rules consult:
// the tail-risk gauge, active VIP flights, the next calendar event and
// whether markets look anomalous. Calendar signals carrying event_name and
// an RFC 3339 event_at join the configured calendar.
func BuildInferenceContext(signals []domain.NormalizedSignal, calendar []domain.CalendarEvent, now time.Time) domain.InferenceContext {
	ictx := domain.InferenceContext{Now: now, HoursToNextEvent: -1}
	events := append([]domain.CalendarEvent(nil), calendar...)
	seenVIP := make(map[string]bool)

	for _, s := range signals {
		switch s.Source {
		case domain.SourceTailRisk:
			ictx.TailRiskScore = math.Max(ictx.TailRiskScore, domain.ClampStrength(s.Strength))
		case domain.SourceFlightTracking:
			if label := rawString(s.Raw, rawVIPLabel); label != "" && !seenVIP[label] {
				seenVIP[label] = true
				ictx.VIPAircraft = append(ictx.VIPAircraft, label)
			}
		case domain.SourceMarket:
			if s.Strength >= marketAnomalyStrength || rawBool(s.Raw, rawAnomaly) {
				ictx.MarketAnomaly = true
			}
		case domain.SourceCalendar:
			if ev, ok := calendarEvent(s); ok {
				events = append(events, ev)
			}
		}
	}

	if next, hours, ok := domain.NextEvent(events, now); ok {
		ictx.HoursToNextEvent = hours
		ictx.NextEventName = next.Name
	}
	return ictx
}

func calendarEvent(s domain.NormalizedSignal) (domain.CalendarEvent, bool) {
	name := rawString(s.Raw, rawEventName)
	if name == "" {
		name = s.Headline
	}
	at, err := time.Parse(time.RFC3339, rawString(s.Raw, rawEventAt))
	if err != nil || name == "" {
		return domain.CalendarEvent{}, false
	}
	return domain.CalendarEvent{Name: name, At: at}, true
}

func rawString(raw map[string]any, key string) string {
	v, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func rawBool(raw map[string]any, key string) bool {
	v, ok := raw[key].(bool)
	return ok && v
}
