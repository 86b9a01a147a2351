package domain

import (
	"fmt"
	"strings"
	"time"
)

// CalendarEvent is a scheduled, market-moving occurrence such as a rate
// decision or an election.
type CalendarEvent struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// ParseCalendar parses a semicolon-separated list of name@RFC3339 entries,
// e.g. "FOMC rate decision@2026-03-18T18:00:00Z;BOK rate decision@2026-04-09T01:00:00Z".
// Blank entries are ignored.
func ParseCalendar(s string) ([]CalendarEvent, error) {
	var events []CalendarEvent
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, "@")
		if i <= 0 || i == len(part)-1 {
			return nil, fmt.Errorf("calendar entry %q: want name@time", part)
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(part[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("calendar entry %q: %w", part, err)
		}
		events = append(events, CalendarEvent{Name: strings.TrimSpace(part[:i]), At: at})
	}
	return events, nil
}

// NextEvent returns the earliest event at or after now and the hours until
// it. It returns false when nothing is upcoming.
func NextEvent(events []CalendarEvent, now time.Time) (CalendarEvent, float64, bool) {
	var next CalendarEvent
	found := false
	for _, e := range events {
		if e.At.Before(now) {
			continue
		}
		if !found || e.At.Before(next.At) {
			next = e
			found = true
		}
	}
	if !found {
		return CalendarEvent{}, -1, false
	}
	return next, next.At.Sub(now).Hours(), true
}
