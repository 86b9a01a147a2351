package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampStrength(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{180, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampStrength(tt.in))
	}
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, ClampUnit(-0.1))
	assert.Equal(t, 0.3, ClampUnit(0.3))
	assert.Equal(t, 1.0, ClampUnit(1.7))
}

func TestNormalizedSignal_Clamped(t *testing.T) {
	s := NormalizedSignal{ID: "s1", Strength: 140, Confidence: -1}.Clamped()
	assert.Equal(t, 100.0, s.Strength)
	assert.Equal(t, 0.0, s.Confidence)
}

func TestSignalSource_Category(t *testing.T) {
	assert.Equal(t, CategoryNews, SourceNewsSentiment.Category())
	assert.Equal(t, CategoryMarket, SourceMarket.Category())
	assert.Equal(t, CategoryMarket, SourcePredictionMarket.Category())
	assert.Equal(t, CategoryMarket, SourceTailRisk.Category())
	assert.Equal(t, CategoryFactual, SourceSeismic.Category())
	assert.Equal(t, CategoryFactual, SignalSource("unknown").Category())
}

func TestSeverity_Rank(t *testing.T) {
	for i, s := range Severities {
		assert.Equal(t, i, s.Rank(), s)
	}
	assert.Equal(t, 3, Severity("bogus").Rank())
}

func TestEdge_IsDirectional(t *testing.T) {
	no := false
	assert.True(t, Edge{}.IsDirectional())
	assert.False(t, Edge{Directional: &no}.IsDirectional())
}

func TestFusionResult_Strength(t *testing.T) {
	r := FusionResult{EntitySignals: []FusedEntitySignal{{EntityID: "asset:KS11", FusedStrength: 61}}}
	assert.Equal(t, 61.0, r.Strength("asset:KS11"))
	assert.Equal(t, 0.0, r.Strength("asset:SPX"))
}

func TestParseCalendar(t *testing.T) {
	events, err := ParseCalendar(" FOMC rate decision@2026-03-18T18:00:00Z ; ;BOK@2026-03-04T01:00:00Z")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "FOMC rate decision", events[0].Name)
	assert.Equal(t, time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC), events[0].At)

	empty, err := ParseCalendar("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"no-separator", "@2026-03-18T18:00:00Z", "FOMC@", "FOMC@tomorrow"} {
		_, err := ParseCalendar(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextEvent(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{Name: "past", At: now.Add(-time.Hour)},
		{Name: "later", At: now.Add(48 * time.Hour)},
		{Name: "soon", At: now.Add(6 * time.Hour)},
	}

	next, hours, ok := NextEvent(events, now)
	require.True(t, ok)
	assert.Equal(t, "soon", next.Name)
	assert.InDelta(t, 6, hours, 1e-9)

	_, hours, ok = NextEvent(events[:1], now)
	assert.False(t, ok)
	assert.Negative(t, hours)
}
