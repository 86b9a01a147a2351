package briefing_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/signal-fusion-service/internal/briefing"
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/inference"
	"github.com/couchcryptid/signal-fusion-service/internal/narrative"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

var testNow = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

// --- helpers ---

func sig(id string, src domain.SignalSource, strength float64, entities ...string) domain.NormalizedSignal {
	return domain.NormalizedSignal{
		ID:                id,
		Source:            src,
		Strength:          strength,
		Direction:         domain.DirectionRiskOff,
		AffectedEntityIDs: entities,
		Confidence:        0.8,
		Timestamp:         testNow,
	}
}

func failing(name string, err error) briefing.Source {
	return briefing.NewSourceFunc(name, 0, func(context.Context) ([]domain.NormalizedSignal, error) {
		return nil, err
	})
}

func newOrchestrator(sources []briefing.Source, opts ...func(*briefing.Options)) *briefing.Orchestrator {
	o := briefing.Options{
		Sources: sources,
		Graph:   graph.MustDefault(),
		Clock:   clockwork.NewFakeClockAt(testNow),
		Logger:  slog.Default(),
		Metrics: observability.NewMetricsForTesting(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return briefing.New(o)
}

type stubGenerator struct{ text string }

func (s stubGenerator) Generate(context.Context, narrative.Prompt) (string, error) {
	return s.text, nil
}

// --- tests ---

func TestGenerate_PartialFailureResilience(t *testing.T) {
	sources := []briefing.Source{
		briefing.StaticSource("satellite", []domain.NormalizedSignal{sig("sat-1", domain.SourceSatelliteThermal, 60, "region:korean_peninsula")}),
		failing("flights", errors.New("connection refused")),
		briefing.StaticSource("seismic", []domain.NormalizedSignal{
			sig("usgs-1", domain.SourceSeismic, 40, "country:JP"),
			sig("usgs-2", domain.SourceSeismic, 30, "country:TW"),
		}),
		briefing.NewSourceFunc("news", 0, func(context.Context) ([]domain.NormalizedSignal, error) {
			panic("nil feed")
		}),
		briefing.StaticSource("market", []domain.NormalizedSignal{sig("mkt-1", domain.SourceMarket, 45, "asset:KS11")}),
	}
	o := newOrchestrator(sources)

	b := o.Generate(context.Background())

	assert.Equal(t, 4, b.SignalSummary.Total)
	require.Len(t, b.StaleWarnings, 2)
	assert.Contains(t, b.StaleWarnings[0], "flights unavailable")
	assert.Contains(t, b.StaleWarnings[0], "connection refused")
	assert.Contains(t, b.StaleWarnings[1], "news unavailable")
	assert.Contains(t, b.StaleWarnings[1], "panicked")
	assert.Equal(t, 2, b.SignalSummary.BySource[domain.SourceSeismic])
	assert.Zero(t, b.SignalSummary.BySource[domain.SourceFlightTracking])
}

func TestGenerate_SlowSourceTimesOut(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	sources := []briefing.Source{
		briefing.NewSourceFunc("stuck", 20*time.Millisecond, func(context.Context) ([]domain.NormalizedSignal, error) {
			<-block
			return nil, nil
		}),
		briefing.StaticSource("market", []domain.NormalizedSignal{sig("mkt-1", domain.SourceMarket, 45, "asset:KS11")}),
	}
	o := newOrchestrator(sources)

	start := time.Now()
	b := o.Generate(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, b.SignalSummary.Total)
	require.Len(t, b.StaleWarnings, 1)
	assert.Contains(t, b.StaleWarnings[0], "timed out")
}

func TestGenerate_FullBriefing(t *testing.T) {
	sources := []briefing.Source{
		briefing.StaticSource("mixed", []domain.NormalizedSignal{
			sig("sat-1", domain.SourceSatelliteThermal, 60, "region:korean_peninsula"),
			sig("adsb-1", domain.SourceFlightTracking, 65, "region:korean_peninsula"),
			sig("usgs-1", domain.SourceSeismic, 70, "region:korean_peninsula"),
		}),
	}
	o := newOrchestrator(sources)

	b := o.Generate(context.Background())

	_, err := uuid.Parse(b.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, b.GeneratedAt)
	assert.Equal(t, domain.NarrativeTemplate, b.NarrativeMethod)
	assert.NotEmpty(t, b.Narrative)
	assert.Equal(t, []string{"region:korean_peninsula"}, b.ConvergenceZones)
	assert.Empty(t, b.StaleWarnings)
	assert.NotNil(t, b.StaleWarnings)

	require.NotEmpty(t, b.TopInferences)
	assert.Equal(t, domain.SeverityCritical, b.TopInferences[0].Severity)
	assert.Equal(t, 1, b.SignalSummary.BySeverity[domain.SeverityCritical])
	assert.Equal(t, briefing.RiskLabel(b.RiskScore), b.RiskLabel)
	assert.GreaterOrEqual(t, b.RiskScore, 40)

	require.NotEmpty(t, b.SignalSummary.TopEntities)
	assert.Equal(t, "region:korean_peninsula", b.SignalSummary.TopEntities[0].EntityID)
	assert.Equal(t, "Korean Peninsula", b.SignalSummary.TopEntities[0].Name)

	assert.Equal(t, domain.DirectionRiskOff, b.MarketOutlook.Bias)
	assert.Contains(t, b.MarketOutlook.Drivers, "KOSPI")
}

func TestGenerate_UsesGeneratorWhenConfigured(t *testing.T) {
	const text = "Peninsula risk is elevated on converging signals; hedge KRW and trim KOSPI beta."
	gen := narrative.NewAssembler(stubGenerator{text: text}, narrative.NewCache(clockwork.NewFakeClockAt(testNow), 0), "English", slog.Default(), nil)
	o := newOrchestrator(nil, func(opts *briefing.Options) { opts.Narrative = gen })

	b := o.Generate(context.Background())

	assert.Equal(t, domain.NarrativeLLM, b.NarrativeMethod)
	assert.Equal(t, text, b.Narrative)
}

func TestGenerate_NoSources(t *testing.T) {
	o := newOrchestrator(nil)

	b := o.Generate(context.Background())

	assert.Zero(t, b.SignalSummary.Total)
	assert.Equal(t, briefing.LabelLow, b.RiskLabel)
	require.Len(t, b.TopInferences, 1)
	assert.Equal(t, domain.SeverityInfo, b.TopInferences[0].Severity)
	assert.Equal(t, domain.DirectionNeutral, b.MarketOutlook.Bias)
	assert.Empty(t, b.ConvergenceZones)
}

func TestGenerate_TTLAcrossRuns(t *testing.T) {
	src := briefing.StaticSource("market", []domain.NormalizedSignal{sig("tail-1", domain.SourceTailRisk, 90, "asset:VIX")})
	o := newOrchestrator([]briefing.Source{src})

	first := o.Generate(context.Background())
	second := o.Generate(context.Background())

	count := func(b domain.InsightBriefing) int {
		n := 0
		for _, r := range b.TopInferences {
			if r.RuleID == "tail_risk_spike" {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(first))
	assert.Equal(t, 0, count(second))
}

func TestGenerate_SystemicSynthesisOptIn(t *testing.T) {
	signals := []domain.NormalizedSignal{
		sig("tail-1", domain.SourceTailRisk, 90, "asset:VIX"),
		sig("sat-1", domain.SourceSatelliteThermal, 80, "region:taiwan_strait"),
		sig("adsb-1", domain.SourceFlightTracking, 80, "region:taiwan_strait"),
		sig("sat-2", domain.SourceSatelliteThermal, 80, "region:korean_peninsula"),
		sig("adsb-2", domain.SourceFlightTracking, 80, "region:korean_peninsula"),
	}
	generate := func(systemic bool) domain.InsightBriefing {
		o := newOrchestrator([]briefing.Source{briefing.StaticSource("all", signals)}, func(opts *briefing.Options) {
			opts.SystemicSynthesis = systemic
		})
		return o.Generate(context.Background())
	}
	critical := func(b domain.InsightBriefing) []string {
		var ids []string
		for _, r := range b.TopInferences {
			if r.Severity == domain.SeverityCritical {
				ids = append(ids, r.RuleID)
			}
		}
		return ids
	}

	off := generate(false)
	on := generate(true)

	require.Len(t, critical(off), 2, "third critical result is suppressed by the cap")
	assert.NotContains(t, critical(off), inference.RuleSystemicCrisis)

	assert.Equal(t, []string{inference.RuleSystemicCrisis}, critical(on))
	meta := on.TopInferences[0]
	assert.Equal(t, inference.RuleSystemicCrisis, meta.RuleID)
	assert.Contains(t, meta.Summary, "3 simultaneous")
	assert.Contains(t, meta.AffectedEntityIDs, "region:taiwan_strait")
	assert.Contains(t, meta.AffectedEntityIDs, "region:korean_peninsula")
	assert.Equal(t, 1, on.SignalSummary.BySeverity[domain.SeverityCritical])
}
