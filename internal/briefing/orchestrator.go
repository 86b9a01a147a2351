// Package briefing gathers signals from every source and runs them through
// fusion, inference and narrative assembly to produce one InsightBriefing.
package briefing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/fusion"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/inference"
	"github.com/couchcryptid/signal-fusion-service/internal/narrative"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

// DefaultSourceTimeout applies to sources without their own timeout.
const DefaultSourceTimeout = 10 * time.Second

// Options wires an Orchestrator. Nil engines are built with defaults over
// Graph and Clock.
type Options struct {
	Sources   []Source
	Graph     *graph.Graph
	Fusion    *fusion.Engine
	Inference *inference.Engine
	Narrative *narrative.Assembler
	Clock     clockwork.Clock

	SourceTimeout     time.Duration
	Calendar          []domain.CalendarEvent
	SystemicSynthesis bool

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Orchestrator produces briefings. Generate is safe to call concurrently;
// all cross-run state lives in the injected inference fire log and
// narrative cache.
type Orchestrator struct {
	sources       []Source
	graph         *graph.Graph
	fusion        *fusion.Engine
	inference     *inference.Engine
	narrative     *narrative.Assembler
	clock         clockwork.Clock
	sourceTimeout time.Duration
	calendar      []domain.CalendarEvent
	systemic      bool
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// New creates an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	if opts.Fusion == nil {
		opts.Fusion = fusion.NewEngine(opts.Graph, opts.Clock, opts.Logger)
	}
	if opts.Inference == nil {
		opts.Inference = inference.NewEngine(inference.DefaultRules(), inference.NewFireLog(opts.Clock), opts.Logger, opts.Metrics)
	}
	if opts.Narrative == nil {
		opts.Narrative = narrative.NewAssembler(nil, nil, "", opts.Logger, opts.Metrics)
	}
	return &Orchestrator{
		sources:       opts.Sources,
		graph:         opts.Graph,
		fusion:        opts.Fusion,
		inference:     opts.Inference,
		narrative:     opts.Narrative,
		clock:         opts.Clock,
		sourceTimeout: opts.SourceTimeout,
		calendar:      opts.Calendar,
		systemic:      opts.SystemicSynthesis,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// Generate runs one gather, fuse, infer and narrate cycle. It never fails:
// source, rule and narrative failures degrade the briefing instead.
func (o *Orchestrator) Generate(ctx context.Context) domain.InsightBriefing {
	start := time.Now()

	signals, warnings := o.gather(ctx)
	now := o.clock.Now()
	ictx := BuildInferenceContext(signals, o.calendar, now)

	fused := o.fusion.Fuse(signals)
	results, suppressed := o.inference.EvaluateDetailed(fused, ictx, o.graph)
	if o.systemic && len(suppressed) > 0 {
		results = inference.SynthesizeSystemic(append(results, suppressed...))
	}

	score := RiskScore(fused.GlobalRiskLevel, results)
	label := RiskLabel(score)

	nc := narrative.BuildContext(score, label, results, len(signals), fused.ActiveConvergenceZones, o.graph)
	text, method := o.narrative.Assemble(ctx, nc)

	b := domain.InsightBriefing{
		ID:               uuid.NewString(),
		GeneratedAt:      now,
		RiskScore:        score,
		RiskLabel:        label,
		TopInferences:    results,
		Narrative:        text,
		NarrativeMethod:  method,
		SignalSummary:    Summarize(signals, fused, results, o.graph),
		MarketOutlook:    Outlook(fused, o.graph),
		ConvergenceZones: fused.ActiveConvergenceZones,
		StaleWarnings:    warnings,
	}

	if o.metrics != nil {
		o.metrics.BriefingsGenerated.Inc()
		o.metrics.BriefingDuration.Observe(time.Since(start).Seconds())
		o.metrics.RiskScore.Set(float64(score))
	}
	o.logger.Info("briefing generated",
		"briefing_id", b.ID,
		"risk_score", score,
		"risk_label", label,
		"signals", len(signals),
		"inferences", len(results),
		"stale_sources", len(warnings),
		"narrative_method", method,
	)
	return b
}
