package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signal_fusion"

// Metrics holds the Prometheus counters, histograms, and gauges for the briefing service.
type Metrics struct {
	// Source fan-out metrics.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source
	SignalsCollected    prometheus.Counter

	// Kafka signal intake.
	MessagesConsumed prometheus.Counter
	DecodeErrors     prometheus.Counter
	CommitErrors     prometheus.Counter

	// Inference metrics.
	RuleEvaluations *prometheus.CounterVec // labels: rule, outcome={fired,empty,ttl,claimed,suppressed,error}

	// Narrative metrics.
	NarrativeGenerations *prometheus.CounterVec // labels: method={llm,template}
	NarrativeCache       *prometheus.CounterVec // labels: result={hit,miss}
	NarrativeAPIDuration prometheus.Histogram

	// Briefing cycle metrics.
	BriefingsGenerated prometheus.Counter
	BriefingsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	BriefingDuration   prometheus.Histogram
	RiskScore          prometheus.Gauge
	SchedulerRunning   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Signal source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of a single signal source fetch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		SignalsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_collected_total",
			Help:      "Total normalized signals gathered from successful sources.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the signal topic.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Signal messages that could not be decoded.",
		}),
		CommitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_errors_total",
			Help:      "Failed offset commits on the signal topic.",
		}),
		RuleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Inference rule evaluations by rule and outcome.",
		}, []string{"rule", "outcome"}),
		NarrativeGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrative_generations_total",
			Help:      "Narratives produced by method.",
		}, []string{"method"}),
		NarrativeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrative_cache_total",
			Help:      "Narrative cache lookups by result.",
		}, []string{"result"}),
		NarrativeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narrative_api_duration_seconds",
			Help:      "Text generation request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BriefingsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_generated_total",
			Help:      "Total briefings assembled.",
		}),
		BriefingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_published_total",
			Help:      "Total briefings written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed briefing publish attempts.",
		}),
		BriefingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "briefing_duration_seconds",
			Help:      "Duration of a complete gather-fuse-infer-narrate cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RiskScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Risk score of the most recent briefing.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the briefing scheduler is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.SignalsCollected,
		m.MessagesConsumed,
		m.DecodeErrors,
		m.CommitErrors,
		m.RuleEvaluations,
		m.NarrativeGenerations,
		m.NarrativeCache,
		m.NarrativeAPIDuration,
		m.BriefingsGenerated,
		m.BriefingsPublished,
		m.PublishErrors,
		m.BriefingDuration,
		m.RiskScore,
		m.SchedulerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SourceFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "source_fetches_total"}, []string{"source", "outcome"}),
		SourceFetchDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "source_fetch_duration_seconds"}, []string{"source"}),
		SignalsCollected:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "signals_collected_total"}),
		MessagesConsumed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		DecodeErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "decode_errors_total"}),
		CommitErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "commit_errors_total"}),
		RuleEvaluations:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rule_evaluations_total"}, []string{"rule", "outcome"}),
		NarrativeGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "narrative_generations_total"}, []string{"method"}),
		NarrativeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "narrative_cache_total"}, []string{"result"}),
		NarrativeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "narrative_api_duration_seconds"}),
		BriefingsGenerated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "briefings_generated_total"}),
		BriefingsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "briefings_published_total"}),
		PublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		BriefingDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "briefing_duration_seconds"}),
		RiskScore:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "risk_score"}),
		SchedulerRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "scheduler_running"}),
	}
}
