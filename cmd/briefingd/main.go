package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/signal-fusion-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/signal-fusion-service/internal/adapter/kafka"
	"github.com/couchcryptid/signal-fusion-service/internal/adapter/openai"
	"github.com/couchcryptid/signal-fusion-service/internal/adapter/rss"
	"github.com/couchcryptid/signal-fusion-service/internal/briefing"
	"github.com/couchcryptid/signal-fusion-service/internal/config"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/narrative"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
	"github.com/couchcryptid/signal-fusion-service/internal/scheduler"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	g, err := graph.Default()
	if err != nil {
		logger.Error("failed to build entity graph", "error", err)
		os.Exit(1)
	}
	logger.Info("entity graph loaded", "entities", len(g.Entities()), "edges", g.EdgeCount())

	reader := kafkaadapter.NewReader(cfg, logger, metrics)
	writer := kafkaadapter.NewWriter(cfg, logger)

	sources := []briefing.Source{reader}
	for _, feed := range cfg.RSSFeeds {
		sources = append(sources, rss.New("", feed, g, clock, logger))
	}

	// Text generation is feature-flagged via OPENAI_API_KEY.
	gen := openai.NewGenerator(openai.Config{
		APIKey:     cfg.OpenAIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		RatePerMin: cfg.NarrativeRatePerMin,
	}, logger, metrics)
	if cfg.NarrativeEnabled() {
		logger.Info("generated narrative enabled", "model", cfg.OpenAIModel, "rate_per_min", cfg.NarrativeRatePerMin)
	} else {
		logger.Info("generated narrative disabled, using template")
	}
	assembler := narrative.NewAssembler(gen, narrative.NewCache(clock, narrative.DefaultCacheTTL), cfg.NarrativeLanguage, logger, metrics)

	orch := briefing.New(briefing.Options{
		Sources:           sources,
		Graph:             g,
		Narrative:         assembler,
		Clock:             clock,
		SourceTimeout:     cfg.SourceTimeout,
		Calendar:          cfg.Calendar,
		SystemicSynthesis: cfg.SystemicSynthesis,
		Logger:            logger,
		Metrics:           metrics,
	})

	sched := scheduler.New(orch, writer, clock, cfg.BriefingInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start briefing scheduler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
