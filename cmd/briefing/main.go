// Command briefing runs a single briefing cycle over a JSON file of
// normalized signals and prints the resulting briefing as JSON. The narrative
// uses the template unless OPENAI_API_KEY is set.
//
// Usage:
//
//	go run ./cmd/briefing \
//	  -signals testdata/signals.json \
//	  -now 2026-03-03T09:00:00Z \
//	  -out briefing.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/signal-fusion-service/internal/adapter/openai"
	"github.com/couchcryptid/signal-fusion-service/internal/briefing"
	"github.com/couchcryptid/signal-fusion-service/internal/config"
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
	"github.com/couchcryptid/signal-fusion-service/internal/narrative"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	signalsPath := flag.String("signals", "", "JSON array of normalized signals, or - for stdin")
	seedPath := flag.String("seed", "", "entity graph seed YAML (default: embedded seed)")
	nowFlag := flag.String("now", "", "evaluation time in RFC 3339 (default: current time)")
	outPath := flag.String("out", "", "write the briefing here instead of stdout")
	flag.Parse()

	if *signalsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -signals")
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg)

	clock := clockwork.NewRealClock()
	if *nowFlag != "" {
		now, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		// A fixed clock makes decay and calendar distances reproducible.
		clock = clockwork.NewFakeClockAt(now)
	}

	g, err := loadGraph(*seedPath)
	if err != nil {
		return err
	}

	signals, err := readSignals(*signalsPath)
	if err != nil {
		return err
	}
	logger.Info("signals loaded", "count", len(signals), "path", *signalsPath)

	gen := openai.NewGenerator(openai.Config{
		APIKey:     cfg.OpenAIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		RatePerMin: cfg.NarrativeRatePerMin,
	}, logger, nil)

	orch := briefing.New(briefing.Options{
		Sources:           []briefing.Source{briefing.StaticSource("file", signals)},
		Graph:             g,
		Narrative:         narrative.NewAssembler(gen, nil, cfg.NarrativeLanguage, logger, nil),
		Clock:             clock,
		SourceTimeout:     cfg.SourceTimeout,
		Calendar:          cfg.Calendar,
		SystemicSynthesis: cfg.SystemicSynthesis,
		Logger:            logger,
	})

	b := orch.Generate(context.Background())
	return writeBriefing(*outPath, b)
}

func loadGraph(path string) (*graph.Graph, error) {
	if path == "" {
		return graph.Default()
	}
	g, err := graph.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	return g, nil
}

func readSignals(path string) ([]domain.NormalizedSignal, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open signals: %w", err)
		}
		defer f.Close()
		r = f
	}

	var signals []domain.NormalizedSignal
	if err := json.NewDecoder(r).Decode(&signals); err != nil {
		return nil, fmt.Errorf("decode signals: %w", err)
	}
	return signals, nil
}

func writeBriefing(path string, b domain.InsightBriefing) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode briefing: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
