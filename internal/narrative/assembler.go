// Package narrative turns a briefing's structured context into a short
// prose summary, either through an external text generator or a
// deterministic template.
package narrative

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

const (
	// MinGeneratedRunes is the shortest generated text accepted.
	MinGeneratedRunes = 40
	maxTokens         = 300
)

// Prompt is one system+user request to a text generator.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Generator produces prose for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Assembler picks between generated and template narratives.
type Assembler struct {
	gen      Generator
	cache    *Cache
	language string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAssembler creates an Assembler. A nil generator always renders the
// template. A nil cache disables caching.
func NewAssembler(gen Generator, cache *Cache, language string, logger *slog.Logger, metrics *observability.Metrics) *Assembler {
	if language == "" {
		language = "English"
	}
	return &Assembler{gen: gen, cache: cache, language: language, logger: logger, metrics: metrics}
}

// Assemble returns narrative text and the method that produced it. It never
// fails: generator errors and short responses fall back to the template.
func (a *Assembler) Assemble(ctx context.Context, nc Context) (string, domain.NarrativeMethod) {
	if a.gen == nil {
		return a.template(nc)
	}

	if a.cache != nil {
		if text, ok := a.cache.Get(); ok {
			a.countCache("hit")
			a.countMethod(domain.NarrativeLLM)
			return text, domain.NarrativeLLM
		}
		a.countCache("miss")
	}

	text, err := a.gen.Generate(ctx, Prompt{
		System:    systemPrompt(a.language),
		User:      userPrompt(nc),
		MaxTokens: maxTokens,
	})
	if err != nil {
		a.logger.Warn("narrative generation failed, using template", "error", err)
		return a.template(nc)
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinGeneratedRunes {
		a.logger.Warn("generated narrative too short, using template", "runes", utf8.RuneCountInString(text))
		return a.template(nc)
	}

	if a.cache != nil {
		a.cache.Put(text)
	}
	a.countMethod(domain.NarrativeLLM)
	return text, domain.NarrativeLLM
}

func (a *Assembler) template(nc Context) (string, domain.NarrativeMethod) {
	a.countMethod(domain.NarrativeTemplate)
	return RenderTemplate(nc), domain.NarrativeTemplate
}

func (a *Assembler) countMethod(m domain.NarrativeMethod) {
	if a.metrics != nil {
		a.metrics.NarrativeGenerations.WithLabelValues(string(m)).Inc()
	}
}

func (a *Assembler) countCache(result string) {
	if a.metrics != nil {
		a.metrics.NarrativeCache.WithLabelValues(result).Inc()
	}
}
