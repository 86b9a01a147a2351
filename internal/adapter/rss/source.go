// Package rss normalizes RSS and Atom headlines into news_sentiment signals.
package rss

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

// DefaultMaxAge drops items published longer ago than this.
const DefaultMaxAge = 24 * time.Hour

// Source fetches one feed and turns each headline that mentions a known
// entity and hits the lexicon into a signal.
type Source struct {
	name   string
	url    string
	parser *gofeed.Parser
	graph  *graph.Graph
	clock  clockwork.Clock
	maxAge time.Duration
	logger *slog.Logger
}

// New creates a feed source. An empty name is derived from the feed host.
func New(name, feedURL string, g *graph.Graph, clock clockwork.Clock, logger *slog.Logger) *Source {
	if name == "" {
		name = NameFromURL(feedURL)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		name:   name,
		url:    feedURL,
		parser: gofeed.NewParser(),
		graph:  g,
		clock:  clock,
		maxAge: DefaultMaxAge,
		logger: logger,
	}
}

// NameFromURL returns "rss:<host>", or "rss" when the URL has no host.
func NameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return "rss"
	}
	return "rss:" + u.Host
}

func (s *Source) Name() string { return s.name }

func (s *Source) Fetch(ctx context.Context) ([]domain.NormalizedSignal, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}

	now := s.clock.Now()
	signals := make([]domain.NormalizedSignal, 0, len(feed.Items))
	for _, item := range feed.Items {
		sig, ok := s.normalize(item, now)
		if ok {
			signals = append(signals, sig)
		}
	}
	s.logger.Debug("feed normalized", "source", s.name, "items", len(feed.Items), "signals", len(signals))
	return signals, nil
}

func (s *Source) normalize(item *gofeed.Item, now time.Time) (domain.NormalizedSignal, bool) {
	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}
	if now.Sub(published) > s.maxAge {
		return domain.NormalizedSignal{}, false
	}

	if s.graph == nil {
		return domain.NormalizedSignal{}, false
	}
	text := item.Title + " " + item.Description
	entities := s.graph.MatchText(text)
	if len(entities) == 0 {
		return domain.NormalizedSignal{}, false
	}
	sent := score(text)
	if sent.hits == 0 {
		return domain.NormalizedSignal{}, false
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	key := item.Link
	if key == "" {
		key = item.GUID + item.Title
	}
	return domain.NormalizedSignal{
		ID:                fmt.Sprintf("rss-%x", sha256.Sum256([]byte(key)))[:20],
		Source:            domain.SourceNewsSentiment,
		Strength:          sent.strength,
		Direction:         sent.direction,
		AffectedEntityIDs: ids,
		Confidence:        sent.confidence,
		Timestamp:         published,
		Headline:          item.Title,
		Raw: map[string]any{
			"feed": s.name,
			"link": item.Link,
		},
	}, true
}
