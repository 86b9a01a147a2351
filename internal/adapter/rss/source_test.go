package rss_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/signal-fusion-service/internal/adapter/rss"
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/graph"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>World Desk</title>
  <item>
    <title>North Korea fires ballistic missile toward Yellow Sea</title>
    <link>https://news.example.com/a/1</link>
    <pubDate>Tue, 03 Mar 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Local bakery wins award</title>
    <link>https://news.example.com/a/2</link>
    <pubDate>Tue, 03 Mar 2026 08:10:00 GMT</pubDate>
  </item>
  <item>
    <title>Taiwan Strait tension rises</title>
    <link>https://news.example.com/a/3</link>
    <pubDate>Fri, 20 Feb 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>KOSPI rally extends to record high</title>
    <description>Chipmakers lead gains.</description>
    <link>https://news.example.com/a/4</link>
    <pubDate>Tue, 03 Mar 2026 07:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Tokyo weather stays mild</title>
    <link>https://news.example.com/a/5</link>
    <pubDate>Tue, 03 Mar 2026 06:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

var testNow = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

func serveFeed(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func ids(signals []domain.NormalizedSignal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Headline
	}
	return out
}

func TestSource_Fetch(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, feedXML)
	src := rss.New("world", srv.URL, graph.MustDefault(), clockwork.NewFakeClockAt(testNow), slog.Default())

	got, err := src.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2, "headlines: %v", ids(got))

	missile := got[0]
	assert.Equal(t, "North Korea fires ballistic missile toward Yellow Sea", missile.Headline)
	assert.Equal(t, domain.SourceNewsSentiment, missile.Source)
	assert.Equal(t, domain.DirectionRiskOff, missile.Direction)
	assert.InDelta(t, 40, missile.Strength, 1e-9)
	assert.Contains(t, missile.AffectedEntityIDs, "country:KP")
	assert.Contains(t, missile.AffectedEntityIDs, "region:korean_peninsula")
	assert.Equal(t, time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC), missile.Timestamp.UTC())
	assert.Equal(t, "https://news.example.com/a/1", missile.Raw["link"])
	assert.Equal(t, "world", missile.Raw["feed"])
	assert.Len(t, missile.ID, 20)

	kospi := got[1]
	assert.Equal(t, domain.DirectionRiskOn, kospi.Direction)
	assert.Contains(t, kospi.AffectedEntityIDs, "asset:KS11")
	assert.Contains(t, kospi.AffectedEntityIDs, "sector:semiconductors")
}

func TestSource_StableIDs(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, feedXML)
	src := rss.New("world", srv.URL, graph.MustDefault(), clockwork.NewFakeClockAt(testNow), nil)

	first, err := src.Fetch(context.Background())
	require.NoError(t, err)
	second, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestSource_HTTPError(t *testing.T) {
	srv := serveFeed(t, http.StatusInternalServerError, "")
	src := rss.New("world", srv.URL, graph.MustDefault(), clockwork.NewFakeClockAt(testNow), nil)

	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}

func TestSource_MalformedFeed(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, "<html>not a feed</html")
	src := rss.New("world", srv.URL, graph.MustDefault(), clockwork.NewFakeClockAt(testNow), nil)

	_, err := src.Fetch(context.Background())

	assert.Error(t, err)
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "rss:feeds.example.com", rss.NameFromURL("https://feeds.example.com/world.xml"))
	assert.Equal(t, "rss", rss.NameFromURL("not a url"))
	assert.Equal(t, "rss:feeds.example.com", rss.New("", "https://feeds.example.com/x", nil, nil, nil).Name())
}
