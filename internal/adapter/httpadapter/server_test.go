package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/signal-fusion-service/internal/adapter/httpadapter"
)

type mockStatus struct {
	err    error
	lastID string
	lastAt time.Time
}

func (m *mockStatus) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockStatus) LastPublished() (string, time.Time, bool) {
	return m.lastID, m.lastAt, m.lastID != ""
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockStatus{}, slog.Default())

	assert.Equal(t, http.StatusOK, serve(srv, "/healthz").Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockStatus{}, slog.Default())

	assert.Equal(t, http.StatusOK, serve(srv, "/readyz").Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockStatus{err: errors.New("no briefing has been published yet")}, slog.Default())

	assert.Equal(t, http.StatusServiceUnavailable, serve(srv, "/readyz").Code)
}

func TestStatusReportsLastBriefing(t *testing.T) {
	at := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	srv := httpadapter.NewServer(":0", &mockStatus{lastID: "brief-7", lastAt: at}, slog.Default())

	rec := serve(srv, "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Ready           bool      `json:"ready"`
		LastBriefingID  string    `json:"last_briefing_id"`
		LastPublishedAt time.Time `json:"last_published_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	assert.Equal(t, "brief-7", body.LastBriefingID)
	assert.Equal(t, at, body.LastPublishedAt)
}

func TestStatusBeforeFirstBriefing(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockStatus{err: errors.New("no briefing has been published yet")}, slog.Default())

	rec := serve(srv, "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ready"])
	assert.Equal(t, "no briefing has been published yet", body["error"])
	assert.NotContains(t, body, "last_briefing_id")
	assert.NotContains(t, body, "last_published_at")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockStatus{}, slog.Default())

	rec := serve(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
