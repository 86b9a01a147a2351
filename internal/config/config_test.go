package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testOpenAIKey = "sk-test-key"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CALENDAR_EVENTS", "")
	t.Setenv("RSS_FEEDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "normalized-signals", cfg.KafkaSignalTopic)
	assert.Equal(t, "insight-briefings", cfg.KafkaBriefingTopic)
	assert.Equal(t, "signal-fusion", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.BriefingInterval)
	assert.Equal(t, 10*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 500, cfg.SignalBatchSize)
	assert.Empty(t, cfg.RSSFeeds)
	assert.Empty(t, cfg.Calendar)
	assert.Empty(t, cfg.OpenAIKey)
	assert.False(t, cfg.NarrativeEnabled())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "English", cfg.NarrativeLanguage)
	assert.Equal(t, 6, cfg.NarrativeRatePerMin)
	assert.False(t, cfg.SystemicSynthesis)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SIGNAL_TOPIC", "custom-signals")
	t.Setenv("KAFKA_BRIEFING_TOPIC", "custom-briefings")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BRIEFING_INTERVAL", "1m")
	t.Setenv("SOURCE_TIMEOUT", "3s")
	t.Setenv("SIGNAL_BATCH_SIZE", "100")
	t.Setenv("RSS_FEEDS", "https://a.example/rss, https://b.example/atom ,")
	t.Setenv("CALENDAR_EVENTS", "FOMC rate decision@2026-03-18T18:00:00Z")
	t.Setenv("OPENAI_API_KEY", testOpenAIKey)
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("OPENAI_MODEL", "custom-model")
	t.Setenv("NARRATIVE_LANGUAGE", "Korean")
	t.Setenv("NARRATIVE_RATE_PER_MIN", "2")
	t.Setenv("SYSTEMIC_SYNTHESIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-signals", cfg.KafkaSignalTopic)
	assert.Equal(t, "custom-briefings", cfg.KafkaBriefingTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.BriefingInterval)
	assert.Equal(t, 3*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 100, cfg.SignalBatchSize)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/atom"}, cfg.RSSFeeds)
	require.Len(t, cfg.Calendar, 1)
	assert.Equal(t, "FOMC rate decision", cfg.Calendar[0].Name)
	assert.True(t, cfg.NarrativeEnabled())
	assert.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "custom-model", cfg.OpenAIModel)
	assert.Equal(t, "Korean", cfg.NarrativeLanguage)
	assert.Equal(t, 2, cfg.NarrativeRatePerMin)
	assert.True(t, cfg.SystemicSynthesis)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BRIEFING_INTERVAL", "soon"},
		{"BRIEFING_INTERVAL", "-1m"},
		{"SOURCE_TIMEOUT", "0s"},
		{"SIGNAL_BATCH_SIZE", "0"},
		{"SIGNAL_BATCH_SIZE", "many"},
		{"NARRATIVE_RATE_PER_MIN", "-3"},
		{"CALENDAR_EVENTS", "FOMC@tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, LoadDotEnv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NARRATIVE_LANGUAGE=Japanese\n"), 0o600))
	t.Setenv("NARRATIVE_LANGUAGE", "")
	require.NoError(t, os.Unsetenv("NARRATIVE_LANGUAGE"))
	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "Japanese", os.Getenv("NARRATIVE_LANGUAGE"))
}
