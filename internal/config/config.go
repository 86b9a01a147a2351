package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string
	KafkaSignalTopic   string
	KafkaBriefingTopic string
	KafkaGroupID       string
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	BriefingInterval time.Duration
	SourceTimeout    time.Duration
	SignalBatchSize  int
	RSSFeeds         []string
	Calendar         []domain.CalendarEvent

	// Text generation. An empty OpenAIKey selects the template narrative.
	OpenAIKey           string
	OpenAIBaseURL       string
	OpenAIModel         string
	NarrativeLanguage   string
	NarrativeRatePerMin int

	SystemicSynthesis bool
}

// LoadDotEnv loads a .env file from the working directory when present.
// A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	interval, err := parsePositiveDuration("BRIEFING_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("SIGNAL_BATCH_SIZE", 500)
	if err != nil {
		return nil, err
	}
	ratePerMin, err := parsePositiveInt("NARRATIVE_RATE_PER_MIN", 6)
	if err != nil {
		return nil, err
	}

	calendar, err := domain.ParseCalendar(os.Getenv("CALENDAR_EVENTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALENDAR_EVENTS: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSignalTopic:   sharedcfg.EnvOrDefault("KAFKA_SIGNAL_TOPIC", "normalized-signals"),
		KafkaBriefingTopic: sharedcfg.EnvOrDefault("KAFKA_BRIEFING_TOPIC", "insight-briefings"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "signal-fusion"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,

		BriefingInterval: interval,
		SourceTimeout:    sourceTimeout,
		SignalBatchSize:  batchSize,
		RSSFeeds:         splitList(os.Getenv("RSS_FEEDS")),
		Calendar:         calendar,

		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:         sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		NarrativeLanguage:   sharedcfg.EnvOrDefault("NARRATIVE_LANGUAGE", "English"),
		NarrativeRatePerMin: ratePerMin,

		SystemicSynthesis: os.Getenv("SYSTEMIC_SYNTHESIS_ENABLED") == "true",
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSignalTopic == "" {
		return nil, errors.New("KAFKA_SIGNAL_TOPIC is required")
	}
	if cfg.KafkaBriefingTopic == "" {
		return nil, errors.New("KAFKA_BRIEFING_TOPIC is required")
	}

	return cfg, nil
}

// NarrativeEnabled reports whether a text-generation credential is configured.
func (c *Config) NarrativeEnabled() bool {
	return c.OpenAIKey != ""
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
