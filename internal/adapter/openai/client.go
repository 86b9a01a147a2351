// Package openai implements narrative.Generator on top of an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/signal-fusion-service/internal/narrative"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

// Config configures the chat client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// RatePerMin bounds outgoing requests; zero or less disables limiting.
	RatePerMin int
	Timeout    time.Duration
	MaxRetries int
}

// Client implements narrative.Generator using chat completions.
type Client struct {
	chat    *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ narrative.Generator = (*Client)(nil)

// NewClient creates a chat client. It returns nil when no API key is set so
// callers can treat the generator as absent.
func NewClient(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	chat := openai.NewClient(opts...)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), 1)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		chat:    &chat,
		model:   cfg.Model,
		timeout: timeout,
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

// Generate sends the system and user prompt and returns the first choice.
func (c *Client) Generate(ctx context.Context, p narrative.Prompt) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if p.System != "" {
		msgs = append(msgs, openai.SystemMessage(p.System))
	}
	msgs = append(msgs, openai.UserMessage(p.User))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(0.3),
	}
	if p.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
	}

	start := time.Now()
	resp, err := c.chat.Chat.Completions.New(ctx, body)
	if c.metrics != nil {
		c.metrics.NarrativeAPIDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}

	c.logger.Debug("narrative generated",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NewGenerator is NewClient typed as a narrative.Generator. Without an API
// key it returns a nil interface, which selects the template narrative.
func NewGenerator(cfg Config, logger *slog.Logger, metrics *observability.Metrics) narrative.Generator {
	c := NewClient(cfg, logger, metrics)
	if c == nil {
		return nil
	}
	return c
}
