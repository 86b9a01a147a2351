package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/signal-fusion-service/internal/config"
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

// Writer publishes briefings to the briefing topic.
// It implements scheduler.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured briefing topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaBriefingTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one briefing and writes it keyed by briefing id.
func (w *Writer) Publish(ctx context.Context, b domain.InsightBriefing) error {
	msg, err := serializeToMessage(b)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish briefing %s: %w", b.ID, err)
	}
	w.logger.Debug("briefing published", "briefing_id", b.ID, "topic", w.writer.Topic, "bytes", len(msg.Value))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an InsightBriefing into a Kafka message.
func serializeToMessage(b domain.InsightBriefing) (kafkago.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize briefing: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(b.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_label", Value: []byte(b.RiskLabel)},
			{Key: "narrative_method", Value: []byte(b.NarrativeMethod)},
			{Key: "generated_at", Value: []byte(b.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
