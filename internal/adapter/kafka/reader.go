package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/signal-fusion-service/internal/config"
	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

// SourceName identifies the signal topic in stale warnings and metrics.
const SourceName = "kafka"

// DefaultFetchWait bounds how long the reader waits for the next message
// before treating the topic as drained for this cycle.
const DefaultFetchWait = 500 * time.Millisecond

// DefaultCommitReserve is the time held back from the fetch deadline for
// committing offsets. It also bounds each commit.
const DefaultCommitReserve = time.Second

// messageReader is the subset of *kafkago.Reader the Reader uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes normalized signals from the signal topic. It implements
// briefing.Source: each Fetch drains what is available, up to the batch size.
//
// kafka-go advances the consumer position on fetch, so nothing read is ever
// dropped here. Offsets that fail to commit are retried with the next batch,
// and signals drained after the caller gave up are carried into the next
// Fetch.
type Reader struct {
	reader        messageReader
	batchSize     int
	fetchWait     time.Duration
	commitReserve time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics

	mu      sync.Mutex
	pending []kafkago.Message
	carry   []domain.NormalizedSignal
}

// NewReader creates a consumer-group reader for the configured signal topic.
func NewReader(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaSignalTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	return newReader(r, cfg.SignalBatchSize, DefaultFetchWait, DefaultCommitReserve, logger, metrics)
}

func newReader(r messageReader, batchSize int, fetchWait, commitReserve time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	if batchSize <= 0 {
		batchSize = 1
	}
	if commitReserve <= 0 {
		commitReserve = DefaultCommitReserve
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		reader:        r,
		batchSize:     batchSize,
		fetchWait:     fetchWait,
		commitReserve: commitReserve,
		logger:        logger,
		metrics:       metrics,
	}
}

func (r *Reader) Name() string { return SourceName }

// Fetch reads up to the batch size, decodes each message as a
// NormalizedSignal and commits everything it read, undecodable messages
// included. The drain stops early enough to commit before ctx's deadline.
// A failed commit is logged and retried on the next Fetch; the decoded
// signals are still returned.
func (r *Reader) Fetch(ctx context.Context) ([]domain.NormalizedSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	signals := append(make([]domain.NormalizedSignal, 0, len(r.carry)+r.batchSize), r.carry...)
	r.carry = nil

	msgs, err := r.drain(ctx, &signals)
	if err != nil {
		r.carry = signals
		return nil, err
	}

	r.commit(ctx, msgs)

	if err := ctx.Err(); err != nil {
		r.carry = signals
		return nil, fmt.Errorf("signal batch held for next fetch: %w", err)
	}
	r.logger.Debug("signal batch drained", "messages", len(msgs), "signals", len(signals))
	return signals, nil
}

// drain fetches messages until the batch is full, the topic is idle for
// fetchWait, or the drain deadline passes. Decoded signals are appended to
// signals.
func (r *Reader) drain(ctx context.Context, signals *[]domain.NormalizedSignal) ([]kafkago.Message, error) {
	drainCtx, cancel := r.drainContext(ctx)
	defer cancel()

	msgs := make([]kafkago.Message, 0, r.batchSize)
	for len(msgs) < r.batchSize {
		msg, err := r.fetchOne(drainCtx)
		if err != nil {
			if drainCtx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
				if len(msgs) == 0 {
					return nil, fmt.Errorf("fetch signal: %w", err)
				}
				r.logger.Warn("fetch signal failed, returning partial batch", "error", err, "read", len(msgs))
			}
			break
		}
		msgs = append(msgs, msg)

		s, err := decodeSignal(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable signal",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if r.metrics != nil {
				r.metrics.DecodeErrors.Inc()
			}
			continue
		}
		*signals = append(*signals, s)
	}
	if r.metrics != nil && len(msgs) > 0 {
		r.metrics.MessagesConsumed.Add(float64(len(msgs)))
	}
	return msgs, nil
}

// drainContext ends the drain a commit reserve before ctx's deadline. The
// reserve is capped at a quarter of the remaining time.
func (r *Reader) drainContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	reserve := min(r.commitReserve, time.Until(deadline)/4)
	return context.WithDeadline(ctx, deadline.Add(-reserve))
}

// commit commits msgs together with offsets left over from a failed commit.
// It runs on a context detached from ctx's cancellation so an expiring
// fetch deadline cannot abort it.
func (r *Reader) commit(ctx context.Context, msgs []kafkago.Message) {
	all := latestOffsets(append(r.pending, msgs...))
	r.pending = nil
	if len(all) == 0 {
		return
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.commitReserve)
	defer cancel()
	if err := r.reader.CommitMessages(commitCtx, all...); err != nil {
		r.logger.Warn("commit signals failed, retrying with next batch", "error", err, "partitions", len(all))
		if r.metrics != nil {
			r.metrics.CommitErrors.Inc()
		}
		r.pending = all
	}
}

// latestOffsets keeps the highest-offset message per topic partition, which
// is all a consumer-group commit needs.
func latestOffsets(msgs []kafkago.Message) []kafkago.Message {
	type partition struct {
		topic string
		id    int
	}
	idx := make(map[partition]int, len(msgs))
	out := make([]kafkago.Message, 0, len(msgs))
	for _, m := range msgs {
		k := partition{m.Topic, m.Partition}
		i, seen := idx[k]
		if !seen {
			idx[k] = len(out)
			out = append(out, m)
			continue
		}
		if m.Offset > out[i].Offset {
			out[i] = m
		}
	}
	return out
}

func (r *Reader) fetchOne(ctx context.Context) (kafkago.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchWait)
	defer cancel()
	return r.reader.FetchMessage(fetchCtx)
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// decodeSignal unmarshals a message value into a NormalizedSignal. A message
// without an id takes its key as the id.
func decodeSignal(msg kafkago.Message) (domain.NormalizedSignal, error) {
	var s domain.NormalizedSignal
	if err := json.Unmarshal(msg.Value, &s); err != nil {
		return domain.NormalizedSignal{}, fmt.Errorf("decode signal: %w", err)
	}
	if s.ID == "" {
		s.ID = string(msg.Key)
	}
	if s.ID == "" {
		return domain.NormalizedSignal{}, errors.New("decode signal: missing id")
	}
	if s.Source == "" {
		return domain.NormalizedSignal{}, fmt.Errorf("decode signal %s: missing source", s.ID)
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = msg.Time
	}
	return s, nil
}
