package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
	"github.com/couchcryptid/signal-fusion-service/internal/observability"
)

// --- mocks ---

// fakeReader serves queued messages, then blocks until the fetch context
// expires, the way a caught-up consumer does. With trickle set, an empty
// queue yields a fresh message every trickle interval instead.
type fakeReader struct {
	mu             sync.Mutex
	queue          []kafkago.Message
	trickle        time.Duration
	nextOffset     int64
	fetchErr       error
	commitErr      error
	commitFailures int
	onCommit       func()
	committed      []kafkago.Message
	closed         bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		err := f.fetchErr
		f.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	trickle := f.trickle
	f.mu.Unlock()

	if trickle <= 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	select {
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	case <-time.After(trickle):
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOffset++
	id := fmt.Sprintf("tick-%d", f.nextOffset)
	return signalMessage(f.nextOffset, `{"id":"`+id+`","source":"market","strength":10}`), nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if f.onCommit != nil {
		f.onCommit()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	if f.commitFailures > 0 {
		f.commitFailures--
		return errors.New("rebalance in progress")
	}
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) committedOffset() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var high int64 = -1
	for _, m := range f.committed {
		high = max(high, m.Offset)
	}
	return high
}

func signalMessage(offset int64, value string) kafkago.Message {
	return kafkago.Message{
		Topic:  "normalized-signals",
		Offset: offset,
		Value:  []byte(value),
		Time:   time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC),
	}
}

func newTestReader(f *fakeReader, batch int) *Reader {
	return newReader(f, batch, 20*time.Millisecond, 50*time.Millisecond, slog.Default(), observability.NewMetricsForTesting())
}

func signalIDs(signals []domain.NormalizedSignal) []string {
	ids := make([]string, len(signals))
	for i, s := range signals {
		ids[i] = s.ID
	}
	return ids
}

// --- tests ---

func TestReader_DrainsAndCommits(t *testing.T) {
	f := &fakeReader{queue: []kafkago.Message{
		signalMessage(1, `{"id":"sat-1","source":"satellite_thermal","strength":60,"direction":"risk_off","affected_entity_ids":["region:korean_peninsula"],"confidence":0.8,"timestamp":"2026-03-03T07:30:00Z"}`),
		signalMessage(2, `{"id":"usgs-1","source":"seismic","strength":40,"affected_entity_ids":["country:JP"]}`),
	}}
	r := newTestReader(f, 10)

	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sat-1", got[0].ID)
	assert.Equal(t, domain.SourceSatelliteThermal, got[0].Source)
	assert.Equal(t, []string{"region:korean_peninsula"}, got[0].AffectedEntityIDs)
	assert.Equal(t, time.Date(2026, time.March, 3, 7, 30, 0, 0, time.UTC), got[0].Timestamp)
	assert.Equal(t, time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC), got[1].Timestamp, "missing timestamp falls back to the message time")
	assert.Equal(t, int64(2), f.committedOffset())
}

func TestReader_RespectsBatchSize(t *testing.T) {
	f := &fakeReader{queue: []kafkago.Message{
		signalMessage(1, `{"id":"a","source":"market"}`),
		signalMessage(2, `{"id":"b","source":"market"}`),
		signalMessage(3, `{"id":"c","source":"market"}`),
	}}
	r := newTestReader(f, 2)

	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), f.committedOffset())
	assert.Len(t, f.queue, 1, "the rest waits for the next cycle")
}

func TestReader_SkipsAndCommitsUndecodable(t *testing.T) {
	f := &fakeReader{queue: []kafkago.Message{
		signalMessage(1, `not-json{{{`),
		signalMessage(2, `{"id":"x"}`),
		signalMessage(3, `{"id":"ok","source":"market","strength":20}`),
	}}
	r := newTestReader(f, 10)

	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, int64(3), f.committedOffset(), "undecodable messages are committed past")
}

func TestReader_EmptyTopic(t *testing.T) {
	f := &fakeReader{}
	r := newTestReader(f, 10)

	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, f.committed)
}

func TestReader_FetchErrorBeforeAnyMessage(t *testing.T) {
	f := &fakeReader{fetchErr: errors.New("broker unreachable")}
	r := newTestReader(f, 10)

	_, err := r.Fetch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestReader_CommitFailureKeepsSignalsAndRetries(t *testing.T) {
	f := &fakeReader{
		queue: []kafkago.Message{
			signalMessage(1, `{"id":"a","source":"market"}`),
			signalMessage(2, `{"id":"b","source":"market"}`),
		},
		commitFailures: 1,
	}
	r := newTestReader(f, 10)

	first, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, signalIDs(first), "signals survive a failed commit")
	assert.Empty(t, f.committed)

	f.mu.Lock()
	f.queue = append(f.queue, signalMessage(3, `{"id":"c","source":"market"}`))
	f.mu.Unlock()

	second, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, signalIDs(second))
	assert.Equal(t, int64(3), f.committedOffset())
}

func TestReader_RetriesPendingCommitOnIdleTopic(t *testing.T) {
	f := &fakeReader{
		queue:          []kafkago.Message{signalMessage(7, `{"id":"a","source":"market"}`)},
		commitFailures: 1,
	}
	r := newTestReader(f, 10)

	_, err := r.Fetch(context.Background())
	require.NoError(t, err)
	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(7), f.committedOffset())
}

func TestReader_DrainStopsBeforeDeadline(t *testing.T) {
	f := &fakeReader{trickle: 5 * time.Millisecond}
	r := newTestReader(f, 10_000)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	got, err := r.Fetch(ctx)

	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "returned before the deadline")
	require.NotEmpty(t, got)
	assert.Equal(t, fmt.Sprintf("tick-%d", f.committedOffset()), got[len(got)-1].ID, "everything returned is committed")
}

func TestReader_CarriesSignalsWhenCallerGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeReader{
		queue:    []kafkago.Message{signalMessage(1, `{"id":"a","source":"market"}`)},
		onCommit: cancel,
	}
	r := newTestReader(f, 10)

	got, err := r.Fetch(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), f.committedOffset(), "commit is detached from the caller's context")

	f.onCommit = nil
	next, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, signalIDs(next))
}

func TestReader_CarryOverSurvivesFetchError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeReader{
		queue:    []kafkago.Message{signalMessage(1, `{"id":"a","source":"market"}`)},
		onCommit: cancel,
	}
	r := newTestReader(f, 10)
	_, err := r.Fetch(ctx)
	require.Error(t, err)

	f.onCommit = nil
	f.fetchErr = errors.New("broker unreachable")
	_, err = r.Fetch(context.Background())
	require.Error(t, err)

	f.fetchErr = nil
	got, err := r.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, signalIDs(got))
}

func TestLatestOffsets(t *testing.T) {
	msgs := []kafkago.Message{
		{Topic: "s", Partition: 0, Offset: 4},
		{Topic: "s", Partition: 1, Offset: 9},
		{Topic: "s", Partition: 0, Offset: 6},
		{Topic: "s", Partition: 0, Offset: 5},
	}

	got := latestOffsets(msgs)

	require.Len(t, got, 2)
	assert.Equal(t, int64(6), got[0].Offset)
	assert.Equal(t, int64(9), got[1].Offset)
}

func TestReader_CloseClosesUnderlyingReader(t *testing.T) {
	f := &fakeReader{}
	r := newTestReader(f, 10)

	require.NoError(t, r.Close())
	assert.True(t, f.closed)
	assert.Equal(t, SourceName, r.Name())
}

func TestDecodeSignal_KeyFallback(t *testing.T) {
	msg := kafkago.Message{Key: []byte("from-key"), Value: []byte(`{"source":"seismic"}`)}

	s, err := decodeSignal(msg)

	require.NoError(t, err)
	assert.Equal(t, "from-key", s.ID)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	b := domain.InsightBriefing{
		ID:              "brief-1",
		GeneratedAt:     now,
		RiskScore:       62,
		RiskLabel:       "HIGH",
		NarrativeMethod: domain.NarrativeTemplate,
	}

	msg, err := serializeToMessage(b)
	require.NoError(t, err)

	assert.Equal(t, []byte("brief-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"risk_score":62`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "risk_label", msg.Headers[0].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[0].Value)
	assert.Equal(t, "narrative_method", msg.Headers[1].Key)
	assert.Equal(t, []byte("template"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}
