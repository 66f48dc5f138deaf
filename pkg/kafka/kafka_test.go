package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	done      chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, done: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeDLQ struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (d *fakeDLQ) Publish(_ context.Context, original kafka.Message, cause error, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, original)
	d.causes = append(d.causes, cause)
	return nil
}

func eventMessage(t *testing.T, topic, eventType string) kafka.Message {
	t.Helper()
	ev, err := NewEvent(eventType, "agg-1", "product", "storefront", map[string]string{"k": "v"})
	require.NoError(t, err)
	raw, err := ev.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Value: raw}
}

// runConsumer starts c and stops it once the reader has drained its queue.
func runConsumer(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain queue")
	}
	cancel()
	require.NoError(t, <-errCh)
}

func TestEvent_RoundTripPayload(t *testing.T) {
	ev, err := NewEvent("order.placed", "o-1", "order", "storefront", map[string]int{"items": 2})
	require.NoError(t, err)
	ev.WithCorrelationID("corr").WithMetadata("k", "v")

	raw, err := ev.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, "corr", got.CorrelationID)
	assert.Equal(t, "v", got.Metadata["k"])

	var data map[string]int
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, 2, data["items"])
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{nope"))
	assert.Error(t, err)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "storefront.products", Topic("products"))
	assert.Equal(t, "storefront.dlq.storefront.orders", DLQTopic("storefront.orders"))
}

func TestProducer_PublishSetsKeyAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: testLogger()}

	ev, err := NewEvent("product.created", "p-1", "product", "storefront", struct{}{})
	require.NoError(t, err)
	ev.WithCorrelationID("c-1")

	before := testutil.ToFloat64(producerMessages.WithLabelValues("t.publish", outcomePublished))
	require.NoError(t, p.Publish(context.Background(), "t.publish", ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "t.publish", msg.Topic)
	assert.Equal(t, []byte("p-1"), msg.Key)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "product.created", headers["event_type"])
	assert.Equal(t, "c-1", headers["correlation_id"])
	assert.Equal(t, before+1, testutil.ToFloat64(producerMessages.WithLabelValues("t.publish", outcomePublished)))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Producer{writer: w, logger: testLogger()}

	ev, err := NewEvent("product.created", "p-1", "product", "storefront", nil)
	require.NoError(t, err)

	before := testutil.ToFloat64(producerMessages.WithLabelValues("t.err", outcomeFailed))
	err = p.Publish(context.Background(), "t.err", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, before+1, testutil.ToFloat64(producerMessages.WithLabelValues("t.err", outcomeFailed)))
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "x", &Event{}))
}

func TestDLQProducer_AnnotatesHeaders(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, logger: testLogger()}

	orig := kafka.Message{
		Topic:     "storefront.products",
		Partition: 2,
		Offset:    41,
		Key:       []byte("k"),
		Value:     []byte("v"),
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("product.created")}},
	}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("boom"), "indexer"))

	require.Len(t, w.msgs, 1)
	got := w.msgs[0]
	assert.Equal(t, "storefront.dlq.storefront.products", got.Topic)
	assert.Equal(t, []byte("v"), got.Value)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "product.created", headers["event_type"])
	assert.Equal(t, "2", headers["dlq.original_partition"])
	assert.Equal(t, "41", headers["dlq.original_offset"])
	assert.Equal(t, "indexer", headers["dlq.consumer_group"])
	assert.Equal(t, "boom", headers["dlq.error"])
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(eventMessage(t, "t.ok", "product.created"))
	var handled int
	c := newConsumer(r, "t.ok", "g", func(_ context.Context, ev *Event) error {
		handled++
		assert.Equal(t, "product.created", ev.EventType)
		return nil
	}, testLogger())

	runConsumer(t, c, r)

	assert.Equal(t, 1, handled)
	assert.Len(t, r.committed, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerMessages.WithLabelValues("t.ok", "g", outcomeProcessed)))
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := newFakeReader(eventMessage(t, "t.fail", "product.updated"))
	dlq := &fakeDLQ{}
	var attempts int
	c := newConsumer(r, "t.fail", "g", func(context.Context, *Event) error {
		attempts++
		return errors.New("index unavailable")
	}, testLogger())
	c.dlq = dlq
	c.backoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, maxHandlerRetries, attempts)
	require.Len(t, dlq.msgs, 1)
	assert.EqualError(t, dlq.causes[0], "index unavailable")
	assert.Len(t, r.committed, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerMessages.WithLabelValues("t.fail", "g", outcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerMessages.WithLabelValues("t.fail", "g", outcomeDeadLettered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerMessages.WithLabelValues("t.fail", "g", outcomeReceived)))
}

func TestConsumer_RecoversAfterTransientFailure(t *testing.T) {
	r := newFakeReader(eventMessage(t, "t.flaky", "product.updated"))
	dlq := &fakeDLQ{}
	var attempts int
	c := newConsumer(r, "t.flaky", "g", func(context.Context, *Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}, testLogger())
	c.dlq = dlq
	c.backoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, 2, attempts)
	assert.Empty(t, dlq.msgs)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_UndecodableMessageIsDeadLettered(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "t.bad", Value: []byte("not json")})
	dlq := &fakeDLQ{}
	c := newConsumer(r, "t.bad", "g", func(context.Context, *Event) error {
		t.Fatal("handler must not run")
		return nil
	}, testLogger())
	c.dlq = dlq

	runConsumer(t, c, r)

	assert.Len(t, dlq.msgs, 1)
	assert.Len(t, r.committed, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerMessages.WithLabelValues("t.bad", "g", outcomeUndecodable)))
	assert.Zero(t, testutil.ToFloat64(consumerMessages.WithLabelValues("t.bad", "g", outcomeFailed)))
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "e1"))
	ok, err := s.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = s.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisIdempotencyStore(client, "indexer", time.Hour)
	ctx := context.Background()

	ok, err := s.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, "e1"))
	ok, err = s.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("idem:indexer:e1"))

	mr.FastForward(2 * time.Hour)
	ok, err = s.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	var calls int
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	ev := &Event{EventID: "e1", EventType: "product.deleted"}
	before := testutil.ToFloat64(duplicateEvents.WithLabelValues("product.deleted"))
	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), ev))

	assert.Equal(t, 1, calls)
	assert.Equal(t, before+1, testutil.ToFloat64(duplicateEvents.WithLabelValues("product.deleted")))
}

func TestIdempotentHandler_FailureIsNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	fail := true
	var calls int
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		if fail {
			return errors.New("boom")
		}
		return nil
	}, testLogger())

	ev := &Event{EventID: "e2"}
	require.Error(t, h(context.Background(), ev))
	fail = false
	require.NoError(t, h(context.Background(), ev))
	assert.Equal(t, 2, calls)
}

type brokenStore struct{}

func (brokenStore) Contains(context.Context, string) (bool, error) { return false, errors.New("down") }
func (brokenStore) Add(context.Context, string) error              { return errors.New("down") }

func TestIdempotentHandler_StoreFailureStillProcesses(t *testing.T) {
	var calls int
	h := IdempotentHandler(brokenStore{}, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "e3"}))
	assert.Equal(t, 1, calls)
}
