package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retry struct {
	id      int64
	count   int
	lastErr string
	next    time.Time
}

type fakeRepo struct {
	pending []outbox.OutboxMessage
	deleted []int64
	retries []retry
}

func (f *fakeRepo) Insert(context.Context, outbox.OutboxMessage) error { return nil }

func (f *fakeRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}

	return f.pending, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *fakeRepo) UpdateRetry(_ context.Context, id int64, count int, lastErr string, next time.Time) error {
	f.retries = append(f.retries, retry{id, count, lastErr, next})

	return nil
}

type fakePublisher struct {
	failKeys  map[string]bool
	published []amqp.Publishing
}

func (p *fakePublisher) Publish(_, key string, msg amqp.Publishing) error {
	if p.failKeys[key] {
		return errors.New("channel closed")
	}
	p.published = append(p.published, msg)

	return nil
}

func newWorker(repo *fakeRepo, pub *fakePublisher, now time.Time) *Worker {
	return &Worker{
		outboxRepo:    repo,
		publisher:     pub,
		metrics:       metrics.NewServerMetrics("test"),
		batchSize:     10,
		retryInterval: 30 * time.Second,
		now:           func() time.Time { return now },
		stopCh:        make(chan struct{}),
	}
}

func TestProcessMessages(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{pending: []outbox.OutboxMessage{
		{ID: 1, EventID: "e1", RoutingKey: "order.created", Payload: []byte(`{}`), ContentType: "application/json", MaxRetries: 5},
		{ID: 2, EventID: "e2", RoutingKey: "order.confirmed", Payload: []byte(`{}`), RetryCount: 1, MaxRetries: 5},
	}}
	pub := &fakePublisher{failKeys: map[string]bool{"order.confirmed": true}}
	w := newWorker(repo, pub, now)

	w.processMessages(context.Background())

	require.Len(t, pub.published, 1)
	assert.Equal(t, "e1", pub.published[0].MessageId)
	assert.Equal(t, amqp.Persistent, pub.published[0].DeliveryMode)
	assert.Equal(t, []int64{1}, repo.deleted)

	require.Len(t, repo.retries, 1)
	r := repo.retries[0]
	assert.Equal(t, int64(2), r.id)
	assert.Equal(t, 2, r.count)
	assert.Equal(t, "channel closed", r.lastErr)
	assert.Equal(t, now.Add(2*time.Minute), r.next)

	assert.InDelta(t, 1, testutil.ToFloat64(w.metrics.OutboxPublished.WithLabelValues("order.created")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(w.metrics.OutboxFailed.WithLabelValues("order.confirmed")), 0)
}

func TestBackoff(t *testing.T) {
	w := newWorker(&fakeRepo{}, &fakePublisher{}, time.Now())

	assert.Equal(t, 60*time.Second, w.backoff(1))
	assert.Equal(t, 120*time.Second, w.backoff(2))
	assert.Equal(t, 240*time.Second, w.backoff(3))
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	w := newWorker(&fakeRepo{}, &fakePublisher{}, time.Now())
	w.pollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
