package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

type publisher interface {
	Publish(exchange, key string, msg amqp.Publishing) error
}

// Worker relays outbox rows to RabbitMQ.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     publisher
	metrics       *metrics.ServerMetrics
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
	m *metrics.ServerMetrics,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		metrics:       m,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff is 2^retryCount * retryInterval.
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount))) * w.retryInterval
}

// processMessages publishes one batch. Rows are deleted after a successful
// publish and rescheduled otherwise; delivery is at least once.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := w.publish(msg); err != nil {
			w.reschedule(ctx, msg, err)

			continue
		}

		if w.metrics != nil {
			w.metrics.OutboxPublished.WithLabelValues(msg.RoutingKey).Inc()
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)
		}
	}
}

func (w *Worker) publish(msg outbox.OutboxMessage) error {
	return w.publisher.Publish(msg.ExchangeName, msg.RoutingKey, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EventID,
		Type:         msg.RoutingKey,
		Timestamp:    msg.CreatedAt,
		Body:         msg.Payload,
	})
}

func (w *Worker) reschedule(ctx context.Context, msg outbox.OutboxMessage, cause error) {
	if w.metrics != nil {
		w.metrics.OutboxFailed.WithLabelValues(msg.RoutingKey).Inc()
	}

	newRetryCount := msg.RetryCount + 1
	nextRetryAt := w.now().Add(w.backoff(newRetryCount))

	level := slog.LevelWarn
	if newRetryCount >= msg.MaxRetries {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "Failed to publish message from outbox",
		"outbox_id", msg.ID,
		"event_id", msg.EventID,
		"retry_count", newRetryCount,
		"max_retries", msg.MaxRetries,
		"next_retry", nextRetryAt,
		"error", cause,
	)

	if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
	}
}
