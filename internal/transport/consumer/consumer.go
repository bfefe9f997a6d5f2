package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/orderddd/internal/service/events"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeStored   = "stored"
	outcomeRejected = "rejected"
	outcomeRequeued = "requeued"
)

// service represents the service layer interface.
type service interface {
	ProcessEvent(ctx context.Context, env events.Envelope) error
}

type broker interface {
	DeclareTopicExchange(name string) error
	DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error)
	BindQueue(queue, exchange string, keys []string) error
	Qos(prefetch int) error
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
	Cancel(consumer string) error
}

// Consumer represents the RabbitMQ consumer transport.
type Consumer struct {
	client      broker
	service     service
	metrics     *metrics.ServerMetrics
	queue       amqp.Queue
	consumerTag string
	stop        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

// NewConsumer declares the exchange, the durable queue and its bindings.
func NewConsumer(client broker, service service, m *metrics.ServerMetrics) *Consumer {
	exchange := viper.GetString("rabbitmq.exchange")
	queueName := viper.GetString("rabbitmq.queue")
	if exchange == "" || queueName == "" {
		panic("rabbitmq.exchange and rabbitmq.queue must be set in config")
	}

	if err := client.DeclareTopicExchange(exchange); err != nil {
		panic(err)
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	if err := client.BindQueue(queue.Name, exchange, viper.GetStringSlice("rabbitmq.binding_keys")); err != nil {
		panic(err)
	}

	if prefetch := viper.GetInt("rabbitmq.prefetch"); prefetch > 0 {
		if err := client.Qos(prefetch); err != nil {
			panic(err)
		}
	}

	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "audit-consumer"
	}

	return &Consumer{
		client:      client,
		service:     service,
		metrics:     m,
		queue:       queue,
		consumerTag: consumerTag,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run consumes until Shutdown, ctx cancellation or a closed delivery channel.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: c.consumerTag,
	})
	if err != nil {
		close(c.done)

		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", c.consumerTag)

	g := errgroup.Group{}
	g.SetLimit(50)

loop:
	for {
		select {
		case <-ctx.Done():
			slog.Info("Context cancelled, stopping consumer")

			break loop
		case <-c.stop:
			slog.Info("Stopping consumer")

			break loop
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				break loop
			}

			g.Go(func() error {
				c.processMessage(ctx, msg)

				return nil
			})
		}
	}

	_ = g.Wait()
	close(c.done)

	return nil
}

// processMessage stores one delivery. Malformed bodies are dropped, storage
// failures are requeued.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message_id", msg.MessageId),
			attribute.String("messaging.routing_key", msg.RoutingKey),
		))
	defer span.End()

	env, err := events.Decode(msg.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Failed to decode event", "delivery_tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}
		c.count(msg.RoutingKey, outcomeRejected)

		return
	}

	if err := c.service.ProcessEvent(ctx, env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if err := msg.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}
		c.count(env.EventName, outcomeRequeued)

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "event_id", env.EventID, "error", err)

		return
	}
	c.count(env.EventName, outcomeStored)
}

func (c *Consumer) count(event, outcome string) {
	if c.metrics != nil {
		c.metrics.ConsumedEvents.WithLabelValues(event, outcome).Inc()
	}
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")

	if err := c.client.Cancel(c.consumerTag); err != nil {
		slog.Error("Failed to cancel consumer", "error", err)
	}
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
