package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/orderddd/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/otel"
	"github.com/corray333/backend-labs/orderddd/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/orderddd/internal/service/services/usersvc"
	httptransport "github.com/corray333/backend-labs/orderddd/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/orderddd/internal/worker/outbox"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/spf13/viper"
)

// OrderApp is the order service process: HTTP API plus outbox relay.
type OrderApp struct {
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewOrderApp creates the order service application.
func MustNewOrderApp() *OrderApp {
	otelController := otel.MustInitOtel("order-svc")
	postgresClient := postgres.MustNewClient("ORDER", viper.GetString("postgres.migrations_path"))
	rabbitMqClient := rabbitmq.MustNewClient()

	if err := rabbitMqClient.DeclareTopicExchange(viper.GetString("rabbitmq.exchange")); err != nil {
		panic(err)
	}

	serverMetrics := metrics.NewServerMetrics("order_svc")

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)
	userSvc := usersvc.MustNewUserService(
		usersvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, userSvc, serverMetrics, postgresClient)
	transport.RegisterRoutes()

	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	outboxWorker := outboxworker.NewWorker(outboxRepository, rabbitMqClient, serverMetrics)

	return &OrderApp{
		transport:      transport,
		outboxWorker:   outboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *OrderApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the HTTP server and the worker before closing connections.
func (a *OrderApp) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	closeShared(ctx, a.rabbitMqClient, a.postgresClient, a.otelController)
}

// closeShared releases the connections both processes hold.
func closeShared(ctx context.Context, mq *rabbitmq.Client, pg *postgres.Client, oc *otel.OtelController) {
	if err := mq.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	pg.Close()
	slog.Info("Database connection closed gracefully")

	if err := oc.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
