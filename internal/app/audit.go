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
	auditrepo "github.com/corray333/backend-labs/orderddd/internal/dal/repositories/audit/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/otel"
	"github.com/corray333/backend-labs/orderddd/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/orderddd/internal/transport/consumer"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
)

// AuditApp is the audit consumer process.
type AuditApp struct {
	consumerTransp *consumer.Consumer
	opsServer      *http.Server
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewAuditApp creates the audit consumer application.
func MustNewAuditApp() *AuditApp {
	otelController := otel.MustInitOtel("audit-consumer")
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient("AUDIT", viper.GetString("postgres.audit_migrations_path"))

	serverMetrics := metrics.NewServerMetrics("audit_consumer")

	auditRepository := auditrepo.NewAuditRepository(postgresClient.Pool())

	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithAuditRepository(auditRepository),
	)

	consumerTransp := consumer.NewConsumer(rabbitMqClient, auditSvc, serverMetrics)

	return &AuditApp{
		consumerTransp: consumerTransp,
		opsServer:      newOpsServer(serverMetrics, postgresClient),
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// newOpsServer serves /metrics and /healthz for the consumer.
func newOpsServer(m *metrics.ServerMetrics, pg *postgres.Client) *http.Server {
	router := chi.NewMux()
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pg.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("consumer.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *AuditApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting ops server", "addr", a.opsServer.Addr)
		if err := a.opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Ops server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
}

func (a *AuditApp) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.opsServer.Shutdown(ctx); err != nil {
		slog.Error("Ops server shutdown error", "error", err)
	}

	closeShared(ctx, a.rabbitMqClient, a.postgresClient, a.otelController)
}
