package config

import (
	"log/slog"
	"strings"

	"github.com/corray333/backend-labs/orderddd/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml into viper and installs the default logger.
// configDir is the system-wide directory searched before the working directory.
func MustInit(configDir string) {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Warn("no .env file found, relying on process environment", "error", err)
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

// SetDefaults registers fallback values for every key the services read.
func SetDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Content-Type", "X-Request-Id"})
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("postgres.migrations_path", "./migrations/orders")
	viper.SetDefault("postgres.audit_migrations_path", "./migrations/audit")

	viper.SetDefault("consumer.http.port", "8081")

	viper.SetDefault("rabbitmq.exchange", "orders.events")
	viper.SetDefault("rabbitmq.queue", "audit.events")
	viper.SetDefault("rabbitmq.consumer_tag", "audit-consumer")
	viper.SetDefault("rabbitmq.binding_keys", []string{"order.*", "user.*"})
	viper.SetDefault("rabbitmq.prefetch", 50)
	viper.SetDefault("rabbitmq.outbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.outbox.batch_size", 100)
	viper.SetDefault("rabbitmq.outbox.retry_interval_seconds", 30)
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)

	viper.SetDefault("orders.max_conflict_retries", 3)

	viper.SetDefault("log.level", "info")

	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
}

func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}
