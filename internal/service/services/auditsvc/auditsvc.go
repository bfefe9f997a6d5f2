package auditsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/orderddd/internal/service/events"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/audit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AuditService stores consumed domain events, once per event id.
type AuditService struct {
	auditRepo iauditrepo.IAuditRepository
	now       func() time.Time
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.auditRepo == nil {
		panic("auditsvc: audit repository is required")
	}

	return s
}

// WithAuditRepository sets the audit repository for the AuditService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRepository(auditRepo iauditrepo.IAuditRepository) option {
	return func(s *AuditService) {
		s.auditRepo = auditRepo
	}
}

// ProcessEvent records env. A redelivered event is acknowledged without a second row.
func (s *AuditService) ProcessEvent(ctx context.Context, env events.Envelope) error {
	ctx, span := otel.Tracer("service").Start(ctx, "AuditService.ProcessEvent",
		trace.WithAttributes(
			attribute.String("event.id", env.EventID),
			attribute.String("event.name", env.EventName),
		))
	defer span.End()

	inserted, err := s.auditRepo.Save(ctx, audit.Record{
		EventID:       env.EventID,
		EventName:     env.EventName,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		Payload:       env.Payload,
		OccurredAt:    env.OccurredAt,
		ReceivedAt:    s.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Failed to save audit record", "event_id", env.EventID, "error", err)

		return err
	}

	if !inserted {
		slog.Info("Duplicate event skipped", "event_id", env.EventID, "event", env.EventName)

		return nil
	}

	slog.Info("Event audited",
		"event_id", env.EventID,
		"event", env.EventName,
		"aggregate_id", env.AggregateID)

	return nil
}
