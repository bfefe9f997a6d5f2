package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/audit"
)

// AuditRepository implements the audit repository for PostgreSQL.
type AuditRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(conn postgres.GenericConn) *AuditRepository {
	return &AuditRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Save inserts rec unless its event id is already stored.
func (r *AuditRepository) Save(ctx context.Context, rec audit.Record) (bool, error) {
	query, args, err := r.sb.Insert("event_audit").
		Columns(
			"event_id",
			"event_name",
			"aggregate_type",
			"aggregate_id",
			"payload",
			"occurred_at",
			"received_at",
		).
		Values(
			rec.EventID,
			rec.EventName,
			rec.AggregateType,
			rec.AggregateID,
			string(rec.Payload),
			rec.OccurredAt,
			rec.ReceivedAt,
		).
		Suffix("ON CONFLICT (event_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build audit insert query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert audit record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
