package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/orderddd/internal/service/models/audit"
)

type IAuditRepository interface {
	// Save stores rec and reports false when a record with the same event id exists.
	Save(ctx context.Context, rec audit.Record) (bool, error)
}
