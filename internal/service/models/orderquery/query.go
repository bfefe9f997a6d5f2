package orderquery

import (
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Query filters orders. Empty slices mean no filter on that column.
type Query struct {
	UserIDs  []ident.UserID
	Statuses []order.Status
	Limit    int
	Offset   int
}

// Normalize clamps Limit into (0, MaxLimit] and Offset to >= 0.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	return q
}
