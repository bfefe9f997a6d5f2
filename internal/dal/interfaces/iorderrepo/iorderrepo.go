package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/orderquery"
)

// IOrderRepository persists Order aggregates.
type IOrderRepository interface {
	Insert(ctx context.Context, o *order.Order) error
	// Get returns dalerr.ErrNotFound when no order has the id.
	Get(ctx context.Context, id ident.OrderID) (*order.Order, error)
	// Update fails with dalerr.ErrConcurrentModification when the stored
	// updated_at differs from expectedUpdatedAt.
	Update(ctx context.Context, o *order.Order, expectedUpdatedAt time.Time) error
	Query(ctx context.Context, q orderquery.Query) ([]*order.Order, error)
}
