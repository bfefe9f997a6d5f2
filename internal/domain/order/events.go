package order

import (
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
)

// Event names, also used as message routing keys.
const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
)

// Event is a fact recorded by the Order aggregate. The set is closed:
// OrderCreated, OrderConfirmed and OrderCancelled are the only implementations.
type Event interface {
	EventName() string
	OrderID() ident.OrderID
	UserID() ident.UserID
	TotalAmount() money.Money
	OccurredAt() time.Time

	isOrderEvent()
}

type snapshot struct {
	orderID    ident.OrderID
	userID     ident.UserID
	total      money.Money
	occurredAt time.Time
}

func (s snapshot) OrderID() ident.OrderID   { return s.orderID }
func (s snapshot) UserID() ident.UserID     { return s.userID }
func (s snapshot) TotalAmount() money.Money { return s.total }
func (s snapshot) OccurredAt() time.Time    { return s.occurredAt }
func (snapshot) isOrderEvent()              {}

type OrderCreated struct{ snapshot }

type OrderConfirmed struct{ snapshot }

type OrderCancelled struct{ snapshot }

func (OrderCreated) EventName() string   { return EventOrderCreated }
func (OrderConfirmed) EventName() string { return EventOrderConfirmed }
func (OrderCancelled) EventName() string { return EventOrderCancelled }

func (o *Order) eventSnapshot(at time.Time) snapshot {
	return snapshot{
		orderID:    o.id,
		userID:     o.userID,
		total:      o.total,
		occurredAt: at,
	}
}
