package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/dalerr"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iuserrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/dal/uow"
	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/service/events"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/orderquery"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrderService runs the order use cases: load, mutate through the aggregate,
// save, and enqueue the drained events in the same transaction.
type OrderService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork

	exchange           string
	outboxMaxRetries   int
	maxConflictRetries int
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	UserRepository() iuserrepo.IUserRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		exchange:           viper.GetString("rabbitmq.exchange"),
		outboxMaxRetries:   viper.GetInt("rabbitmq.outbox.max_retries"),
		maxConflictRetries: viper.GetInt("orders.max_conflict_retries"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("ordersvc: postgres client is required")
		}
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(s.pgClient) }
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithMaxConflictRetries overrides orders.max_conflict_retries.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxConflictRetries(n int) option {
	return func(s *OrderService) {
		s.maxConflictRetries = n
	}
}

// CreateOrder places a new pending order for an active user.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	userID ident.UserID,
	items []order.LineItem,
) (o *order.Order, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer func() { endSpan(span, err) }()

	o, err = order.CreateOrder(userID, items)
	if err != nil {
		return nil, err
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer s.rollback(ctx, work)

	u, err := work.UserRepository().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.Active() {
		return nil, domainerr.Newf(domainerr.KindInvalidStateTransition, "OrderService.CreateOrder",
			"user %s is deactivated", userID)
	}

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	if err := s.enqueue(ctx, work, o.DrainEvents()); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Order created", "order_id", o.ID(), "user_id", userID, "total", o.TotalAmount())

	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id ident.OrderID) (o *order.Order, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder",
		trace.WithAttributes(attribute.String("order.id", id.String())))
	defer func() { endSpan(span, err) }()

	return s.newUOW().OrderRepository().Get(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, q orderquery.Query) (orders []*order.Order, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListOrders")
	defer func() { endSpan(span, err) }()

	return s.newUOW().OrderRepository().Query(ctx, q.Normalize())
}

func (s *OrderService) AddItem(ctx context.Context, id ident.OrderID, item order.LineItem) (*order.Order, error) {
	return s.mutate(ctx, "OrderService.AddItem", id, func(o *order.Order) error {
		return o.AddItem(item)
	})
}

func (s *OrderService) RemoveItem(ctx context.Context, id ident.OrderID, productID ident.ProductID) (*order.Order, error) {
	return s.mutate(ctx, "OrderService.RemoveItem", id, func(o *order.Order) error {
		return o.RemoveItem(productID)
	})
}

func (s *OrderService) ChangeItemQuantity(
	ctx context.Context,
	id ident.OrderID,
	productID ident.ProductID,
	quantity int,
) (*order.Order, error) {
	return s.mutate(ctx, "OrderService.ChangeItemQuantity", id, func(o *order.Order) error {
		return o.ChangeItemQuantity(productID, quantity)
	})
}

func (s *OrderService) ConfirmOrder(ctx context.Context, id ident.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "OrderService.ConfirmOrder", id, (*order.Order).Confirm)
}

func (s *OrderService) CancelOrder(ctx context.Context, id ident.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "OrderService.CancelOrder", id, (*order.Order).Cancel)
}

// mutate retries the whole load-change-save cycle when another writer won the race.
func (s *OrderService) mutate(
	ctx context.Context,
	spanName string,
	id ident.OrderID,
	change func(o *order.Order) error,
) (o *order.Order, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, spanName,
		trace.WithAttributes(attribute.String("order.id", id.String())))
	defer func() { endSpan(span, err) }()

	for attempt := 0; ; attempt++ {
		o, err = s.mutateOnce(ctx, id, change)
		if !errors.Is(err, dalerr.ErrConcurrentModification) || attempt >= s.maxConflictRetries {
			return o, err
		}

		span.AddEvent("retry on conflict", trace.WithAttributes(attribute.Int("attempt", attempt+1)))
		slog.Warn("Concurrent order modification, retrying", "order_id", id, "attempt", attempt+1)
	}
}

func (s *OrderService) mutateOnce(
	ctx context.Context,
	id ident.OrderID,
	change func(o *order.Order) error,
) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer s.rollback(ctx, work)

	o, err := work.OrderRepository().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	loadedAt := o.UpdatedAt()
	if err := change(o); err != nil {
		return nil, err
	}

	// nothing changed, e.g. removing an absent product
	if o.UpdatedAt().Equal(loadedAt) && o.PendingEvents() == 0 {
		return o, nil
	}

	if err := work.OrderRepository().Update(ctx, o, loadedAt); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	if err := s.enqueue(ctx, work, o.DrainEvents()); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return o, nil
}

func (s *OrderService) enqueue(ctx context.Context, work unitOfWork, evs []order.Event) error {
	now := time.Now().UTC()
	for _, e := range evs {
		env, err := events.FromOrderEvent(e)
		if err != nil {
			return err
		}
		msg, err := env.ToOutbox(s.exchange, s.outboxMaxRetries, now)
		if err != nil {
			return err
		}
		if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", e.EventName(), err)
		}
	}

	return nil
}

func (s *OrderService) rollback(ctx context.Context, work unitOfWork) {
	if err := work.Rollback(ctx); err != nil {
		slog.Error("Failed to rollback transaction", "error", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
