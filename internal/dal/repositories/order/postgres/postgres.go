package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderddd/internal/dal/dalerr"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/orderquery"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id::text",
	"user_id::text",
	"total_amount::text",
	"currency",
	"status",
	"created_at",
	"updated_at",
}

var orderItemColumns = []string{
	"order_id::text",
	"position",
	"product_id::text",
	"product_name",
	"unit_price::text",
	"currency",
	"quantity",
	"line_total::text",
}

// OrderRepository stores orders in the orders and order_items tables.
type OrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewOrderRepository works over a pool or a transaction.
func NewOrderRepository(conn postgres.GenericConn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	dal, items := OrderDalFromModel(o)

	query, args, err := r.sb.Insert("orders").
		Columns("id", "user_id", "total_amount", "currency", "status", "created_at", "updated_at").
		Values(dal.ID, dal.UserID, dal.TotalAmount, dal.Currency, dal.Status, dal.CreatedAt, dal.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", dal.ID, dalerr.ErrDuplicate)
		}

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return r.insertItems(ctx, items)
}

func (r *OrderRepository) Get(ctx context.Context, id ident.OrderID) (*order.Order, error) {
	query, args, err := r.sb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order select query: %w", err)
	}

	var dal OrderDal
	if err := scanOrder(r.conn.QueryRow(ctx, query, args...), &dal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, dalerr.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{dal.ID})
	if err != nil {
		return nil, err
	}

	o, err := dal.ToModel(items[dal.ID])
	if err != nil {
		return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return o, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order, expectedUpdatedAt time.Time) error {
	dal, items := OrderDalFromModel(o)

	query, args, err := r.sb.Update("orders").
		Set("total_amount", dal.TotalAmount).
		Set("currency", dal.Currency).
		Set("status", dal.Status).
		Set("updated_at", dal.UpdatedAt).
		Where(sq.Eq{"id": dal.ID, "updated_at": dbTime(expectedUpdatedAt)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, dal.ID)
	}

	deleteQuery, deleteArgs, err := r.sb.Delete("order_items").Where(sq.Eq{"order_id": dal.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order items delete query: %w", err)
	}
	if _, err := r.conn.Exec(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	return r.insertItems(ctx, items)
}

// Query returns orders newest first.
func (r *OrderRepository) Query(ctx context.Context, q orderquery.Query) ([]*order.Order, error) {
	q = q.Normalize()

	builder := r.sb.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC", "id").
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Offset))

	if len(q.UserIDs) > 0 {
		ids := make([]string, len(q.UserIDs))
		for i, id := range q.UserIDs {
			ids[i] = id.String()
		}
		builder = builder.Where(sq.Eq{"user_id": ids})
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = s.String()
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var dals []OrderDal
	for rows.Next() {
		var dal OrderDal
		if err := scanOrder(rows, &dal); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		dals = append(dals, dal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(dals) == 0 {
		return []*order.Order{}, nil
	}

	ids := make([]string, len(dals))
	for i := range dals {
		ids[i] = dals[i].ID
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*order.Order, 0, len(dals))
	for i := range dals {
		o, err := dals[i].ToModel(items[dals[i].ID])
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, o)
	}

	return result, nil
}

func (r *OrderRepository) insertItems(ctx context.Context, items []OrderItemDal) error {
	if len(items) == 0 {
		return nil
	}

	builder := r.sb.Insert("order_items").
		Columns("order_id", "position", "product_id", "product_name", "unit_price", "currency", "quantity", "line_total")
	for _, it := range items {
		builder = builder.Values(it.OrderID, it.Position, it.ProductID, it.ProductName, it.UnitPrice, it.Currency, it.Quantity, it.LineTotal)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order items insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}

	return nil
}

// loadItems returns the items of every order in orderIDs keyed by order id.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]OrderItemDal, error) {
	query, args, err := r.sb.Select(orderItemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order items query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]OrderItemDal, len(orderIDs))
	for rows.Next() {
		var it OrderItemDal
		err := rows.Scan(
			&it.OrderID,
			&it.Position,
			&it.ProductID,
			&it.ProductName,
			&it.UnitPrice,
			&it.Currency,
			&it.Quantity,
			&it.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result[it.OrderID] = append(result[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *OrderRepository) missOrConflict(ctx context.Context, id string) error {
	query, args, err := r.sb.Select("1").From("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order exists query: %w", err)
	}

	var one int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s: %w", id, dalerr.ErrNotFound)
		}

		return fmt.Errorf("failed to check order existence: %w", err)
	}

	return fmt.Errorf("order %s: %w", id, dalerr.ErrConcurrentModification)
}

func scanOrder(row pgx.Row, dal *OrderDal) error {
	return row.Scan(
		&dal.ID,
		&dal.UserID,
		&dal.TotalAmount,
		&dal.Currency,
		&dal.Status,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
}
