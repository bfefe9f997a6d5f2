package postgres

import (
	"fmt"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
)

// OrderDal is the orders row. Money columns travel as decimal text.
type OrderDal struct {
	ID          string
	UserID      string
	TotalAmount string
	Currency    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItemDal is the order_items row.
type OrderItemDal struct {
	OrderID     string
	Position    int
	ProductID   string
	ProductName string
	UnitPrice   string
	Currency    string
	Quantity    int
	LineTotal   string
}

// dbTime matches the microsecond precision of timestamptz so that values
// read back compare equal to what was written.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// OrderDalFromModel converts the aggregate to its rows.
func OrderDalFromModel(o *order.Order) (OrderDal, []OrderItemDal) {
	dal := OrderDal{
		ID:          o.ID().String(),
		UserID:      o.UserID().String(),
		TotalAmount: o.TotalAmount().Amount().StringFixed(money.Scale),
		Currency:    o.Currency().String(),
		Status:      o.Status().String(),
		CreatedAt:   dbTime(o.CreatedAt()),
		UpdatedAt:   dbTime(o.UpdatedAt()),
	}

	items := o.Items()
	rows := make([]OrderItemDal, len(items))
	for i, li := range items {
		rows[i] = OrderItemDal{
			OrderID:     dal.ID,
			Position:    i,
			ProductID:   li.ProductID().String(),
			ProductName: li.ProductName(),
			UnitPrice:   li.UnitPrice().Amount().StringFixed(money.Scale),
			Currency:    li.UnitPrice().Currency().String(),
			Quantity:    li.Quantity(),
			LineTotal:   li.LineTotal().Amount().StringFixed(money.Scale),
		}
	}

	return dal, rows
}

// ToModel rebuilds the aggregate; items must already be sorted by position.
func (d *OrderDal) ToModel(items []OrderItemDal) (*order.Order, error) {
	id, err := ident.NewOrderID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order id: %w", err)
	}
	userID, err := ident.NewUserID(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	cur, err := currency.Parse(d.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse currency: %w", err)
	}
	total, err := money.FromString(d.TotalAmount, cur)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	lines := make([]order.LineItem, 0, len(items))
	for i := range items {
		li, err := items[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item %d: %w", i, err)
		}
		lines = append(lines, li)
	}

	return order.ReconstructOrder(id, userID, lines, total, status, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
}

func (d *OrderItemDal) ToModel() (order.LineItem, error) {
	productID, err := ident.NewProductID(d.ProductID)
	if err != nil {
		return order.LineItem{}, err
	}
	cur, err := currency.Parse(d.Currency)
	if err != nil {
		return order.LineItem{}, err
	}
	price, err := money.FromString(d.UnitPrice, cur)
	if err != nil {
		return order.LineItem{}, err
	}

	return order.NewLineItem(productID, d.ProductName, price, d.Quantity)
}
