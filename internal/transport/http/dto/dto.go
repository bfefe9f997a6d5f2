// Package dto holds the JSON shapes shared by the HTTP handlers.
package dto

import (
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
)

// LineItemRequest is a line item as sent by clients. Money is a decimal string.
type LineItemRequest struct {
	ProductID   string `json:"productId"   validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	UnitPrice   string `json:"unitPrice"   validate:"required"`
	Currency    string `json:"currency"    validate:"required"`
	Quantity    int    `json:"quantity"    validate:"gt=0"`
}

// ToModel converts the request into a validated line item.
func (r LineItemRequest) ToModel() (order.LineItem, error) {
	productID, err := ident.NewProductID(r.ProductID)
	if err != nil {
		return order.LineItem{}, err
	}
	cur, err := currency.Parse(r.Currency)
	if err != nil {
		return order.LineItem{}, err
	}
	price, err := money.FromString(r.UnitPrice, cur)
	if err != nil {
		return order.LineItem{}, err
	}

	return order.NewLineItem(productID, r.ProductName, price, r.Quantity)
}

// LineItemResponse is one order line as returned to clients.
type LineItemResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"lineTotal"`
}

// OrderResponse is the JSON shape of an order. Amounts are fixed two-place decimals.
type OrderResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Status      string             `json:"status"`
	Currency    string             `json:"currency"`
	TotalAmount string             `json:"totalAmount"`
	Items       []LineItemResponse `json:"items"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// amount renders m without its currency, e.g. "2000.00".
func amount(m money.Money) string {
	return m.Amount().StringFixed(money.Scale)
}

// OrderFromModel builds the response for o.
func OrderFromModel(o *order.Order) OrderResponse {
	items := o.Items()
	resp := OrderResponse{
		ID:          o.ID().String(),
		UserID:      o.UserID().String(),
		Status:      o.Status().String(),
		Currency:    o.Currency().String(),
		TotalAmount: amount(o.TotalAmount()),
		Items:       make([]LineItemResponse, len(items)),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
	for i, li := range items {
		resp.Items[i] = LineItemResponse{
			ProductID:   li.ProductID().String(),
			ProductName: li.ProductName(),
			UnitPrice:   amount(li.UnitPrice()),
			Quantity:    li.Quantity(),
			LineTotal:   amount(li.LineTotal()),
		}
	}

	return resp
}

// OrdersFromModels builds the responses for a list of orders, never nil.
func OrdersFromModels(orders []*order.Order) []OrderResponse {
	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = OrderFromModel(o)
	}

	return resp
}

// UserResponse is the JSON shape of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserFromModel builds the response for u.
func UserFromModel(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID().String(),
		Name:      u.Name().String(),
		Email:     u.Email().String(),
		Active:    u.Active(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}
