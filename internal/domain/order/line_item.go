package order

import (
	"strings"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/shopspring/decimal"
)

// LineItem is one product line of an order. Its identity is the product id.
// lineTotal is always unitPrice × quantity.
type LineItem struct {
	productID   ident.ProductID
	productName string
	unitPrice   money.Money
	quantity    int
	lineTotal   money.Money
}

// NewLineItem validates and builds a line item.
func NewLineItem(productID ident.ProductID, name string, unitPrice money.Money, quantity int) (LineItem, error) {
	const op = "order.NewLineItem"

	name = strings.TrimSpace(name)
	switch {
	case productID.IsZero():
		return LineItem{}, domainerr.New(domainerr.KindMissingField, op, "product id is required")
	case name == "":
		return LineItem{}, domainerr.New(domainerr.KindMissingField, op, "product name is required")
	case unitPrice.IsUnset():
		return LineItem{}, domainerr.New(domainerr.KindMissingField, op, "unit price is required")
	case quantity <= 0:
		return LineItem{}, domainerr.Newf(domainerr.KindInvalidQuantity, op, "quantity must be positive, got %d", quantity)
	}

	total, err := lineTotal(unitPrice, quantity)
	if err != nil {
		return LineItem{}, err
	}

	return LineItem{
		productID:   productID,
		productName: name,
		unitPrice:   unitPrice,
		quantity:    quantity,
		lineTotal:   total,
	}, nil
}

// ProductID returns the product the line refers to.
func (li LineItem) ProductID() ident.ProductID { return li.productID }

// ProductName returns the trimmed product name.
func (li LineItem) ProductName() string { return li.productName }

// UnitPrice returns the price of one unit.
func (li LineItem) UnitPrice() money.Money { return li.unitPrice }

// Quantity returns the number of units, always positive.
func (li LineItem) Quantity() int { return li.quantity }

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() money.Money { return li.lineTotal }

// Equals compares identity only: two lines for the same product are equal
// whatever their quantity or price.
func (li LineItem) Equals(other LineItem) bool {
	return li.productID == other.productID
}

// IsZero reports whether li was never built by NewLineItem.
func (li LineItem) IsZero() bool {
	return li.productID.IsZero()
}

// ChangeQuantity sets a new quantity and re-derives the line total.
func (li *LineItem) ChangeQuantity(newQuantity int) error {
	if newQuantity <= 0 {
		return domainerr.Newf(domainerr.KindInvalidQuantity, "LineItem.ChangeQuantity", "quantity must be positive, got %d", newQuantity)
	}

	total, err := lineTotal(li.unitPrice, newQuantity)
	if err != nil {
		return err
	}

	li.quantity = newQuantity
	li.lineTotal = total

	return nil
}

// ChangeUnitPrice sets a new unit price and re-derives the line total.
// The currency of a line never changes.
func (li *LineItem) ChangeUnitPrice(newPrice money.Money) error {
	const op = "LineItem.ChangeUnitPrice"

	if newPrice.IsUnset() {
		return domainerr.New(domainerr.KindMissingField, op, "unit price is required")
	}
	if !li.unitPrice.IsUnset() && newPrice.Currency() != li.unitPrice.Currency() {
		return domainerr.Newf(domainerr.KindCurrencyMismatch, op, "%s vs %s", li.unitPrice.Currency(), newPrice.Currency())
	}

	total, err := lineTotal(newPrice, li.quantity)
	if err != nil {
		return err
	}

	li.unitPrice = newPrice
	li.lineTotal = total

	return nil
}

func lineTotal(unitPrice money.Money, quantity int) (money.Money, error) {
	return unitPrice.Multiply(decimal.NewFromInt(int64(quantity)))
}
