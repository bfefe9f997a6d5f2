// Package order contains the Order aggregate: its line items, lifecycle and
// the events it records.
//
// An *Order is not safe for concurrent mutation. It is meant to be loaded,
// changed and saved inside one use case; concurrent writers are resolved at
// the storage boundary.
package order

import (
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
)

// now is swapped in tests. Timestamps carry microsecond precision, the
// precision they are stored with.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Order is the aggregate root. All fields are reachable only through methods.
type Order struct {
	id     ident.OrderID
	userID ident.UserID
	items  []LineItem
	// currency is fixed by the first line at creation and survives an empty item list.
	currency  currency.Currency
	total     money.Money
	status    Status
	createdAt time.Time
	updatedAt time.Time

	events []Event
}

// CreateOrder builds a new pending order for userID and records OrderCreated.
// Lines sharing a product id are merged by summing their quantities.
func CreateOrder(userID ident.UserID, items []LineItem) (*Order, error) {
	const op = "order.CreateOrder"

	if userID.IsZero() {
		return nil, domainerr.New(domainerr.KindMissingField, op, "user id is required")
	}
	if len(items) == 0 {
		return nil, domainerr.New(domainerr.KindEmptyOrder, op, "an order needs at least one item")
	}
	if items[0].IsZero() {
		return nil, domainerr.New(domainerr.KindMissingField, op, "line item 0 is not initialised")
	}

	o := &Order{
		id:       ident.GenerateOrderID(),
		userID:   userID,
		currency: items[0].unitPrice.Currency(),
		status:   StatusPending,
	}

	merged := make([]LineItem, 0, len(items))
	for _, item := range items {
		next, err := o.withItem(merged, item)
		if err != nil {
			return nil, err
		}
		merged = next
	}

	total, err := sumLineTotals(o.currency, merged)
	if err != nil {
		return nil, err
	}

	ts := now()
	o.items = merged
	o.total = total
	o.createdAt = ts
	o.updatedAt = ts
	o.record(OrderCreated{o.eventSnapshot(ts)})

	return o, nil
}

// ReconstructOrder restores an order from storage. It validates fields but
// trusts the stored total and records no events.
func ReconstructOrder(
	id ident.OrderID,
	userID ident.UserID,
	items []LineItem,
	total money.Money,
	status Status,
	createdAt, updatedAt time.Time,
) (*Order, error) {
	const op = "order.ReconstructOrder"

	switch {
	case id.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "order id is required")
	case userID.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "user id is required")
	case total.IsUnset():
		return nil, domainerr.New(domainerr.KindMissingField, op, "total amount is required")
	case !status.IsValid():
		return nil, domainerr.Newf(domainerr.KindInvalidFormat, op, "unknown status %q", status)
	case createdAt.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "created at is required")
	case updatedAt.Before(createdAt):
		return nil, domainerr.New(domainerr.KindInvalidFormat, op, "updated at precedes created at")
	}

	seen := make(map[ident.ProductID]struct{}, len(items))
	for i, item := range items {
		if item.IsZero() {
			return nil, domainerr.Newf(domainerr.KindMissingField, op, "line item %d is not initialised", i)
		}
		if item.unitPrice.Currency() != total.Currency() {
			return nil, domainerr.Newf(domainerr.KindCurrencyMismatch, op, "line item %d is in %s, order in %s",
				i, item.unitPrice.Currency(), total.Currency())
		}
		if _, dup := seen[item.productID]; dup {
			return nil, domainerr.Newf(domainerr.KindInvalidFormat, op, "duplicate product %s", item.productID)
		}
		seen[item.productID] = struct{}{}
	}

	return &Order{
		id:        id,
		userID:    userID,
		items:     append([]LineItem(nil), items...),
		currency:  total.Currency(),
		total:     total,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the order identifier.
func (o *Order) ID() ident.OrderID { return o.id }

// UserID returns the owner of the order.
func (o *Order) UserID() ident.UserID { return o.userID }

// TotalAmount returns the sum of all line totals.
func (o *Order) TotalAmount() money.Money { return o.total }

// Currency returns the currency fixed at creation. It survives removal of every item.
func (o *Order) Currency() currency.Currency { return o.currency }

// Status returns the lifecycle state.
func (o *Order) Status() Status { return o.status }

// CreatedAt returns the creation time in UTC.
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt returns the time of the last change. Storage uses it as the concurrency token.
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

// ItemCount returns the number of distinct products in the order.
func (o *Order) ItemCount() int { return len(o.items) }

// Items returns a copy of the line items in insertion order.
func (o *Order) Items() []LineItem {
	return append([]LineItem(nil), o.items...)
}

// Item returns the line for productID, if any.
func (o *Order) Item(productID ident.ProductID) (LineItem, bool) {
	if i := o.indexOf(productID); i >= 0 {
		return o.items[i], true
	}

	return LineItem{}, false
}

// PendingEvents reports how many events wait to be drained.
func (o *Order) PendingEvents() int { return len(o.events) }

// AddItem adds a line, or merges it into the existing line for the same product
// by summing quantities. Item changes record no event.
func (o *Order) AddItem(item LineItem) error {
	if err := o.requirePending("Order.AddItem"); err != nil {
		return err
	}
	if item.IsZero() {
		return domainerr.New(domainerr.KindMissingField, "Order.AddItem", "line item is not initialised")
	}

	items, err := o.withItem(o.items, item)
	if err != nil {
		return err
	}

	return o.replaceItems(items)
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (o *Order) RemoveItem(productID ident.ProductID) error {
	if err := o.requirePending("Order.RemoveItem"); err != nil {
		return err
	}

	i := o.indexOf(productID)
	if i < 0 {
		return nil
	}

	items := make([]LineItem, 0, len(o.items)-1)
	items = append(items, o.items[:i]...)
	items = append(items, o.items[i+1:]...)

	return o.replaceItems(items)
}

// ChangeItemQuantity sets the quantity of an existing line.
func (o *Order) ChangeItemQuantity(productID ident.ProductID, newQuantity int) error {
	const op = "Order.ChangeItemQuantity"

	if err := o.requirePending(op); err != nil {
		return err
	}

	i := o.indexOf(productID)
	if i < 0 {
		return domainerr.Newf(domainerr.KindItemNotFound, op, "product %s is not in order %s", productID, o.id)
	}

	line := o.items[i]
	if err := line.ChangeQuantity(newQuantity); err != nil {
		return err
	}

	items := o.Items()
	items[i] = line

	return o.replaceItems(items)
}

// Confirm moves a non-empty pending order to CONFIRMED.
func (o *Order) Confirm() error {
	const op = "Order.Confirm"

	if err := o.requirePending(op); err != nil {
		return err
	}
	if len(o.items) == 0 {
		return domainerr.New(domainerr.KindEmptyOrder, op, "cannot confirm an order without items")
	}

	o.status = StatusConfirmed
	o.touch()
	o.record(OrderConfirmed{o.eventSnapshot(o.updatedAt)})

	return nil
}

// Cancel moves a pending order to CANCELLED. Confirmed orders are not
// cancellable here; that policy belongs to a higher-level workflow.
func (o *Order) Cancel() error {
	if o.status != StatusPending {
		return domainerr.Newf(domainerr.KindInvalidStateTransition, "Order.Cancel",
			"cannot cancel order in status %s", o.status)
	}

	o.status = StatusCancelled
	o.touch()
	o.record(OrderCancelled{o.eventSnapshot(o.updatedAt)})

	return nil
}

// DrainEvents hands over the recorded events and clears the buffer.
// A second call returns an empty slice.
func (o *Order) DrainEvents() []Event {
	events := make([]Event, len(o.events))
	copy(events, o.events)
	o.events = nil

	return events
}

func (o *Order) requirePending(op string) error {
	if o.status != StatusPending {
		return domainerr.Newf(domainerr.KindInvalidStateTransition, op, "order is %s, expected %s", o.status, StatusPending)
	}

	return nil
}

func (o *Order) indexOf(productID ident.ProductID) int {
	return indexIn(o.items, productID)
}

// withItem returns a new slice with item appended or merged into items.
// items itself is never modified.
func (o *Order) withItem(items []LineItem, item LineItem) ([]LineItem, error) {
	if item.IsZero() {
		return nil, domainerr.New(domainerr.KindMissingField, "order.withItem", "line item is not initialised")
	}
	if c := item.unitPrice.Currency(); c != o.currency {
		return nil, domainerr.Newf(domainerr.KindCurrencyMismatch, "order.withItem",
			"item priced in %s, order in %s", c, o.currency)
	}

	out := append(make([]LineItem, 0, len(items)+1), items...)

	i := indexIn(out, item.productID)
	if i < 0 {
		return append(out, item), nil
	}

	merged := out[i]
	if err := merged.ChangeQuantity(merged.quantity + item.quantity); err != nil {
		return nil, err
	}
	out[i] = merged

	return out, nil
}

// replaceItems commits items together with the re-derived total.
func (o *Order) replaceItems(items []LineItem) error {
	total, err := sumLineTotals(o.currency, items)
	if err != nil {
		return err
	}

	o.items = items
	o.total = total
	o.touch()

	return nil
}

// touch moves updatedAt strictly forward, so every change yields a new value.
func (o *Order) touch() {
	ts := now()
	if !ts.After(o.updatedAt) {
		ts = o.updatedAt.Add(time.Microsecond)
	}
	o.updatedAt = ts
}

func (o *Order) record(e Event) {
	o.events = append(o.events, e)
}

func indexIn(items []LineItem, productID ident.ProductID) int {
	for i := range items {
		if items[i].productID == productID {
			return i
		}
	}

	return -1
}

func sumLineTotals(cur currency.Currency, items []LineItem) (money.Money, error) {
	total := money.Zero(cur)
	for _, item := range items {
		var err error
		if total, err = total.Add(item.lineTotal); err != nil {
			return money.Money{}, err
		}
	}

	return total, nil
}
