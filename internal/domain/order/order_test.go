package order

import (
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock makes every call to now return a strictly later instant.
func stepClock(t *testing.T) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	prev := now
	now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	t.Cleanup(func() { now = prev })
}

func item(t *testing.T, pid ident.ProductID, name, price string, qty int) LineItem {
	t.Helper()
	li, err := NewLineItem(pid, name, yen(t, price), qty)
	require.NoError(t, err)

	return li
}

type fixture struct {
	userID ident.UserID
	p1     ident.ProductID
	p2     ident.ProductID
}

func newFixture() fixture {
	return fixture{
		userID: ident.GenerateUserID(),
		p1:     ident.GenerateProductID(),
		p2:     ident.GenerateProductID(),
	}
}

// assertConsistent checks the aggregate invariants that must hold in every state.
func assertConsistent(t *testing.T, o *Order) {
	t.Helper()

	sum := money.Zero(o.Currency())
	seen := map[ident.ProductID]bool{}
	for _, li := range o.Items() {
		assert.False(t, seen[li.ProductID()], "duplicate product %s", li.ProductID())
		seen[li.ProductID()] = true

		var err error
		sum, err = sum.Add(li.LineTotal())
		require.NoError(t, err)
	}
	assert.True(t, sum.Equals(o.TotalAmount()), "total %s != sum of lines %s", o.TotalAmount(), sum)
	assert.False(t, o.UpdatedAt().Before(o.CreatedAt()))
}

func TestCreateOrder_ComputesTotalAndRecordsCreated(t *testing.T) {
	stepClock(t)
	f := newFixture()

	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 2)})
	require.NoError(t, err)

	assert.False(t, o.ID().IsZero())
	assert.Equal(t, f.userID, o.UserID())
	assert.Equal(t, "2000.00 JPY", o.TotalAmount().String())
	assert.Equal(t, StatusPending, o.Status())
	assert.Equal(t, currency.JPY, o.Currency())
	assert.Equal(t, o.CreatedAt(), o.UpdatedAt())
	assert.Equal(t, 1, o.PendingEvents())
	assertConsistent(t, o)

	events := o.DrainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(OrderCreated)
	require.True(t, ok)
	assert.Equal(t, EventOrderCreated, created.EventName())
	assert.Equal(t, o.ID(), created.OrderID())
	assert.Equal(t, f.userID, created.UserID())
	assert.Equal(t, "2000.00 JPY", created.TotalAmount().String())
	assert.Equal(t, o.CreatedAt(), created.OccurredAt())

	assert.Empty(t, o.DrainEvents())
	assert.NotNil(t, o.DrainEvents())
}

func TestCreateOrder_RejectsEmptyItemList(t *testing.T) {
	o, err := CreateOrder(ident.GenerateUserID(), nil)
	assert.Nil(t, o)
	assert.ErrorIs(t, err, domainerr.ErrEmptyOrder)

	o, err = CreateOrder(ident.GenerateUserID(), []LineItem{})
	assert.Nil(t, o)
	assert.ErrorIs(t, err, domainerr.ErrEmptyOrder)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture()

	_, err := CreateOrder(ident.UserID{}, []LineItem{item(t, f.p1, "Widget", "1", 1)})
	assert.ErrorIs(t, err, domainerr.ErrMissingField)

	_, err = CreateOrder(f.userID, []LineItem{{}})
	assert.ErrorIs(t, err, domainerr.ErrMissingField)

	usd, err := money.FromString("1", currency.USD)
	require.NoError(t, err)
	dollarLine, err := NewLineItem(f.p2, "Gadget", usd, 1)
	require.NoError(t, err)

	_, err = CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1", 1), dollarLine})
	assert.ErrorIs(t, err, domainerr.ErrCurrencyMismatch)
}

func TestCreateOrder_MergesDuplicateProducts(t *testing.T) {
	f := newFixture()

	o, err := CreateOrder(f.userID, []LineItem{
		item(t, f.p1, "Widget", "100", 1),
		item(t, f.p2, "Gadget", "50", 2),
		item(t, f.p1, "Widget", "100", 4),
	})
	require.NoError(t, err)

	require.Equal(t, 2, o.ItemCount())
	li, ok := o.Item(f.p1)
	require.True(t, ok)
	assert.Equal(t, 5, li.Quantity())
	assert.Equal(t, "600.00 JPY", o.TotalAmount().String())
	assertConsistent(t, o)
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	stepClock(t)
	f := newFixture()

	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 2)})
	require.NoError(t, err)
	before := o.UpdatedAt()

	require.NoError(t, o.AddItem(item(t, f.p1, "Widget", "1000", 3)))

	items := o.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity())
	assert.Equal(t, "5000.00 JPY", o.TotalAmount().String())
	assert.True(t, o.UpdatedAt().After(before))
	assert.Equal(t, 1, o.PendingEvents(), "item changes record no event")
	assertConsistent(t, o)
}

func TestAddItem_AppendsNewProduct(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)

	require.NoError(t, o.AddItem(item(t, f.p2, "Gadget", "1.50", 2)))

	items := o.Items()
	require.Len(t, items, 2)
	assert.Equal(t, f.p1, items[0].ProductID())
	assert.Equal(t, f.p2, items[1].ProductID())
	assert.Equal(t, "1003.00 JPY", o.TotalAmount().String())
	assertConsistent(t, o)
}

func TestAddItem_RejectsForeignCurrencyWithoutMutation(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)
	updated := o.UpdatedAt()

	usd, err := money.FromString("3", currency.USD)
	require.NoError(t, err)
	dollarLine, err := NewLineItem(f.p2, "Gadget", usd, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, o.AddItem(dollarLine), domainerr.ErrCurrencyMismatch)
	assert.Equal(t, 1, o.ItemCount())
	assert.Equal(t, "1000.00 JPY", o.TotalAmount().String())
	assert.Equal(t, updated, o.UpdatedAt())

	assert.ErrorIs(t, o.AddItem(LineItem{}), domainerr.ErrMissingField)
}

func TestConfirm_RecordsConfirmedWithFinalTotal(t *testing.T) {
	f := newFixture()

	t.Run("not drained before", func(t *testing.T) {
		o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 2)})
		require.NoError(t, err)
		require.NoError(t, o.AddItem(item(t, f.p1, "Widget", "1000", 3)))

		require.NoError(t, o.Confirm())
		assert.Equal(t, StatusConfirmed, o.Status())

		events := o.DrainEvents()
		require.Len(t, events, 2)
		assert.IsType(t, OrderCreated{}, events[0])
		assert.IsType(t, OrderConfirmed{}, events[1])
		assert.Equal(t, "5000.00 JPY", events[1].TotalAmount().String())
	})

	t.Run("drained after create", func(t *testing.T) {
		o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 2)})
		require.NoError(t, err)
		require.Len(t, o.DrainEvents(), 1)
		require.NoError(t, o.AddItem(item(t, f.p1, "Widget", "1000", 3)))

		require.NoError(t, o.Confirm())

		events := o.DrainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventOrderConfirmed, events[0].EventName())
	})
}

func TestConfirm_EmptyOrder(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)
	require.NoError(t, o.RemoveItem(f.p1))
	o.DrainEvents()

	assert.ErrorIs(t, o.Confirm(), domainerr.ErrEmptyOrder)
	assert.Equal(t, StatusPending, o.Status())
	assert.Empty(t, o.DrainEvents())
}

func TestTerminalStates_RejectEveryMutation(t *testing.T) {
	f := newFixture()

	newConfirmed := func(t *testing.T) *Order {
		o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 5)})
		require.NoError(t, err)
		require.NoError(t, o.Confirm())

		return o
	}
	newCancelled := func(t *testing.T) *Order {
		o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 5)})
		require.NoError(t, err)
		require.NoError(t, o.Cancel())

		return o
	}

	mutations := map[string]func(o *Order) error{
		"AddItem":            func(o *Order) error { return o.AddItem(item(t, f.p2, "Gadget", "10", 1)) },
		"RemoveItem":         func(o *Order) error { return o.RemoveItem(f.p1) },
		"RemoveAbsentItem":   func(o *Order) error { return o.RemoveItem(f.p2) },
		"ChangeItemQuantity": func(o *Order) error { return o.ChangeItemQuantity(f.p1, 1) },
		"Confirm":            func(o *Order) error { return o.Confirm() },
		"Cancel":             func(o *Order) error { return o.Cancel() },
	}

	for stateName, build := range map[string]func(t *testing.T) *Order{"confirmed": newConfirmed, "cancelled": newCancelled} {
		for name, mutate := range mutations {
			t.Run(stateName+"/"+name, func(t *testing.T) {
				o := build(t)
				o.DrainEvents()
				status, total, updated, items := o.Status(), o.TotalAmount(), o.UpdatedAt(), o.Items()

				err := mutate(o)
				assert.ErrorIs(t, err, domainerr.ErrInvalidStateTransition)

				assert.Equal(t, status, o.Status())
				assert.True(t, total.Equals(o.TotalAmount()))
				assert.Equal(t, "5000.00 JPY", o.TotalAmount().String())
				assert.Equal(t, updated, o.UpdatedAt())
				assert.Equal(t, items, o.Items())
				assert.Empty(t, o.DrainEvents())
			})
		}
	}
}

func TestCancel_FromPending(t *testing.T) {
	stepClock(t)
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)
	o.DrainEvents()

	require.NoError(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status())
	assert.True(t, o.UpdatedAt().After(o.CreatedAt()))

	events := o.DrainEvents()
	require.Len(t, events, 1)
	cancelled, ok := events[0].(OrderCancelled)
	require.True(t, ok)
	assert.Equal(t, o.ID(), cancelled.OrderID())
	assert.Equal(t, o.UpdatedAt(), cancelled.OccurredAt())
}

func TestRemoveItem(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{
		item(t, f.p1, "Widget", "1000", 1),
		item(t, f.p2, "Gadget", "200", 3),
	})
	require.NoError(t, err)

	require.NoError(t, o.RemoveItem(f.p1))
	assert.Equal(t, 1, o.ItemCount())
	assert.Equal(t, "600.00 JPY", o.TotalAmount().String())
	assertConsistent(t, o)

	require.NoError(t, o.RemoveItem(f.p2))
	assert.Equal(t, 0, o.ItemCount())
	assert.Equal(t, "0.00 JPY", o.TotalAmount().String())
	assert.Equal(t, currency.JPY, o.TotalAmount().Currency())
	assertConsistent(t, o)

	// the order keeps its currency once empty
	require.NoError(t, o.AddItem(item(t, f.p1, "Widget", "10", 1)))
	assert.Equal(t, "10.00 JPY", o.TotalAmount().String())
}

func TestRemoveItem_AbsentIsIdempotentNoop(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)
	updated := o.UpdatedAt()
	absent := ident.GenerateProductID()

	for i := 0; i < 2; i++ {
		require.NoError(t, o.RemoveItem(absent))
		assert.Equal(t, 1, o.ItemCount())
		assert.Equal(t, "1000.00 JPY", o.TotalAmount().String())
		assert.Equal(t, updated, o.UpdatedAt())
	}
}

func TestChangeItemQuantity(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{
		item(t, f.p1, "Widget", "1000", 1),
		item(t, f.p2, "Gadget", "200", 3),
	})
	require.NoError(t, err)

	require.NoError(t, o.ChangeItemQuantity(f.p2, 1))
	li, ok := o.Item(f.p2)
	require.True(t, ok)
	assert.Equal(t, 1, li.Quantity())
	assert.Equal(t, "1200.00 JPY", o.TotalAmount().String())
	assertConsistent(t, o)

	err = o.ChangeItemQuantity(ident.GenerateProductID(), 2)
	assert.ErrorIs(t, err, domainerr.ErrItemNotFound)

	err = o.ChangeItemQuantity(f.p2, 0)
	assert.ErrorIs(t, err, domainerr.ErrInvalidQuantity)
	li, _ = o.Item(f.p2)
	assert.Equal(t, 1, li.Quantity(), "failed change must not mutate")
	assert.Equal(t, "1200.00 JPY", o.TotalAmount().String())
}

func TestItems_ReturnsCopy(t *testing.T) {
	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1000", 1)})
	require.NoError(t, err)

	items := o.Items()
	require.NoError(t, items[0].ChangeQuantity(99))
	items[0] = item(t, f.p2, "Other", "1", 1)

	li, ok := o.Item(f.p1)
	require.True(t, ok)
	assert.Equal(t, 1, li.Quantity())
	assert.Equal(t, "1000.00 JPY", o.TotalAmount().String())
}

func TestCreateOrder_DoesNotAliasInput(t *testing.T) {
	f := newFixture()
	input := []LineItem{item(t, f.p1, "Widget", "1000", 1)}

	o, err := CreateOrder(f.userID, input)
	require.NoError(t, err)
	require.NoError(t, o.ChangeItemQuantity(f.p1, 3))

	assert.Equal(t, 1, input[0].Quantity())
}

func TestReconstructOrder_RoundTrip(t *testing.T) {
	stepClock(t)
	f := newFixture()
	src, err := CreateOrder(f.userID, []LineItem{
		item(t, f.p1, "Widget", "1000", 2),
		item(t, f.p2, "Gadget", "15.25", 4),
	})
	require.NoError(t, err)
	require.NoError(t, src.Confirm())

	restored, err := ReconstructOrder(
		src.ID(), src.UserID(), src.Items(), src.TotalAmount(), src.Status(), src.CreatedAt(), src.UpdatedAt(),
	)
	require.NoError(t, err)

	assert.Equal(t, src.ID(), restored.ID())
	assert.Equal(t, src.UserID(), restored.UserID())
	assert.Equal(t, src.Items(), restored.Items())
	assert.True(t, src.TotalAmount().Equals(restored.TotalAmount()))
	assert.Equal(t, src.Status(), restored.Status())
	assert.Equal(t, src.CreatedAt(), restored.CreatedAt())
	assert.Equal(t, src.UpdatedAt(), restored.UpdatedAt())
	assert.Equal(t, 0, restored.PendingEvents())
	assert.Empty(t, restored.DrainEvents())
}

func TestReconstructOrder_TrustsStoredTotal(t *testing.T) {
	f := newFixture()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	o, err := ReconstructOrder(
		ident.GenerateOrderID(), f.userID,
		[]LineItem{item(t, f.p1, "Widget", "1000", 1)},
		yen(t, "900"), StatusPending, ts, ts,
	)
	require.NoError(t, err)
	assert.Equal(t, "900.00 JPY", o.TotalAmount().String())

	// the next mutation re-derives it
	require.NoError(t, o.ChangeItemQuantity(f.p1, 2))
	assert.Equal(t, "2000.00 JPY", o.TotalAmount().String())
	assert.False(t, o.UpdatedAt().Before(ts))
}

func TestReconstructOrder_Validation(t *testing.T) {
	f := newFixture()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	oid := ident.GenerateOrderID()
	line := item(t, f.p1, "Widget", "1000", 1)
	usd, err := money.FromString("1000", currency.USD)
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       ident.OrderID
		userID   ident.UserID
		items    []LineItem
		total    money.Money
		status   Status
		created  time.Time
		updated  time.Time
		wantKind domainerr.Kind
	}{
		{"missing id", ident.OrderID{}, f.userID, []LineItem{line}, yen(t, "1000"), StatusPending, ts, ts, domainerr.KindMissingField},
		{"missing user", oid, ident.UserID{}, []LineItem{line}, yen(t, "1000"), StatusPending, ts, ts, domainerr.KindMissingField},
		{"missing total", oid, f.userID, []LineItem{line}, money.Money{}, StatusPending, ts, ts, domainerr.KindMissingField},
		{"bad status", oid, f.userID, []LineItem{line}, yen(t, "1000"), Status("SHIPPED"), ts, ts, domainerr.KindInvalidFormat},
		{"missing created", oid, f.userID, []LineItem{line}, yen(t, "1000"), StatusPending, time.Time{}, ts, domainerr.KindMissingField},
		{"updated before created", oid, f.userID, []LineItem{line}, yen(t, "1000"), StatusPending, ts, ts.Add(-time.Second), domainerr.KindInvalidFormat},
		{"zero line", oid, f.userID, []LineItem{{}}, yen(t, "1000"), StatusPending, ts, ts, domainerr.KindMissingField},
		{"duplicate product", oid, f.userID, []LineItem{line, line}, yen(t, "2000"), StatusPending, ts, ts, domainerr.KindInvalidFormat},
		{"currency mismatch", oid, f.userID, []LineItem{line}, usd, StatusPending, ts, ts, domainerr.KindCurrencyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ReconstructOrder(tt.id, tt.userID, tt.items, tt.total, tt.status, tt.created, tt.updated)
			assert.Nil(t, o)
			assert.Equal(t, tt.wantKind, domainerr.KindOf(err))
		})
	}
}

func TestInvariants_HoldAcrossMutationSequence(t *testing.T) {
	f := newFixture()
	p3 := ident.GenerateProductID()

	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "19.99", 3)})
	require.NoError(t, err)

	steps := []func() error{
		func() error { return o.AddItem(item(t, f.p2, "Gadget", "5.50", 2)) },
		func() error { return o.AddItem(item(t, f.p1, "Widget", "19.99", 1)) },
		func() error { return o.ChangeItemQuantity(f.p2, 7) },
		func() error { return o.AddItem(item(t, p3, "Doohickey", "0.01", 100)) },
		func() error { return o.RemoveItem(f.p1) },
		func() error { return o.ChangeItemQuantity(f.p1, 2) },
		func() error { return o.RemoveItem(f.p1) },
		func() error { return o.AddItem(item(t, f.p2, "Gadget", "5.50", 1)) },
	}

	for _, step := range steps {
		_ = step()
		assertConsistent(t, o)
	}

	assert.Equal(t, "45.00 JPY", o.TotalAmount().String())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
	assert.True(t, s.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, domainerr.ErrInvalidFormat)
}

func TestUpdatedAt_AdvancesUnderFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return frozen }
	t.Cleanup(func() { now = prev })

	f := newFixture()
	o, err := CreateOrder(f.userID, []LineItem{item(t, f.p1, "Widget", "1", 1)})
	require.NoError(t, err)

	last := o.UpdatedAt()
	for q := 2; q <= 4; q++ {
		require.NoError(t, o.ChangeItemQuantity(f.p1, q))
		assert.True(t, o.UpdatedAt().After(last))
		last = o.UpdatedAt()
	}
	assert.Equal(t, frozen.Add(3*time.Microsecond), o.UpdatedAt())
}
