package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T) *order.Order {
	t.Helper()
	price, err := money.FromString("1000", currency.JPY)
	require.NoError(t, err)
	li, err := order.NewLineItem(ident.GenerateProductID(), "Widget", price, 2)
	require.NoError(t, err)
	o, err := order.CreateOrder(ident.GenerateUserID(), []order.LineItem{li})
	require.NoError(t, err)

	return o
}

func TestFromOrderEvent(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.Confirm())
	evs := o.DrainEvents()
	require.Len(t, evs, 2)

	created, err := FromOrderEvent(evs[0])
	require.NoError(t, err)
	confirmed, err := FromOrderEvent(evs[1])
	require.NoError(t, err)

	assert.Equal(t, order.EventOrderCreated, created.EventName)
	assert.Equal(t, AggregateOrder, created.AggregateType)
	assert.Equal(t, o.ID().String(), created.AggregateID)
	assert.NotEqual(t, created.EventID, confirmed.EventID)

	var p OrderPayload
	require.NoError(t, json.Unmarshal(confirmed.Payload, &p))
	assert.Equal(t, OrderPayload{
		OrderID:     o.ID().String(),
		UserID:      o.UserID().String(),
		Status:      "CONFIRMED",
		TotalAmount: "2000.00",
		Currency:    "JPY",
	}, p)
}

func TestFromUserEvent(t *testing.T) {
	name, err := user.NewName("Ada")
	require.NoError(t, err)
	email, err := user.NewEmail("ada@example.com")
	require.NoError(t, err)
	u, err := user.RegisterUser(name, email)
	require.NoError(t, err)
	next, err := user.NewEmail("countess@example.com")
	require.NoError(t, err)
	require.NoError(t, u.ChangeEmail(next))
	require.NoError(t, u.Deactivate())

	evs := u.DrainEvents()
	require.Len(t, evs, 3)

	var names []string
	for _, e := range evs {
		env, err := FromUserEvent(e)
		require.NoError(t, err)
		assert.Equal(t, AggregateUser, env.AggregateType)
		assert.Equal(t, u.ID().String(), env.AggregateID)
		names = append(names, env.EventName)
	}
	assert.Equal(t, []string{user.EventUserRegistered, user.EventUserEmailChanged, user.EventUserDeactivated}, names)

	env, err := FromUserEvent(evs[1])
	require.NoError(t, err)
	var p UserEmailChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ada@example.com", p.Previous)
	assert.Equal(t, "countess@example.com", p.Current)
}

func TestToOutboxAndDecode(t *testing.T) {
	o := newOrder(t)
	env, err := FromOrderEvent(o.DrainEvents()[0])
	require.NoError(t, err)

	now := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)
	msg, err := env.ToOutbox("orders.events", 5, now)
	require.NoError(t, err)

	assert.Equal(t, "orders.events", msg.ExchangeName)
	assert.Equal(t, order.EventOrderCreated, msg.RoutingKey)
	assert.Equal(t, env.EventID, msg.EventID)
	assert.Equal(t, ContentType, msg.ContentType)
	assert.Equal(t, 5, msg.MaxRetries)
	assert.Equal(t, now, msg.NextRetryAt)

	decoded, err := Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)
	assert.True(t, env.OccurredAt.Equal(decoded.OccurredAt))
	assert.JSONEq(t, string(env.Payload), string(decoded.Payload))
}

func TestDecode_Malformed(t *testing.T) {
	valid := `{"eventId":"5b0f2a8c-6f55-4b1a-9f0e-2b8f8e2f1a11","eventName":"order.created","aggregateType":"order",` +
		`"aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","occurredAt":"2025-01-01T00:00:00Z","payload":{}}`
	_, err := Decode([]byte(valid))
	require.NoError(t, err)

	for name, body := range map[string]string{
		"not json":         `{`,
		"no event id":      `{"eventName":"order.created","aggregateType":"order","aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","occurredAt":"2025-01-01T00:00:00Z","payload":{}}`,
		"bad event id":     `{"eventId":"x","eventName":"order.created","aggregateType":"order","aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","occurredAt":"2025-01-01T00:00:00Z","payload":{}}`,
		"bad aggregate id": `{"eventId":"5b0f2a8c-6f55-4b1a-9f0e-2b8f8e2f1a11","eventName":"order.created","aggregateType":"order","aggregateId":"not-a-uuid","occurredAt":"2025-01-01T00:00:00Z","payload":{}}`,
		"unknown type":     `{"eventId":"5b0f2a8c-6f55-4b1a-9f0e-2b8f8e2f1a11","eventName":"x","aggregateType":"cart","aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","occurredAt":"2025-01-01T00:00:00Z","payload":{}}`,
		"no payload":       `{"eventId":"5b0f2a8c-6f55-4b1a-9f0e-2b8f8e2f1a11","eventName":"x","aggregateType":"order","aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","occurredAt":"2025-01-01T00:00:00Z"}`,
		"no occurred at":   `{"eventId":"5b0f2a8c-6f55-4b1a-9f0e-2b8f8e2f1a11","eventName":"x","aggregateType":"order","aggregateId":"0d7c6b4e-3a1f-4c2e-8b9d-1e2f3a4b5c6d","payload":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
