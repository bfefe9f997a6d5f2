// Package events turns aggregate events into broker envelopes and back.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/money"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/outbox"
	"github.com/google/uuid"
)

const (
	AggregateOrder = "order"
	AggregateUser  = "user"

	ContentType = "application/json"
)

var ErrMalformed = errors.New("malformed event envelope")

// Envelope is the wire form of every published event.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventName     string          `json:"eventName"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPayload struct {
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type UserRegisteredPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type UserEmailChangedPayload struct {
	UserID   string `json:"userId"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

type UserDeactivatedPayload struct {
	UserID string `json:"userId"`
}

// FromOrderEvent builds an envelope with a fresh event id.
func FromOrderEvent(e order.Event) (Envelope, error) {
	var status order.Status
	switch e.(type) {
	case order.OrderCreated:
		status = order.StatusPending
	case order.OrderConfirmed:
		status = order.StatusConfirmed
	case order.OrderCancelled:
		status = order.StatusCancelled
	default:
		return Envelope{}, fmt.Errorf("unknown order event %T", e)
	}

	payload := OrderPayload{
		OrderID:     e.OrderID().String(),
		UserID:      e.UserID().String(),
		Status:      status.String(),
		TotalAmount: e.TotalAmount().Amount().StringFixed(money.Scale),
		Currency:    e.TotalAmount().Currency().String(),
	}

	return newEnvelope(e.EventName(), AggregateOrder, payload.OrderID, e.OccurredAt(), payload)
}

func FromUserEvent(e user.Event) (Envelope, error) {
	var payload any
	switch ev := e.(type) {
	case user.UserRegistered:
		payload = UserRegisteredPayload{
			UserID: ev.UserID().String(),
			Name:   ev.Name.String(),
			Email:  ev.Email.String(),
		}
	case user.UserEmailChanged:
		payload = UserEmailChangedPayload{
			UserID:   ev.UserID().String(),
			Previous: ev.Previous.String(),
			Current:  ev.Current.String(),
		}
	case user.UserDeactivated:
		payload = UserDeactivatedPayload{UserID: ev.UserID().String()}
	default:
		return Envelope{}, fmt.Errorf("unknown user event %T", e)
	}

	return newEnvelope(e.EventName(), AggregateUser, e.UserID().String(), e.OccurredAt(), payload)
}

func newEnvelope(name, aggregateType, aggregateID string, at time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	return Envelope{
		EventID:       uuid.NewString(),
		EventName:     name,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    at.UTC(),
		Payload:       raw,
	}, nil
}

// Decode parses and checks an envelope received from the broker.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case env.EventID == "":
		return Envelope{}, fmt.Errorf("%w: missing eventId", ErrMalformed)
	case env.EventName == "":
		return Envelope{}, fmt.Errorf("%w: missing eventName", ErrMalformed)
	case env.AggregateID == "":
		return Envelope{}, fmt.Errorf("%w: missing aggregateId", ErrMalformed)
	case env.OccurredAt.IsZero():
		return Envelope{}, fmt.Errorf("%w: missing occurredAt", ErrMalformed)
	case len(env.Payload) == 0:
		return Envelope{}, fmt.Errorf("%w: missing payload", ErrMalformed)
	}

	if _, err := uuid.Parse(env.EventID); err != nil {
		return Envelope{}, fmt.Errorf("%w: eventId: %v", ErrMalformed, err)
	}
	if _, err := uuid.Parse(env.AggregateID); err != nil {
		return Envelope{}, fmt.Errorf("%w: aggregateId: %v", ErrMalformed, err)
	}
	if env.AggregateType != AggregateOrder && env.AggregateType != AggregateUser {
		return Envelope{}, fmt.Errorf("%w: unknown aggregateType %q", ErrMalformed, env.AggregateType)
	}

	return env, nil
}

// ToOutbox wraps the envelope into an outbox row due immediately.
func (e Envelope) ToOutbox(exchange string, maxRetries int, now time.Time) (outbox.OutboxMessage, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return outbox.OutboxMessage{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return outbox.OutboxMessage{
		EventID:       e.EventID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		ExchangeName:  exchange,
		RoutingKey:    e.EventName,
		Payload:       body,
		ContentType:   ContentType,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
		NextRetryAt:   now,
	}, nil
}
