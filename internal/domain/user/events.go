package user

import (
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
)

const (
	EventUserRegistered   = "user.registered"
	EventUserEmailChanged = "user.email_changed"
	EventUserDeactivated  = "user.deactivated"
)

// Event is a fact recorded by the User aggregate.
type Event interface {
	EventName() string
	UserID() ident.UserID
	OccurredAt() time.Time

	isUserEvent()
}

type header struct {
	userID     ident.UserID
	occurredAt time.Time
}

func (h header) UserID() ident.UserID  { return h.userID }
func (h header) OccurredAt() time.Time { return h.occurredAt }
func (header) isUserEvent()            {}

type UserRegistered struct {
	header
	Name  Name
	Email Email
}

type UserEmailChanged struct {
	header
	Previous Email
	Current  Email
}

type UserDeactivated struct{ header }

func (UserRegistered) EventName() string   { return EventUserRegistered }
func (UserEmailChanged) EventName() string { return EventUserEmailChanged }
func (UserDeactivated) EventName() string  { return EventUserDeactivated }
