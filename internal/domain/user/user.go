// Package user holds the User aggregate. It follows the same rules as the
// order aggregate: private state, validated factories and a drainable event
// buffer.
package user

import (
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
)

var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

type User struct {
	id        ident.UserID
	name      Name
	email     Email
	active    bool
	createdAt time.Time
	updatedAt time.Time

	events []Event
}

// RegisterUser creates an active user and records UserRegistered.
func RegisterUser(name Name, email Email) (*User, error) {
	const op = "user.RegisterUser"

	if name.IsZero() {
		return nil, domainerr.New(domainerr.KindMissingField, op, "name is required")
	}
	if email.IsZero() {
		return nil, domainerr.New(domainerr.KindMissingField, op, "email is required")
	}

	ts := now()
	u := &User{
		id:        ident.GenerateUserID(),
		name:      name,
		email:     email,
		active:    true,
		createdAt: ts,
		updatedAt: ts,
	}
	u.record(UserRegistered{header: u.eventHeader(ts), Name: name, Email: email})

	return u, nil
}

// ReconstructUser restores a user from storage without recording events.
func ReconstructUser(id ident.UserID, name Name, email Email, active bool, createdAt, updatedAt time.Time) (*User, error) {
	const op = "user.ReconstructUser"

	switch {
	case id.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "user id is required")
	case name.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "name is required")
	case email.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "email is required")
	case createdAt.IsZero():
		return nil, domainerr.New(domainerr.KindMissingField, op, "created at is required")
	case updatedAt.Before(createdAt):
		return nil, domainerr.New(domainerr.KindInvalidFormat, op, "updated at precedes created at")
	}

	return &User{
		id:        id,
		name:      name,
		email:     email,
		active:    active,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (u *User) ID() ident.UserID     { return u.id }
func (u *User) Name() Name           { return u.name }
func (u *User) Email() Email         { return u.email }
func (u *User) Active() bool         { return u.active }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Rename changes the display name. No event is recorded.
func (u *User) Rename(name Name) error {
	const op = "User.Rename"

	if err := u.requireActive(op); err != nil {
		return err
	}
	if name.IsZero() {
		return domainerr.New(domainerr.KindMissingField, op, "name is required")
	}
	if name == u.name {
		return nil
	}

	u.name = name
	u.touch()

	return nil
}

// ChangeEmail records UserEmailChanged unless the address is unchanged.
func (u *User) ChangeEmail(email Email) error {
	const op = "User.ChangeEmail"

	if err := u.requireActive(op); err != nil {
		return err
	}
	if email.IsZero() {
		return domainerr.New(domainerr.KindMissingField, op, "email is required")
	}
	if email == u.email {
		return nil
	}

	prev := u.email
	u.email = email
	u.touch()
	u.record(UserEmailChanged{header: u.eventHeader(u.updatedAt), Previous: prev, Current: email})

	return nil
}

// Deactivate is terminal: every later mutation fails.
func (u *User) Deactivate() error {
	if err := u.requireActive("User.Deactivate"); err != nil {
		return err
	}

	u.active = false
	u.touch()
	u.record(UserDeactivated{u.eventHeader(u.updatedAt)})

	return nil
}

func (u *User) DrainEvents() []Event {
	events := make([]Event, len(u.events))
	copy(events, u.events)
	u.events = nil

	return events
}

func (u *User) requireActive(op string) error {
	if !u.active {
		return domainerr.Newf(domainerr.KindInvalidStateTransition, op, "user %s is deactivated", u.id)
	}

	return nil
}

func (u *User) touch() {
	ts := now()
	if !ts.After(u.updatedAt) {
		ts = u.updatedAt.Add(time.Microsecond)
	}
	u.updatedAt = ts
}

func (u *User) record(e Event) {
	u.events = append(u.events, e)
}

func (u *User) eventHeader(at time.Time) header {
	return header{userID: u.id, occurredAt: at}
}
