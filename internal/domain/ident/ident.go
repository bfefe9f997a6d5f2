// Package ident provides UUID-backed identifier value objects.
package ident

import (
	"strings"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/google/uuid"
)

// Identifier is an immutable, validated UUID. The zero value is not a valid id.
type Identifier struct {
	value string
}

// New parses raw into an Identifier. Surrounding whitespace is ignored and the
// stored form is the canonical lower-case UUID.
func New(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, domainerr.New(domainerr.KindInvalidFormat, "ident.New", "identifier is empty")
	}

	u, err := uuid.Parse(trimmed)
	if err != nil {
		return Identifier{}, domainerr.Newf(domainerr.KindInvalidFormat, "ident.New", "%q is not a valid UUID", trimmed)
	}

	return Identifier{value: u.String()}, nil
}

// Generate returns a fresh random identifier.
func Generate() Identifier {
	return Identifier{value: uuid.NewString()}
}

func (i Identifier) String() string { return i.value }

// IsZero reports whether i is the zero value.
func (i Identifier) IsZero() bool { return i.value == "" }

// Equals reports value equality.
func (i Identifier) Equals(other Identifier) bool { return i.value == other.value }

// OrderID identifies an order aggregate.
type OrderID struct{ Identifier }

// UserID identifies a user aggregate.
type UserID struct{ Identifier }

// ProductID identifies a product referenced by an order line.
type ProductID struct{ Identifier }

func NewOrderID(raw string) (OrderID, error) {
	id, err := New(raw)

	return OrderID{id}, err
}

func NewUserID(raw string) (UserID, error) {
	id, err := New(raw)

	return UserID{id}, err
}

func NewProductID(raw string) (ProductID, error) {
	id, err := New(raw)

	return ProductID{id}, err
}

func GenerateOrderID() OrderID     { return OrderID{Generate()} }
func GenerateUserID() UserID       { return UserID{Generate()} }
func GenerateProductID() ProductID { return ProductID{Generate()} }
