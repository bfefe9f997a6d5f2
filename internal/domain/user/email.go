package user

import (
	"strings"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Email is a lower-cased, syntactically valid address.
type Email struct{ value string }

func NewEmail(raw string) (Email, error) {
	const op = "user.NewEmail"

	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Email{}, domainerr.New(domainerr.KindMissingField, op, "email is required")
	}
	if err := validate.Var(v, "email"); err != nil {
		return Email{}, domainerr.Newf(domainerr.KindInvalidFormat, op, "%q is not an email address", raw)
	}

	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }
func (e Email) IsZero() bool   { return e.value == "" }
