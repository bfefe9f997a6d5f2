package user

import (
	"strings"
	"unicode/utf8"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
)

const maxNameLength = 100

// Name is a display name, trimmed, at most maxNameLength runes.
type Name struct{ value string }

func NewName(raw string) (Name, error) {
	const op = "user.NewName"

	v := strings.TrimSpace(raw)
	if v == "" {
		return Name{}, domainerr.New(domainerr.KindMissingField, op, "name is required")
	}
	if n := utf8.RuneCountInString(v); n > maxNameLength {
		return Name{}, domainerr.Newf(domainerr.KindInvalidFormat, op, "name is %d characters, max %d", n, maxNameLength)
	}

	return Name{value: v}, nil
}

func (n Name) String() string { return n.value }
func (n Name) IsZero() bool   { return n.value == "" }
