// Package domainerr holds the error kinds returned by the domain layer.
package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindInvalidFormat          Kind = "invalid_format"
	KindNegativeAmount         Kind = "negative_amount"
	KindNegativeResult         Kind = "negative_result"
	KindNegativeFactor         Kind = "negative_factor"
	KindCurrencyMismatch       Kind = "currency_mismatch"
	KindInvalidQuantity        Kind = "invalid_quantity"
	KindMissingField           Kind = "missing_field"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindEmptyOrder             Kind = "empty_order"
	KindItemNotFound           Kind = "item_not_found"
)

// Sentinels for errors.Is checks. Any *Error with the same Kind matches.
var (
	ErrInvalidFormat          = &Error{Kind: KindInvalidFormat}
	ErrNegativeAmount         = &Error{Kind: KindNegativeAmount}
	ErrNegativeResult         = &Error{Kind: KindNegativeResult}
	ErrNegativeFactor         = &Error{Kind: KindNegativeFactor}
	ErrCurrencyMismatch       = &Error{Kind: KindCurrencyMismatch}
	ErrInvalidQuantity        = &Error{Kind: KindInvalidQuantity}
	ErrMissingField           = &Error{Kind: KindMissingField}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrEmptyOrder             = &Error{Kind: KindEmptyOrder}
	ErrItemNotFound           = &Error{Kind: KindItemNotFound}
)

// Error is a domain rule violation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
	case e.Op != "":
		return fmt.Sprintf("%s (%s)", e.Op, e.Kind)
	case e.Message != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
	default:
		return string(e.Kind)
	}
}

// Is reports whether target is a domain error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Kind == t.Kind
}

// New builds a domain error.
func New(kind Kind, op, message string) error {
	return &Error{
		Kind:    kind,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
	}
}

// Newf builds a domain error with a formatted message.
func Newf(kind Kind, op, format string, args ...any) error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// KindOf extracts the kind of a domain error, or "" if err is not one.
func KindOf(err error) Kind {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return ""
	}

	return domainErr.Kind
}

// IsDomain reports whether err carries a domain error.
func IsDomain(err error) bool {
	return KindOf(err) != ""
}
