package currency

import (
	"database/sql/driver"
	"strings"

	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
)

// Currency is an ISO 4217 code supported by the order domain.
type Currency string

const (
	JPY Currency = "JPY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	RUB Currency = "RUB"
)

var supported = map[Currency]struct{}{
	JPY: {},
	USD: {},
	EUR: {},
	GBP: {},
	RUB: {},
}

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether c is one of the supported codes.
func (c Currency) IsValid() bool {
	_, ok := supported[c]

	return ok
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// Parse parses a currency code, ignoring case and surrounding whitespace.
func Parse(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", domainerr.Newf(domainerr.KindInvalidFormat, "currency.Parse", "unsupported currency %q", s)
	}

	return c, nil
}
