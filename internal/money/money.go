package money

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CLP is an amount of Chilean pesos. The peso is a zero-decimal currency, so the
// atomic unit is the peso itself.
type CLP int64

var (
	// ErrOverflow occurs when an operation would exceed int64 capacity.
	ErrOverflow = errors.New("money: arithmetic overflow")

	// ErrNegativeAmount occurs when a negative amount or count is given.
	ErrNegativeAmount = errors.New("money: negative amount not allowed")
)

// DefaultLocale is the locale used for amount display on the checkout pages.
var DefaultLocale = language.MustParse("es-CL")

// Extend returns unit × count, the total shown next to a selection.
func Extend(unit CLP, count int) (CLP, error) {
	if unit < 0 || count < 0 {
		return 0, ErrNegativeAmount
	}
	if count != 0 && int64(unit) > math.MaxInt64/int64(count) {
		return 0, ErrOverflow
	}
	return unit * CLP(count), nil
}

// ParseAmount reads an amount typed into an input field. Whatever does not parse
// as a whole number of pesos is treated as zero, matching how an empty or
// half-typed field behaves.
func ParseAmount(raw string) CLP {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return CLP(n)
}

// Format renders the amount with the grouping rules of tag.
func (c CLP) Format(tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%d", int64(c))
}

// String renders the amount in the default locale.
func (c CLP) String() string {
	return c.Format(DefaultLocale)
}

// Int64 returns the raw amount for JSON payloads.
func (c CLP) Int64() int64 {
	return int64(c)
}
