package valueobject

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	IQD Currency = "IQD"
	JOD Currency = "JOD"
	KWD Currency = "KWD"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is used when an invoice does not carry one
const DefaultCurrency = IQD

// AmountScale is the number of fractional digits kept for money
const AmountScale int32 = 3

// Epsilon absorbs rounding noise when comparing settlement amounts.
var Epsilon = decimal.New(1, -AmountScale)

// Round rounds an amount to AmountScale using banker's rounding
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountScale)
}

// IsNegligible reports |d| <= Epsilon
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Epsilon)
}

// ExceedsBy reports whether a > b + Epsilon
func ExceedsBy(a, b decimal.Decimal) bool {
	return a.GreaterThan(b.Add(Epsilon))
}

// FitsScale reports whether d carries no more than AmountScale fractional digits
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}

// NonNegative returns max(0, d)
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Money is an amount tagged with its currency
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney creates Money, defaulting the currency
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// String renders the amount with AmountScale digits and the currency code
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(AmountScale), m.Currency)
}

// Format renders the amount with locale grouping, e.g. "1,250.500 IQD" for
// English. The digits come from StringFixed so large amounts stay exact;
// amounts whose integer part overflows int64 fall back to String.
func (m Money) Format(tag language.Tag) string {
	fixed := m.Amount.StringFixed(AmountScale)
	sign := ""
	if rest, ok := strings.CutPrefix(fixed, "-"); ok {
		sign, fixed = "-", rest
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return m.String()
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return m.String()
	}

	p := message.NewPrinter(tag)
	return fmt.Sprintf("%s%s%s%s %s", sign,
		p.Sprintf("%v", number.Decimal(w)),
		decimalSeparator(p),
		p.Sprintf("%v", number.Decimal(f, number.NoSeparator(), number.MinIntegerDigits(int(AmountScale)))),
		m.Currency)
}

// decimalSeparator returns the separator the printer puts between the
// integer and fractional digits
func decimalSeparator(p *message.Printer) string {
	half := []rune(p.Sprintf("%v", number.Decimal(0.5, number.Scale(1))))
	if len(half) < 3 {
		return "."
	}
	return string(half[1 : len(half)-1])
}
