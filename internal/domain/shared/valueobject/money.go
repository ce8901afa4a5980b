package valueobject

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CNY Currency = "CNY" // Chinese Yuan
	JPY Currency = "JPY" // Japanese Yen
	HKD Currency = "HKD" // Hong Kong Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// zeroDecimalCurrencies have no minor unit
var zeroDecimalCurrencies = map[Currency]struct{}{
	JPY:   {},
	"KRW": {},
	"VND": {},
	"CLP": {},
	"ISK": {},
}

// Scale returns the number of decimal places of the currency's minor unit
func (c Currency) Scale() int32 {
	if _, ok := zeroDecimalCurrencies[c]; ok {
		return 0
	}
	return 2
}

// IsValid reports whether c looks like an ISO 4217 code
func (c Currency) IsValid() bool {
	return currencyPattern.MatchString(string(c))
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is a value object representing a non-negative monetary amount held
// as an integer count of minor units. It is immutable; all operations return
// new Money instances.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates Money from a decimal amount. The amount must be
// non-negative and carry no more precision than the currency allows.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, shared.NewValidationErrorf("INVALID_CURRENCY", "invalid currency code %q", currency)
	}
	if amount.IsNegative() {
		return Money{}, shared.NewValidationError("NEGATIVE_AMOUNT", "money amount cannot be negative")
	}
	scale := currency.Scale()
	if !amount.Equal(amount.Truncate(scale)) {
		return Money{}, shared.NewValidationErrorf("AMOUNT_PRECISION",
			"amount %s has more than %d decimal places for %s", amount.String(), scale, currency)
	}
	minor := amount.Shift(scale)
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Money{}, shared.NewValidationError("AMOUNT_OVERFLOW", "money amount is too large")
	}
	return Money{minor: minor.IntPart(), currency: currency}, nil
}

// NewMoneyFromString creates Money from a string representation such as "1200.00"
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewValidationErrorf("INVALID_AMOUNT", "invalid amount string %q", amount)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromMinor creates Money from a count of minor units (e.g. cents)
func NewMoneyFromMinor(minor int64, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, shared.NewValidationErrorf("INVALID_CURRENCY", "invalid currency code %q", currency)
	}
	if minor < 0 {
		return Money{}, shared.NewValidationError("NEGATIVE_AMOUNT", "money amount cannot be negative")
	}
	return Money{minor: minor, currency: currency}, nil
}

// MustMoney parses amount and panics on failure. Intended for constants and tests.
func MustMoney(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

// MinorUnits returns the amount as an integer count of minor units
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return decimal.New(m.minor, -m.currency.Scale())
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.minor > 0
}

func (m Money) sameCurrency(other Money, op string) error {
	if m.currency != other.currency {
		return shared.NewValidationErrorf("CURRENCY_MISMATCH",
			"cannot %s money with different currencies: %s and %s", op, m.currency, other.currency)
	}
	return nil
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other, "add"); err != nil {
		return Money{}, err
	}
	if other.minor > math.MaxInt64-m.minor {
		return Money{}, shared.NewValidationError("AMOUNT_OVERFLOW", "money amount is too large")
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Subtract returns a new Money with the difference. It fails with a
// negative balance error when other is larger than m.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other, "subtract"); err != nil {
		return Money{}, err
	}
	if other.minor > m.minor {
		return Money{}, shared.NewDomainError(shared.KindNegativeBalance, "NEGATIVE_BALANCE",
			fmt.Sprintf("cannot subtract %s from %s", other, m))
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// MultiplyByInt returns a new Money multiplied by a non-negative integer
func (m Money) MultiplyByInt(factor int64) (Money, error) {
	if factor < 0 {
		return Money{}, shared.NewValidationError("NEGATIVE_FACTOR", "factor cannot be negative")
	}
	if factor != 0 && m.minor > math.MaxInt64/factor {
		return Money{}, shared.NewValidationError("AMOUNT_OVERFLOW", "money amount is too large")
	}
	return Money{minor: m.minor * factor, currency: m.currency}, nil
}

// Compare returns -1, 0 or 1 when m is less than, equal to or greater than other
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other, "compare"); err != nil {
		return 0, err
	}
	switch {
	case m.minor < other.minor:
		return -1, nil
	case m.minor > other.minor:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.minor == other.minor
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

// String returns a string representation of the Money, e.g. "1200.00 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.StringFixed(), m.currency)
}

// StringFixed returns the amount with the currency's number of decimal places
func (m Money) StringFixed() string {
	return m.Amount().StringFixed(m.currency.Scale())
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded value goes through
// the same validation as NewMoneyFromString.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
