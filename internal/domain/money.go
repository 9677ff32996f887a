package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an immutable, currency-tagged non-negative decimal amount.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, NewInvalidAmountError(amount.String())
	}
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: code}, nil
}

// NewMoneyFromString parses a decimal string such as "19.99".
func NewMoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, &DomainError{
			Code:    ErrCodeInvalidAmount,
			Message: fmt.Sprintf("invalid amount %q", amount),
			Err:     err,
		}
	}
	return NewMoney(d, currency)
}

// ZeroMoney returns a zero amount in the given currency. The currency is
// normalized but not validated.
func ZeroMoney(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(strings.TrimSpace(currency))}
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) < 3 {
		return "", NewInvalidCurrencyError(currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", NewInvalidCurrencyError(currency)
		}
	}
	return code, nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract fails with ErrInvalidAmount when the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.amount.Sub(other.amount)
	if diff.IsNegative() {
		return Money{}, NewInvalidAmountError(diff.String())
	}
	return Money{amount: diff, currency: m.currency}, nil
}

// Multiply scales the amount. A negative factor fails with ErrInvalidAmount.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, NewInvalidAmountError(factor.String())
	}
	return Money{amount: m.amount.Mul(factor), currency: m.currency}, nil
}

func (m Money) IsGreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Round rounds half to even at the given number of decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.RoundBank(places), currency: m.currency}
}

// Equal compares amount by value, so 15 and 15.00 of the same currency are equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return NewCurrencyMismatchError(m.currency, other.currency)
	}
	return nil
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
