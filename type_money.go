package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ReportingCurrency is the single currency every amount in the engine is
// denominated in. Multi-currency accounting is a non-goal.
const ReportingCurrency = "USD"

// Money represents a monetary value, held exactly as a decimal.
type Money struct {
	value decimal.Decimal
}

// M is a convenient factory for Money.
func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Money {
	return Money{value: newDecimal(value)}
}

// newDecimal converts common numeric types to a decimal.Decimal.
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// currency returns the full reporting currency definition.
func (m Money) currency() money.Currency {
	return *money.New(0, ReportingCurrency).Currency()
}

// String formats the value with the reporting currency's symbol and fraction.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.Round(0).IntPart())
}

// SignedString is like String with an explicit sign; zero renders as "-".
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) LessThanOrEqual(n Money) bool    { return m.value.LessThanOrEqual(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }

func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }

// Mul scales the value by a share count.
func (m Money) Mul(quantity int64) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(quantity))}
}

// MulDecimal scales the value by an exact decimal factor (tax rates, split
// coefficients).
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{value: m.value.Mul(factor)}
}

// PercentOf returns m as a percentage of base (e.g. 25.0 for a quarter).
// Returns 0 for a zero base.
func (m Money) PercentOf(base Money) Percent {
	if base.IsZero() {
		return 0
	}
	return Percent(100 * m.value.InexactFloat64() / base.value.InexactFloat64())
}

// Decimal returns the exact underlying value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// AsFloat returns an inexact float64 view, for ratio math only (CAGR).
func (m Money) AsFloat() float64 { return m.value.InexactFloat64() }

// MarshalJSON encodes the value as a bare decimal number.
func (m Money) MarshalJSON() ([]byte, error) { return m.value.MarshalJSON() }

// UnmarshalJSON decodes the value from a decimal number.
func (m *Money) UnmarshalJSON(data []byte) error { return m.value.UnmarshalJSON(data) }
