/*
Package budget provides the daily budget engine: money normalization, the
leftover calculation, the daily record lifecycle and the persistence contracts.

PURPOSE:
  Everything that has a real invariant lives here. Outer layers (HTTP API,
  maintenance CLI) hand raw user input to this package and render whatever
  comes back. Nothing in here knows about HTTP, SQL dialects or terminals.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: a two-decimal quantized amount backed by decimal.Decimal
  - UserID / RecordID / GoalID: type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal, never float64, for stored amounts
  2. Fail-safe input: raw values pass through Normalize (normalize.go)
  3. Quantization: persisted amounts always carry exactly two decimals

SEE ALSO:
  - normalize.go: the single choke point for external input
  - leftover.go: leftover calculation
  - record.go: daily record save pipeline
*/
package budget

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every persisted amount carries.
const MoneyPlaces = 2

// =============================================================================
// MONEY - Two-decimal amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{Value: decimal.Zero}

// MaxDailyBudget is the largest daily budget accepted by validation.
var MaxDailyBudget = MoneyFromInt(100_000_000)

func MoneyFromInt(n int64) Money            { return Money{Value: decimal.NewFromInt(n)}.Quantize() }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d}.Quantize() }

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{Value: d}.Quantize()
}

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool      { return m.Value.LessThan(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }

// Quantize rounds to MoneyPlaces decimals.
func (m Money) Quantize() Money { return Money{Value: m.Value.Round(MoneyPlaces)} }

// IsQuantized reports whether the amount already has at most two decimals.
func (m Money) IsQuantized() bool { return m.Value.Equal(m.Value.Round(MoneyPlaces)) }

// String renders the amount with exactly two decimals, e.g. "40.00".
func (m Money) String() string { return m.Value.StringFixed(MoneyPlaces) }

func (m Money) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

// UnmarshalJSON accepts either a JSON string or number and runs it through
// the normalizer, so malformed input decodes to zero instead of failing.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = Zero
		return nil
	}
	*m = NormalizeOrZero(raw)
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RecordID string
type GoalID string
