package budget

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NORMALIZER - Raw input to safe Money
// =============================================================================

// Normalize converts arbitrary external input into a finite, non-negative,
// two-decimal amount. It never fails: unparseable input, NaN/Inf and
// negative values all yield def.
//
// Accepted inputs: nil, string and *string (comma or dot as decimal
// separator), Money, decimal.Decimal, json.Number, Go integer and float kinds.
// Blank strings and the placeholders "-" and "--" count as missing.
func Normalize(raw any, def Money) Money {
	def = sanitizeDefault(def)

	d, ok := toDecimal(raw)
	if !ok || d.IsNegative() {
		return def
	}
	return Money{Value: d}.Quantize()
}

// NormalizeOrZero is Normalize with a zero default.
func NormalizeOrZero(raw any) Money {
	return Normalize(raw, Zero)
}

// sanitizeDefault keeps the fallback itself within the invariant.
func sanitizeDefault(def Money) Money {
	if def.IsNegative() {
		return Zero
	}
	return def.Quantize()
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case Money:
		return v.Value, true
	case *Money:
		if v == nil {
			return decimal.Zero, false
		}
		return v.Value, true
	case decimal.Decimal:
		return v, true
	case string:
		return parseDecimalString(v)
	case *string:
		if v == nil {
			return decimal.Zero, false
		}
		return parseDecimalString(*v)
	case json.Number:
		return parseDecimalString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromUint64(uint64(v)), true
	case uint8:
		return decimal.NewFromInt(int64(v)), true
	case uint16:
		return decimal.NewFromInt(int64(v)), true
	case uint32:
		return decimal.NewFromInt(int64(v)), true
	case uint64:
		return decimal.NewFromUint64(v), true
	case float32:
		return floatDecimal(float64(v))
	case float64:
		return floatDecimal(v)
	default:
		return decimal.Zero, false
	}
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// parseDecimalString rejects placeholders and anything decimal cannot parse,
// which includes "NaN", "Infinity" and thousands separators.
func parseDecimalString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "--":
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// RAW INSPECTION - Used by diagnostics on persisted text
// =============================================================================

// RawFlaw is a set of problems found in a persisted monetary value.
// The zero value means the value is valid.
type RawFlaw uint8

const (
	RawUnparseable RawFlaw = 1 << iota // NULL, blank, NaN, Infinity, garbage
	RawNegative
	RawUnquantized // more than two decimals
)

// Has reports whether f contains flaw.
func (f RawFlaw) Has(flaw RawFlaw) bool { return f&flaw != 0 }

// InspectRaw reports what is wrong with a persisted value. A negative
// value with extra decimals carries both flaws. Unlike Normalize it does
// not treat placeholders specially: an empty column is corrupt, not missing.
func InspectRaw(raw string) RawFlaw {
	d, ok := parseDecimalString(raw)
	if !ok {
		return RawUnparseable
	}
	var flaw RawFlaw
	if d.IsNegative() {
		flaw |= RawNegative
	}
	if !d.Equal(d.Round(MoneyPlaces)) {
		flaw |= RawUnquantized
	}
	return flaw
}
