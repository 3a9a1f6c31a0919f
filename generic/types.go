/*
Package generic provides the domain-neutral primitives the PAYE engine is built on.

PURPOSE:
  Income tax and National Insurance have very different rules, but they share
  the same vocabulary: money with statutory rounding, tax years that start on
  6 April, pay frequencies and the tax period a pay date falls into. Those
  shared pieces live here so the tax and ni packages agree on them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal values, never float64
  - Rounding: the handful of rounding modes HMRC mandates
  - Identifiers: type-safe employee IDs

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Explicit rounding: every rounding step names its mode
  3. Immutability: helpers return new values, inputs are never modified

USAGE:
  pay := generic.Money("2000.00")
  taxable := generic.FloorToPound(pay.Sub(allowance))

SEE ALSO:
  - period.go: Tax years, pay frequencies and pay dates
  - errors.go: Error taxonomy shared by all calculators
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal amounts in pounds
// =============================================================================

var (
	// Penny is the smallest unit any PAYE figure is expressed in.
	Penny = decimal.New(1, -2)

	// Half is used for the 50% regulatory limit.
	Half = decimal.New(5, -1)
)

// Money parses a pound amount. It panics on malformed input and is intended
// for literals in reference data and tests.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Pounds returns a whole-pound amount.
func Pounds(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// Rate parses a percentage literal such as "13.8" into a fraction (0.138).
func Rate(percent string) decimal.Decimal {
	return decimal.RequireFromString(percent).Shift(-2)
}

// =============================================================================
// ROUNDING - named after what HMRC calls them
// =============================================================================

// RoundToPound rounds to the nearest pound, halves away from zero.
func RoundToPound(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

// RoundUpToPound rounds up to the next whole pound (toward +infinity).
func RoundUpToPound(d decimal.Decimal) decimal.Decimal { return d.RoundCeil(0) }

// FloorToPound drops pence, rounding toward zero.
func FloorToPound(d decimal.Decimal) decimal.Decimal { return d.Truncate(0) }

// TruncateToPenny drops anything below a penny, rounding toward zero.
func TruncateToPenny(d decimal.Decimal) decimal.Decimal { return d.Truncate(2) }

// RoundUpToPenny rounds away from zero to the next penny.
func RoundUpToPenny(d decimal.Decimal) decimal.Decimal { return d.RoundUp(2) }

// MaxZero caps a value at zero from below.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
