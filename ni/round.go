package ni

import (
	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

var niRoundThreshold = decimal.New(5, -3)

// NiRound applies HMRC's NI rounding. The amount is truncated to the penny
// and the discarded fraction, itself truncated to three places, is compared
// with 0.005: at or below it rounds down, above it rounds away from zero.
//
//	1.005 -> 1.00
//	1.006 -> 1.01
//	1.0059 -> 1.00
func NiRound(amount decimal.Decimal) decimal.Decimal {
	pennies := amount.Truncate(2)
	fraction := amount.Sub(pennies).Abs().Truncate(3)
	if !fraction.GreaterThan(niRoundThreshold) {
		return pennies
	}
	if amount.IsNegative() {
		return pennies.Sub(generic.Penny)
	}
	return pennies.Add(generic.Penny)
}
