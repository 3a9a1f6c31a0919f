package tax

import "github.com/shopspring/decimal"

// TaxCalculationResult is the outcome of one income tax calculation.
type TaxCalculationResult struct {
	TaxCode       TaxCode
	NonCumulative bool

	// TaxableSalary is the pay the calculation used: year to date for
	// cumulative codes, the period alone otherwise.
	TaxableSalary decimal.Decimal

	// TaxFreePay is the allowance to the end of the period (negative for K
	// codes). Zero for fixed codes.
	TaxFreePay decimal.Decimal

	// TaxableSalaryAfterAllowance is rounded down to whole pounds.
	TaxableSalaryAfterAllowance decimal.Decimal

	// HighestApplicableBandIndex is -1 for NT, which uses no band.
	HighestApplicableBandIndex    int
	IncomeAtHighestApplicableBand decimal.Decimal
	TaxAtHighestApplicableBand    decimal.Decimal

	// TaxToEndOfPeriod is the liability on TaxableSalary before anything
	// already paid is deducted.
	TaxToEndOfPeriod decimal.Decimal

	// TaxDue is the period's tax before the regulatory limit. Negative
	// values are refunds.
	TaxDue decimal.Decimal

	// TaxOverRegulatoryLimit is what the 50% cap held back this period.
	TaxOverRegulatoryLimit decimal.Decimal

	// FinalTaxDue is what is deducted (or refunded) this period.
	FinalTaxDue decimal.Decimal

	// TaxUnpaidDueToRegulatoryLimit is the carry figure for the next period.
	TaxUnpaidDueToRegulatoryLimit decimal.Decimal
}

// IsRefund is true when the period results in tax being repaid.
func (r TaxCalculationResult) IsRefund() bool { return r.FinalTaxDue.IsNegative() }

// HitRegulatoryLimit is true when the cap held back tax this period.
func (r TaxCalculationResult) HitRegulatoryLimit() bool { return r.TaxOverRegulatoryLimit.IsPositive() }
