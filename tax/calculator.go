package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes PAYE income tax for one regime, tax year, pay
// frequency and tax period. It holds no mutable state and is safe for
// concurrent use across employees.
type Calculator struct {
	taxYear   generic.TaxYear
	regime    TaxRegime
	frequency generic.PayFrequency
	taxPeriod int
	bands     TaxPeriodBandwidthSet
}

// NewCalculator binds a calculator to its annual bands, prorated to the
// given tax period.
func NewCalculator(taxYear generic.TaxYear, regime TaxRegime, annual TaxBandwidthSet, frequency generic.PayFrequency, taxPeriod int) (*Calculator, error) {
	if !regime.Valid() {
		return nil, &generic.ArgumentError{Arg: "regime", Reason: fmt.Sprintf("unknown regime %q", regime)}
	}
	if !frequency.Valid() {
		return nil, &generic.ArgumentError{Arg: "frequency", Reason: fmt.Sprintf("unknown pay frequency %q", frequency)}
	}

	bands, err := NewTaxPeriodBandwidthSet(annual, taxPeriod, frequency.StandardPeriodCount())
	if err != nil {
		return nil, err
	}

	return &Calculator{
		taxYear:   taxYear,
		regime:    regime,
		frequency: frequency,
		taxPeriod: taxPeriod,
		bands:     bands,
	}, nil
}

func (c *Calculator) TaxYear() generic.TaxYear          { return c.taxYear }
func (c *Calculator) Regime() TaxRegime                 { return c.regime }
func (c *Calculator) Frequency() generic.PayFrequency   { return c.frequency }
func (c *Calculator) TaxPeriod() int                    { return c.taxPeriod }
func (c *Calculator) Bandwidths() TaxPeriodBandwidthSet { return c.bands }

// isExtraPeriod is true in week 53 (or 54/56): tax there is always
// calculated on a week 1 basis.
func (c *Calculator) isExtraPeriod() bool {
	return c.taxPeriod > c.frequency.StandardPeriodCount()
}

// Calculate works out the tax due for the period.
//
//   - taxablePay: taxable pay in this period, including benefits in kind
//   - benefitsInKind: the payrolled benefits part of taxablePay
//   - taxableSalaryYtd, taxPaidYtd: totals before this period
//   - taxUnpaidDueToRegulatoryLimit: tax carried forward because an earlier
//     period hit the 50% limit
func (c *Calculator) Calculate(
	taxablePay, benefitsInKind decimal.Decimal,
	code TaxCode,
	taxableSalaryYtd, taxPaidYtd, taxUnpaidDueToRegulatoryLimit decimal.Decimal,
) (TaxCalculationResult, error) {
	if code.Treatment != TreatmentNT && code.Regime != c.regime {
		return TaxCalculationResult{}, &generic.ArgumentError{
			Arg:    "tax_code",
			Reason: fmt.Sprintf("code %s is for regime %s but calculator is %s", code, code.Regime, c.regime),
		}
	}

	in := calcInput{
		taxablePay:       taxablePay,
		benefitsInKind:   benefitsInKind,
		code:             code,
		taxableSalaryYtd: taxableSalaryYtd,
		taxPaidYtd:       taxPaidYtd,
		carriedUnpaid:    taxUnpaidDueToRegulatoryLimit,
		nonCumulative:    code.NonCumulative || c.isExtraPeriod(),
	}

	if code.IsFixedCode() {
		return c.calculateFixedCode(in)
	}
	return c.calculateStandardCode(in)
}

type calcInput struct {
	taxablePay       decimal.Decimal
	benefitsInKind   decimal.Decimal
	code             TaxCode
	taxableSalaryYtd decimal.Decimal
	taxPaidYtd       decimal.Decimal
	carriedUnpaid    decimal.Decimal
	nonCumulative    bool
}

// taxableSalary is the pay the calculation is based on: the period alone for
// non-cumulative codes, otherwise the year to date including this period.
func (in calcInput) taxableSalary() decimal.Decimal {
	if in.nonCumulative {
		return in.taxablePay
	}
	return in.taxablePay.Add(in.taxableSalaryYtd)
}

// taxDue is the period's liability before the regulatory limit. For
// cumulative codes it is tax to date less tax paid; a negative figure is a
// refund only while tax paid exceeds the tax-free pay to date, otherwise it
// is floored to zero.
func (in calcInput) taxDue(taxToDate, taxFreePay decimal.Decimal) decimal.Decimal {
	if in.nonCumulative {
		return taxToDate
	}
	due := taxToDate.Sub(in.taxPaidYtd)
	if due.IsNegative() && !in.taxPaidYtd.GreaterThan(taxFreePay) {
		return decimal.Zero
	}
	return due
}

// =============================================================================
// FIXED CODES - BR, D0, D1, D2, NT
// =============================================================================

func (c *Calculator) calculateFixedCode(in calcInput) (TaxCalculationResult, error) {
	taxableSalary := in.taxableSalary()
	taxable := generic.MaxZero(generic.FloorToPound(taxableSalary))

	rate := decimal.Zero
	bandIndex := -1
	if in.code.Treatment != TreatmentNT {
		band, err := c.bands.Annual.FixedCodeBand(in.code.Treatment)
		if err != nil {
			return TaxCalculationResult{}, err
		}
		rate = band.Rate
		bandIndex = band.Index
	}

	taxToDate := generic.TruncateToPenny(taxable.Mul(rate))
	taxDue := in.taxDue(taxToDate, decimal.Zero)

	return c.finalise(in, TaxCalculationResult{
		TaxCode:                       in.code,
		NonCumulative:                 in.nonCumulative,
		TaxableSalary:                 taxableSalary,
		TaxFreePay:                    decimal.Zero,
		TaxableSalaryAfterAllowance:   taxable,
		HighestApplicableBandIndex:    bandIndex,
		IncomeAtHighestApplicableBand: taxable,
		TaxAtHighestApplicableBand:    taxToDate,
		TaxToEndOfPeriod:              taxToDate,
		TaxDue:                        taxDue,
	}), nil
}

// =============================================================================
// STANDARD CODES - L, M, N, T, K and 0T
// =============================================================================

func (c *Calculator) calculateStandardCode(in calcInput) (TaxCalculationResult, error) {
	periodCount := c.frequency.StandardPeriodCount()

	period := c.taxPeriod
	if in.nonCumulative {
		period = 1
	} else if period > periodCount {
		period = periodCount
	}

	taxFreePay := in.code.TaxFreePayForPeriod(period, periodCount)
	taxableSalary := in.taxableSalary()
	afterAllowance := generic.FloorToPound(taxableSalary.Sub(taxFreePay))

	result := TaxCalculationResult{
		TaxCode:                     in.code,
		NonCumulative:               in.nonCumulative,
		TaxableSalary:               taxableSalary,
		TaxFreePay:                  taxFreePay,
		TaxableSalaryAfterAllowance: afterAllowance,
	}

	taxToDate := decimal.Zero
	if afterAllowance.IsPositive() {
		band, err := c.bands.ApplicableBand(afterAllowance, in.nonCumulative)
		if err != nil {
			return TaxCalculationResult{}, err
		}
		incomeInBand := afterAllowance.Sub(band.StartOfBandForPeriod)
		taxInBand := incomeInBand.Mul(band.Rate)
		taxToDate = generic.TruncateToPenny(band.TaxAtStartOfBandForPeriod.Add(taxInBand))

		result.HighestApplicableBandIndex = band.Index
		result.IncomeAtHighestApplicableBand = incomeInBand
		result.TaxAtHighestApplicableBand = generic.TruncateToPenny(taxInBand)
	}
	result.TaxToEndOfPeriod = taxToDate

	result.TaxDue = in.taxDue(taxToDate, taxFreePay)

	return c.finalise(in, result), nil
}

// =============================================================================
// REGULATORY LIMIT
// =============================================================================

// RegulatoryLimitOutcome is the result of applying the 50% overriding limit.
type RegulatoryLimitOutcome struct {
	FinalTaxDue decimal.Decimal

	// TaxOverRegulatoryLimit is the part of this period's tax, carry
	// included, that the cap stopped being deducted. Zero when uncapped.
	TaxOverRegulatoryLimit decimal.Decimal

	// TaxUnpaidDueToRegulatoryLimit is carried to the next period. A refund
	// period keeps the incoming carry untouched.
	TaxUnpaidDueToRegulatoryLimit decimal.Decimal
}

// RegulatoryLimit is 50% of the period's pay excluding benefits in kind,
// truncated to the penny.
func RegulatoryLimit(taxablePay, benefitsInKind decimal.Decimal) decimal.Decimal {
	return generic.TruncateToPenny(generic.MaxZero(taxablePay.Sub(benefitsInKind)).Mul(generic.Half))
}

// ProcessRegulatoryLimit caps positive tax due at the regulatory limit.
// Refunds pass through unchanged. Any tax carried forward from earlier
// periods is added back and re-tested against the cap.
func ProcessRegulatoryLimit(taxablePay, benefitsInKind, taxDue, carriedUnpaid decimal.Decimal) RegulatoryLimitOutcome {
	if taxDue.IsNegative() {
		return RegulatoryLimitOutcome{
			FinalTaxDue:                   taxDue,
			TaxOverRegulatoryLimit:        decimal.Zero,
			TaxUnpaidDueToRegulatoryLimit: generic.MaxZero(carriedUnpaid),
		}
	}

	total := taxDue.Add(generic.MaxZero(carriedUnpaid))
	limit := RegulatoryLimit(taxablePay, benefitsInKind)

	if total.GreaterThan(limit) {
		over := total.Sub(limit)
		return RegulatoryLimitOutcome{FinalTaxDue: limit, TaxOverRegulatoryLimit: over, TaxUnpaidDueToRegulatoryLimit: over}
	}
	return RegulatoryLimitOutcome{FinalTaxDue: total, TaxOverRegulatoryLimit: decimal.Zero, TaxUnpaidDueToRegulatoryLimit: decimal.Zero}
}

// finalise runs the shared regulatory limit step. Cumulative codes recover
// unpaid tax through their year-to-date figures, so only non-cumulative
// codes add the carried amount back explicitly.
func (c *Calculator) finalise(in calcInput, result TaxCalculationResult) TaxCalculationResult {
	carried := decimal.Zero
	if in.nonCumulative {
		carried = in.carriedUnpaid
	}

	outcome := ProcessRegulatoryLimit(in.taxablePay, in.benefitsInKind, result.TaxDue, carried)
	result.FinalTaxDue = outcome.FinalTaxDue
	result.TaxOverRegulatoryLimit = outcome.TaxOverRegulatoryLimit
	result.TaxUnpaidDueToRegulatoryLimit = outcome.TaxUnpaidDueToRegulatoryLimit
	return result
}
