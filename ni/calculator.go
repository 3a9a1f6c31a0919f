package ni

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes Class 1 NI for one pay period. It is bound to the
// period's reference data and holds no state between calls.
type Calculator struct {
	annual        NiThresholdSet
	period        NiPeriodThresholdSet
	rates         NiRatesTable
	directorRates NiRatesTable
	isFinalPeriod bool
}

// NewCalculator binds a calculator to annual and period thresholds and the
// employee and director rate tables. isFinalPeriod enables the directors'
// alternative-method reconciliation.
func NewCalculator(annual NiThresholdSet, period NiPeriodThresholdSet, rates, directorRates NiRatesTable, isFinalPeriod bool) *Calculator {
	return &Calculator{
		annual:        annual,
		period:        period,
		rates:         rates,
		directorRates: directorRates,
		isFinalPeriod: isFinalPeriod,
	}
}

func (c *Calculator) AnnualThresholds() NiThresholdSet       { return c.annual }
func (c *Calculator) PeriodThresholds() NiPeriodThresholdSet { return c.period }
func (c *Calculator) IsFinalPeriod() bool                    { return c.isFinalPeriod }

// Calculate runs the banded algorithm on the period's nicable pay.
func (c *Calculator) Calculate(category NiCategory, nicablePay decimal.Decimal) (NiCalculationResult, error) {
	rates, ok := c.rates.Get(category)
	if !ok {
		return NiCalculationResult{}, &generic.OperationError{
			Op:     "ni calculate",
			Reason: fmt.Sprintf("no rates for category %s", category),
		}
	}
	return c.calculatePeriod(category, rates, nicablePay, false)
}

func (c *Calculator) calculatePeriod(category NiCategory, rates NiCategoryRatesEntry, pay decimal.Decimal, director bool) (NiCalculationResult, error) {
	ladder, err := c.period.periodLadder(category)
	if err != nil {
		return NiCalculationResult{}, err
	}

	result := NiCalculationResult{
		Category:   category,
		NicablePay: pay,
		Rates:      rates,
		Thresholds: ladder,
		IsDirector: director,
	}

	breakdown, belowLEL := splitEarnings(pay, ladder)
	if belowLEL {
		return noRecordingRequired(result), nil
	}

	result.Outcome = OutcomeContributions
	result.Breakdown = breakdown
	result.EmployeeContribution = employeeContribution(breakdown, rates)
	result.EmployerContribution = employerContribution(breakdown, rates)
	return result, nil
}

func noRecordingRequired(result NiCalculationResult) NiCalculationResult {
	result.Outcome = OutcomeNoRecordingRequired
	result.Breakdown = zeroBreakdown()
	result.EmployeeContribution = decimal.Zero
	result.EmployerContribution = decimal.Zero
	return result
}

// =============================================================================
// BANDED ALGORITHM
// =============================================================================

// splitEarnings walks the ladder LEL, ST, PT, upper secondary, UEL. Each band
// is the earnings above its lower threshold less the earnings above its
// upper threshold; once nothing is left above a threshold the walk stops and
// the remaining bands stay zero.
func splitEarnings(pay decimal.Decimal, th NiThresholdsUsed) (NiEarningsBreakdown, bool) {
	b := zeroBreakdown()

	aboveLEL := pay.Sub(th.LEL)
	if aboveLEL.IsNegative() {
		return b, true
	}
	b.AtLEL = th.LEL

	aboveST := generic.MaxZero(pay.Sub(th.ST))
	b.LELToST = aboveLEL.Sub(aboveST)
	if aboveST.IsZero() {
		return b, false
	}

	abovePT := generic.MaxZero(pay.Sub(th.PT))
	b.STToPT = aboveST.Sub(abovePT)
	if abovePT.IsZero() {
		return b, false
	}

	aboveUpperSecondary := generic.MaxZero(pay.Sub(th.UpperSecondary))
	b.PTToFUST = abovePT.Sub(aboveUpperSecondary)
	if aboveUpperSecondary.IsZero() {
		return b, false
	}

	aboveUEL := generic.MaxZero(pay.Sub(th.UEL))
	b.FUSTToUEL = aboveUpperSecondary.Sub(aboveUEL)
	b.AboveUEL = aboveUEL
	return b, false
}

func employeeContribution(b NiEarningsBreakdown, r NiCategoryRatesEntry) decimal.Decimal {
	main := b.LELToPT().Mul(r.EmployeeRateToPT).
		Add(b.PTToUEL().Mul(r.EmployeeRatePTToUEL))
	return NiRound(main).Add(NiRound(b.AboveUEL.Mul(r.EmployeeRateAboveUEL)))
}

func employerContribution(b NiEarningsBreakdown, r NiCategoryRatesEntry) decimal.Decimal {
	main := b.LELToST.Mul(r.EmployerRateLELToST).
		Add(b.STToPT.Add(b.PTToFUST).Mul(r.EmployerRateSTToFUST)).
		Add(b.FUSTToUEL.Mul(r.EmployerRateFUSTToUEL))
	return NiRound(main).Add(NiRound(b.AboveUEL.Mul(r.EmployerRateAboveUEL)))
}

// =============================================================================
// DIRECTORS
// =============================================================================

// CalculateDirectors computes NI for a company director.
//
// Under the standard method, and under the alternative method in the final
// period, earnings to date are assessed against annual thresholds (DPT in
// place of PT when published) and the contributions due are the totals to
// date less what has already been paid. proRataFactor, when set, scales the
// annual thresholds for someone who became a director during the year.
//
// Under the alternative method outside the final period the period is
// assessed like any other employee's, at director rates.
func (c *Calculator) CalculateDirectors(
	method DirectorsMethod,
	category NiCategory,
	earningsInPeriod, earningsYtd, employeeNiPaidYtd, employerNiPaidYtd decimal.Decimal,
	proRataFactor *decimal.Decimal,
) (NiCalculationResult, error) {
	rates, ok := c.directorRates.Get(category)
	if !ok {
		return NiCalculationResult{}, &generic.OperationError{
			Op:     "ni calculate directors",
			Reason: fmt.Sprintf("no director rates for category %s", category),
		}
	}

	switch method {
	case DirectorsStandard:
	case DirectorsAlternative:
		if !c.isFinalPeriod {
			return c.calculatePeriod(category, rates, earningsInPeriod, true)
		}
	default:
		return NiCalculationResult{}, &generic.ArgumentError{Arg: "directors_method", Reason: fmt.Sprintf("unknown method %q", method)}
	}

	annual := c.annual
	if proRataFactor != nil {
		if !proRataFactor.IsPositive() || proRataFactor.GreaterThan(decimal.NewFromInt(1)) {
			return NiCalculationResult{}, &generic.ArgumentError{
				Arg:    "pro_rata_factor",
				Reason: fmt.Sprintf("must be in (0, 1], got %s", proRataFactor),
			}
		}
		annual = annual.ProRated(*proRataFactor)
	}

	ladder, err := annual.annualLadder(category)
	if err != nil {
		return NiCalculationResult{}, err
	}

	result := NiCalculationResult{
		Category:   category,
		NicablePay: earningsInPeriod,
		Rates:      rates,
		Thresholds: ladder,
		IsDirector: true,
	}

	total := earningsYtd.Add(earningsInPeriod)
	toDate := splitToDate(total, ladder)
	before := splitToDate(earningsYtd, ladder)

	employeeDue := decimal.Zero
	employerDue := decimal.Zero
	if total.GreaterThanOrEqual(ladder.LEL) {
		employeeDue = employeeContribution(toDate, rates)
		employerDue = employerContribution(toDate, rates)
	}
	employeeDue = employeeDue.Sub(employeeNiPaidYtd)
	employerDue = employerDue.Sub(employerNiPaidYtd)

	if total.LessThan(ladder.LEL) && employeeDue.IsZero() && employerDue.IsZero() {
		return noRecordingRequired(result), nil
	}

	result.Outcome = OutcomeContributions
	result.Breakdown = toDate.Sub(before)
	result.EmployeeContribution = employeeDue
	result.EmployerContribution = employerDue
	return result, nil
}

// splitToDate is splitEarnings for cumulative director figures. Earnings
// below the LEL are held in AtLEL so that the difference between two dates
// always sums to the pay between them.
func splitToDate(earnings decimal.Decimal, th NiThresholdsUsed) NiEarningsBreakdown {
	b, below := splitEarnings(earnings, th)
	if below {
		b.AtLEL = generic.MaxZero(earnings)
	}
	return b
}

// =============================================================================
// CLASS 1A
// =============================================================================

// Class1A is the employer's Class 1A charge on benefits in kind.
func (c *Calculator) Class1A(benefitsInKind decimal.Decimal) decimal.Decimal {
	return NiRound(generic.MaxZero(benefitsInKind).Mul(c.rates.Class1ARate()))
}
