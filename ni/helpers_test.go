package ni_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var zero = decimal.Zero

func th(t ni.NiThresholdType, v int64) ni.NiThresholdEntry {
	return ni.NiThresholdEntry{Type: t, Value: generic.Pounds(v)}
}

func thresholds2024() []ni.NiThresholdEntry {
	return []ni.NiThresholdEntry{
		th(ni.LEL, 6396), th(ni.PT, 12570), th(ni.ST, 9100), th(ni.FUST, 25000),
		th(ni.UST, 50270), th(ni.AUST, 50270), th(ni.VUST, 50270), th(ni.UEL, 50270),
		th(ni.IZUST, 25000),
	}
}

// 2025/26 moved the ST below the LEL.
func thresholds2025() []ni.NiThresholdEntry {
	return []ni.NiThresholdEntry{
		th(ni.LEL, 6500), th(ni.PT, 12570), th(ni.ST, 5000), th(ni.FUST, 25000),
		th(ni.UST, 50270), th(ni.AUST, 50270), th(ni.VUST, 50270), th(ni.UEL, 50270),
		th(ni.IZUST, 25000),
	}
}

func categoryA(employerRate string) ni.NiCategoryRatesEntry {
	er := generic.Rate(employerRate)
	return ni.NiCategoryRatesEntry{
		Category:              ni.CategoryA,
		EmployeeRateToPT:      zero,
		EmployeeRatePTToUEL:   generic.Rate("8"),
		EmployeeRateAboveUEL:  generic.Rate("2"),
		EmployerRateLELToST:   zero,
		EmployerRateSTToFUST:  er,
		EmployerRateFUSTToUEL: er,
		EmployerRateAboveUEL:  er,
	}
}

// Under 21: no employer NI up to the UST.
func categoryM(employerRate string) ni.NiCategoryRatesEntry {
	er := generic.Rate(employerRate)
	return ni.NiCategoryRatesEntry{
		Category:              ni.CategoryM,
		EmployeeRateToPT:      zero,
		EmployeeRatePTToUEL:   generic.Rate("8"),
		EmployeeRateAboveUEL:  generic.Rate("2"),
		EmployerRateLELToST:   zero,
		EmployerRateSTToFUST:  zero,
		EmployerRateFUSTToUEL: er,
		EmployerRateAboveUEL:  er,
	}
}

type calcOptions struct {
	year          generic.TaxYear
	thresholds    []ni.NiThresholdEntry
	employerRate  string
	frequency     generic.PayFrequency
	isFinalPeriod bool
}

func newCalculator(t *testing.T, o calcOptions) *ni.Calculator {
	t.Helper()
	if o.year == 0 {
		o.year = 2024
	}
	if o.thresholds == nil {
		o.thresholds = thresholds2024()
	}
	if o.employerRate == "" {
		o.employerRate = "13.8"
	}
	if o.frequency == "" {
		o.frequency = generic.Monthly
	}

	annual, err := ni.NewNiThresholdSet(o.year, o.thresholds)
	require.NoError(t, err)
	period, err := annual.ForPeriod(o.frequency, 1)
	require.NoError(t, err)

	rates, err := ni.NewNiRatesTable([]ni.NiCategoryRatesEntry{categoryA(o.employerRate), categoryM(o.employerRate)}, generic.Rate(o.employerRate))
	require.NoError(t, err)
	directorRates, err := ni.NewNiRatesTable([]ni.NiCategoryRatesEntry{categoryA(o.employerRate)}, generic.Rate(o.employerRate))
	require.NoError(t, err)

	return ni.NewCalculator(annual, period, rates, directorRates, o.isFinalPeriod)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, generic.Money(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}
