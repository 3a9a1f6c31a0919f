package refdata

import (
	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/tax"
)

// =============================================================================
// INCOME TAX BANDS
// =============================================================================

func band(rate string, upper int64) tax.TaxBandDefinition {
	return tax.TaxBandDefinition{Rate: generic.Rate(rate), UpperBound: generic.Pounds(upper)}
}

func top(rate string) tax.TaxBandDefinition {
	return tax.TaxBandDefinition{Rate: generic.Rate(rate), IsTopBand: true}
}

// rUK bands have been frozen since 2021/22. Wales uses the same rates.
func rukBands() tax.TaxBandwidthSet {
	return tax.MustTaxBandwidthSet([]tax.TaxBandDefinition{
		band("20", 37700),
		band("40", 125140),
		top("45"),
	}, 0)
}

func scottishBands2024() tax.TaxBandwidthSet {
	return tax.MustTaxBandwidthSet([]tax.TaxBandDefinition{
		band("19", 2306),
		band("20", 13991),
		band("21", 31092),
		band("42", 62430),
		band("45", 125140),
		top("48"),
	}, 1)
}

func scottishBands2025() tax.TaxBandwidthSet {
	return tax.MustTaxBandwidthSet([]tax.TaxBandDefinition{
		band("19", 2827),
		band("20", 14921),
		band("21", 31092),
		band("42", 62430),
		band("45", 125140),
		top("48"),
	}, 1)
}

// =============================================================================
// NI THRESHOLDS
// =============================================================================

func threshold(t ni.NiThresholdType, v int64) ni.NiThresholdEntry {
	return ni.NiThresholdEntry{Type: t, Value: generic.Pounds(v)}
}

func niThresholds2024() ni.NiThresholdSet {
	return ni.MustNiThresholdSet(2024, []ni.NiThresholdEntry{
		threshold(ni.LEL, 6396),
		threshold(ni.PT, 12570),
		threshold(ni.ST, 9100),
		threshold(ni.FUST, 25000),
		threshold(ni.UST, 50270),
		threshold(ni.AUST, 50270),
		threshold(ni.VUST, 50270),
		threshold(ni.UEL, 50270),
		threshold(ni.IZUST, 25000),
	})
}

func niThresholds2025() ni.NiThresholdSet {
	return ni.MustNiThresholdSet(2025, []ni.NiThresholdEntry{
		threshold(ni.LEL, 6500),
		threshold(ni.PT, 12570),
		threshold(ni.ST, 5000),
		threshold(ni.FUST, 25000),
		threshold(ni.UST, 50270),
		threshold(ni.AUST, 50270),
		threshold(ni.VUST, 50270),
		threshold(ni.UEL, 50270),
		threshold(ni.IZUST, 25000),
	})
}

// =============================================================================
// NI RATES
// =============================================================================

// employeeRates are the employee side of a category: main rate from PT to
// UEL and the additional rate above it.
type employeeRates struct {
	main, additional string
}

var (
	eeStandard    = employeeRates{"8", "2"}
	eeReduced     = employeeRates{"1.85", "2"} // married women's reduced rate
	eeDeferred    = employeeRates{"2", "2"}
	eeExempt      = employeeRates{"0", "0"} // over state pension age
	eeNoLiability = employeeRates{"0", "0"}
)

// employerRelief says whether the employer pays nothing between the ST and
// the category's upper secondary threshold.
type employerRelief bool

const (
	fullEmployerRate  employerRelief = false
	reliefToUpperBand employerRelief = true
)

func category(c ni.NiCategory, ee employeeRates, relief employerRelief, employerRate string) ni.NiCategoryRatesEntry {
	er := generic.Rate(employerRate)
	belowUpper := er
	if relief {
		belowUpper = decimal.Zero
	}
	return ni.NiCategoryRatesEntry{
		Category:              c,
		EmployeeRateToPT:      decimal.Zero,
		EmployeeRatePTToUEL:   generic.Rate(ee.main),
		EmployeeRateAboveUEL:  generic.Rate(ee.additional),
		EmployerRateLELToST:   decimal.Zero,
		EmployerRateSTToFUST:  belowUpper,
		EmployerRateFUSTToUEL: er,
		EmployerRateAboveUEL:  er,
	}
}

// categoryRates lists every category at the given employer rate. Employee
// rates were unchanged between 2024/25 and 2025/26.
func categoryRates(employerRate string) []ni.NiCategoryRatesEntry {
	return []ni.NiCategoryRatesEntry{
		category(ni.CategoryA, eeStandard, fullEmployerRate, employerRate),
		category(ni.CategoryB, eeReduced, fullEmployerRate, employerRate),
		category(ni.CategoryC, eeExempt, fullEmployerRate, employerRate),
		category(ni.CategoryJ, eeDeferred, fullEmployerRate, employerRate),
		category(ni.CategoryH, eeStandard, reliefToUpperBand, employerRate),
		category(ni.CategoryM, eeStandard, reliefToUpperBand, employerRate),
		category(ni.CategoryZ, eeDeferred, reliefToUpperBand, employerRate),
		category(ni.CategoryV, eeStandard, reliefToUpperBand, employerRate),
		category(ni.CategoryX, eeNoLiability, fullEmployerRate, "0"),

		// Freeports
		category(ni.CategoryF, eeStandard, reliefToUpperBand, employerRate),
		category(ni.CategoryI, eeReduced, reliefToUpperBand, employerRate),
		category(ni.CategoryL, eeDeferred, reliefToUpperBand, employerRate),
		category(ni.CategoryS, eeExempt, reliefToUpperBand, employerRate),

		// Investment zones
		category(ni.CategoryN, eeStandard, reliefToUpperBand, employerRate),
		category(ni.CategoryE, eeReduced, reliefToUpperBand, employerRate),
		category(ni.CategoryD, eeDeferred, reliefToUpperBand, employerRate),
		category(ni.CategoryK, eeExempt, reliefToUpperBand, employerRate),
	}
}
