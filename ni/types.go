/*
Package ni implements Class 1 National Insurance for a single pay period.

PURPOSE:
  Splits nicable pay into threshold bands, applies the category's employee
  and employer rates with HMRC's NI rounding, and keeps the per-category
  year-to-date history that director calculations and RTI reporting rely on.

KEY CONCEPTS:
  - NiCategory: the letter that selects rates and the upper secondary threshold
  - NiThresholdType: LEL, PT, ST, FUST, UST, AUST, VUST, UEL, DPT, IZUST
  - NiThresholdSet: annual values for a tax year, validated against the
    thresholds that year is expected to have
  - NiPeriodThresholdSet: annual values prorated to a pay period
  - Calculator: the 8-step banded algorithm plus the directors' annual path
  - NiYtdHistory: immutable, merge-by-category ledger of results

CALCULATION FLOW:
  Start -> pay < LEL        -> no recording required (terminal, not an error)
        -> pay >= LEL       -> walk thresholds -> employee/employer -> result

  The calculator holds no state between calls. Year-to-date state lives in
  the caller's figures and in NiYtdHistory.

SEE ALSO:
  - thresholds.go: threshold sets and period rounding
  - calculator.go: the banded algorithm
  - history.go: year-to-date ledger
*/
package ni

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// NI CATEGORY
// =============================================================================

type NiCategory string

const (
	CategoryA NiCategory = "A" // standard
	CategoryB NiCategory = "B" // married women and widows, reduced rate
	CategoryC NiCategory = "C" // over state pension age
	CategoryH NiCategory = "H" // apprentice under 25
	CategoryJ NiCategory = "J" // deferment
	CategoryM NiCategory = "M" // under 21
	CategoryV NiCategory = "V" // veteran, first civilian employment
	CategoryX NiCategory = "X" // no NI liability
	CategoryZ NiCategory = "Z" // under 21, deferment

	// Freeports
	CategoryF NiCategory = "F"
	CategoryI NiCategory = "I"
	CategoryL NiCategory = "L"
	CategoryS NiCategory = "S"

	// Investment zones
	CategoryN NiCategory = "N"
	CategoryE NiCategory = "E"
	CategoryD NiCategory = "D"
	CategoryK NiCategory = "K"
)

var allCategories = []NiCategory{
	CategoryA, CategoryB, CategoryC, CategoryD, CategoryE, CategoryF, CategoryH,
	CategoryI, CategoryJ, CategoryK, CategoryL, CategoryM, CategoryN, CategoryS,
	CategoryV, CategoryX, CategoryZ,
}

// ParseNiCategory accepts a single category letter.
func ParseNiCategory(s string) (NiCategory, error) {
	c := NiCategory(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range allCategories {
		if c == known {
			return c, nil
		}
	}
	return "", &generic.ArgumentError{Arg: "ni_category", Reason: fmt.Sprintf("unknown NI category %q", s)}
}

// UpperSecondaryThreshold is the threshold up to which the category's reduced
// employer rate applies. Categories without a reduced employer band use FUST;
// their employer rate is the same either side of it.
func (c NiCategory) UpperSecondaryThreshold() NiThresholdType {
	switch c {
	case CategoryM, CategoryZ:
		return UST
	case CategoryH:
		return AUST
	case CategoryV:
		return VUST
	case CategoryN, CategoryE, CategoryD, CategoryK:
		return IZUST
	default:
		return FUST
	}
}

// =============================================================================
// THRESHOLD TYPES
// =============================================================================

type NiThresholdType string

const (
	LEL   NiThresholdType = "LEL"   // Lower Earnings Limit
	PT    NiThresholdType = "PT"    // Primary Threshold
	ST    NiThresholdType = "ST"    // Secondary Threshold
	FUST  NiThresholdType = "FUST"  // Freeport Upper Secondary Threshold
	UST   NiThresholdType = "UST"   // Upper Secondary Threshold (under 21)
	AUST  NiThresholdType = "AUST"  // Apprentice Upper Secondary Threshold
	VUST  NiThresholdType = "VUST"  // Veterans Upper Secondary Threshold
	UEL   NiThresholdType = "UEL"   // Upper Earnings Limit
	DPT   NiThresholdType = "DPT"   // Directors' Primary Threshold
	IZUST NiThresholdType = "IZUST" // Investment Zone Upper Secondary Threshold
)

// ExpectedThresholds is the exact set of thresholds a tax year publishes.
// Freeports arrived in 2022/23, which also had a directors' PT because the
// PT changed mid-year; investment zones arrived in 2024/25.
func ExpectedThresholds(year generic.TaxYear) []NiThresholdType {
	set := []NiThresholdType{LEL, PT, ST, UST, AUST, VUST, UEL}
	if year >= 2022 {
		set = append(set, FUST)
	}
	if year == 2022 {
		set = append(set, DPT)
	}
	if year >= 2024 {
		set = append(set, IZUST)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// =============================================================================
// DIRECTORS
// =============================================================================

// DirectorsMethod is how a company director's NI is assessed.
type DirectorsMethod string

const (
	// DirectorsStandard assesses on annual earnings every period.
	DirectorsStandard DirectorsMethod = "standard"

	// DirectorsAlternative assesses per period like other employees and
	// reconciles on an annual basis in the final period.
	DirectorsAlternative DirectorsMethod = "alternative"
)

func ParseDirectorsMethod(s string) (DirectorsMethod, error) {
	switch DirectorsMethod(strings.ToLower(strings.TrimSpace(s))) {
	case DirectorsStandard, "annual", "annualised":
		return DirectorsStandard, nil
	case DirectorsAlternative:
		return DirectorsAlternative, nil
	}
	return "", &generic.ArgumentError{Arg: "directors_method", Reason: fmt.Sprintf("unknown directors method %q", s)}
}
