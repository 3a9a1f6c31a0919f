package ni

import "github.com/shopspring/decimal"

// Outcome tells the two kinds of NI result apart. Callers switch on it rather
// than inspecting contribution amounts.
type Outcome int

const (
	// OutcomeContributions means pay reached the LEL and the breakdown and
	// contributions are reportable, even when the contributions are zero.
	OutcomeContributions Outcome = iota

	// OutcomeNoRecordingRequired means pay was below the LEL. Nothing is
	// reported for the period.
	OutcomeNoRecordingRequired
)

func (o Outcome) String() string {
	if o == OutcomeNoRecordingRequired {
		return "no_recording_required"
	}
	return "contributions"
}

// NiCalculationResult is one period's NI for one category.
type NiCalculationResult struct {
	Outcome  Outcome
	Category NiCategory

	// NicablePay is the pay for this period, also for directors.
	NicablePay decimal.Decimal

	Rates      NiCategoryRatesEntry
	Thresholds NiThresholdsUsed
	Breakdown  NiEarningsBreakdown

	EmployeeContribution decimal.Decimal
	EmployerContribution decimal.Decimal

	// Class1A is nil when no benefits were assessed, as opposed to zero.
	Class1A *decimal.Decimal

	IsDirector bool
}

// NoRecordingRequired is true when pay was below the LEL.
func (r NiCalculationResult) NoRecordingRequired() bool {
	return r.Outcome == OutcomeNoRecordingRequired
}

func (r NiCalculationResult) TotalContribution() decimal.Decimal {
	return r.EmployeeContribution.Add(r.EmployerContribution)
}

// WithClass1A returns a copy of the result carrying a Class 1A amount.
func (r NiCalculationResult) WithClass1A(amount decimal.Decimal) NiCalculationResult {
	r.Class1A = &amount
	return r
}
