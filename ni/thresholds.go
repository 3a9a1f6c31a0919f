package ni

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// ANNUAL THRESHOLDS
// =============================================================================

type NiThresholdEntry struct {
	Type  NiThresholdType
	Value decimal.Decimal
}

// NiThresholdSet holds the annual thresholds for one tax year (or part of a
// year, when thresholds change mid-year). Immutable after construction.
type NiThresholdSet struct {
	taxYear generic.TaxYear
	values  map[NiThresholdType]decimal.Decimal
}

// NewNiThresholdSet validates entries against ExpectedThresholds(taxYear).
// Missing, unexpected and duplicate thresholds are all rejected.
func NewNiThresholdSet(taxYear generic.TaxYear, entries []NiThresholdEntry) (NiThresholdSet, error) {
	values := make(map[NiThresholdType]decimal.Decimal, len(entries))
	for _, e := range entries {
		if _, dup := values[e.Type]; dup {
			return NiThresholdSet{}, generic.ReferenceDataErrorf("ni thresholds", "%s: duplicate %s", taxYear, e.Type)
		}
		if !e.Value.IsPositive() {
			return NiThresholdSet{}, generic.ReferenceDataErrorf("ni thresholds", "%s: %s must be positive, got %s", taxYear, e.Type, e.Value)
		}
		values[e.Type] = e.Value
	}

	expected := ExpectedThresholds(taxYear)
	var missing, unexpected []string
	for _, t := range expected {
		if _, ok := values[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	for t := range values {
		if !containsType(expected, t) {
			unexpected = append(unexpected, string(t))
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(unexpected)
		return NiThresholdSet{}, generic.ReferenceDataErrorf("ni thresholds",
			"%s: missing [%s] unexpected [%s]", taxYear, strings.Join(missing, " "), strings.Join(unexpected, " "))
	}

	uel := values[UEL]
	for t, v := range values {
		if t != UEL && v.GreaterThan(uel) {
			return NiThresholdSet{}, generic.ReferenceDataErrorf("ni thresholds", "%s: %s %s exceeds UEL %s", taxYear, t, v, uel)
		}
	}

	return NiThresholdSet{taxYear: taxYear, values: values}, nil
}

// MustNiThresholdSet is NewNiThresholdSet for built-in tables.
func MustNiThresholdSet(taxYear generic.TaxYear, entries []NiThresholdEntry) NiThresholdSet {
	s, err := NewNiThresholdSet(taxYear, entries)
	if err != nil {
		panic(err)
	}
	return s
}

func containsType(set []NiThresholdType, t NiThresholdType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func (s NiThresholdSet) TaxYear() generic.TaxYear { return s.taxYear }

// Value returns the annual threshold.
func (s NiThresholdSet) Value(t NiThresholdType) (decimal.Decimal, bool) {
	v, ok := s.values[t]
	return v, ok
}

func (s NiThresholdSet) Has(t NiThresholdType) bool {
	_, ok := s.values[t]
	return ok
}

// Entries returns the thresholds in type order.
func (s NiThresholdSet) Entries() []NiThresholdEntry {
	out := make([]NiThresholdEntry, 0, len(s.values))
	for t, v := range s.values {
		out = append(out, NiThresholdEntry{Type: t, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// ProRated scales every threshold by factor, rounded up to the pound. Used
// for employees who become directors part way through the year.
func (s NiThresholdSet) ProRated(factor decimal.Decimal) NiThresholdSet {
	values := make(map[NiThresholdType]decimal.Decimal, len(s.values))
	for t, v := range s.values {
		values[t] = generic.RoundUpToPound(v.Mul(factor))
	}
	return NiThresholdSet{taxYear: s.taxYear, values: values}
}

// =============================================================================
// PERIOD THRESHOLDS
// =============================================================================

// NiPeriodThresholdEntry carries both period roundings of one threshold.
// Both derive from the annual value divided by the standard period count,
// never from published weekly or monthly figures.
type NiPeriodThresholdEntry struct {
	Type   NiThresholdType
	Annual decimal.Decimal

	// ThresholdForPeriod is rounded to the nearest pound, halves away from zero.
	ThresholdForPeriod decimal.Decimal

	// ThresholdForPeriod1 is rounded to the nearest pound for a single weekly
	// or monthly period and rounded up otherwise.
	ThresholdForPeriod1 decimal.Decimal
}

type NiPeriodThresholdSet struct {
	Frequency  generic.PayFrequency
	PeriodSpan int
	entries    map[NiThresholdType]NiPeriodThresholdEntry
}

// ForPeriod prorates the annual thresholds to periodSpan periods of the
// given frequency.
func (s NiThresholdSet) ForPeriod(frequency generic.PayFrequency, periodSpan int) (NiPeriodThresholdSet, error) {
	count := frequency.StandardPeriodCount()
	if count == 0 {
		return NiPeriodThresholdSet{}, &generic.ArgumentError{Arg: "frequency", Reason: fmt.Sprintf("unknown pay frequency %q", frequency)}
	}
	if periodSpan < 1 {
		return NiPeriodThresholdSet{}, &generic.ArgumentError{Arg: "period_span", Reason: fmt.Sprintf("must be at least 1, got %d", periodSpan)}
	}

	nearestForPeriod1 := periodSpan == 1 && (frequency == generic.Weekly || frequency == generic.Monthly)
	factor := decimal.NewFromInt(int64(periodSpan)).Div(decimal.NewFromInt(int64(count)))

	entries := make(map[NiThresholdType]NiPeriodThresholdEntry, len(s.values))
	for t, annual := range s.values {
		base := annual.Mul(factor)
		p1 := generic.RoundUpToPound(base)
		if nearestForPeriod1 {
			p1 = generic.RoundToPound(base)
		}
		entries[t] = NiPeriodThresholdEntry{
			Type:                t,
			Annual:              annual,
			ThresholdForPeriod:  generic.RoundToPound(base),
			ThresholdForPeriod1: p1,
		}
	}

	return NiPeriodThresholdSet{Frequency: frequency, PeriodSpan: periodSpan, entries: entries}, nil
}

// Entry returns the period figures for a threshold.
func (p NiPeriodThresholdSet) Entry(t NiThresholdType) (NiPeriodThresholdEntry, bool) {
	e, ok := p.entries[t]
	return e, ok
}

func (p NiPeriodThresholdSet) Has(t NiThresholdType) bool {
	_, ok := p.entries[t]
	return ok
}

// =============================================================================
// THRESHOLDS USED BY ONE CALCULATION
// =============================================================================

// NiThresholdsUsed is the five-point ladder the banded algorithm walks,
// retained on the result for audit.
type NiThresholdsUsed struct {
	LEL            decimal.Decimal
	ST             decimal.Decimal
	PT             decimal.Decimal
	UpperSecondary decimal.Decimal
	UEL            decimal.Decimal

	// UpperSecondaryType records which threshold filled the upper secondary
	// slot; UEL when the category's own threshold is not published that year.
	UpperSecondaryType NiThresholdType
}

// periodLadder builds the ladder from the period-1 roundings.
func (p NiPeriodThresholdSet) periodLadder(category NiCategory) (NiThresholdsUsed, error) {
	get := func(t NiThresholdType) (decimal.Decimal, bool) {
		e, ok := p.entries[t]
		return e.ThresholdForPeriod1, ok
	}
	return buildLadder(category, get, false)
}

// annualLadder builds the ladder from annual values, using the directors' PT
// when the year has one.
func (s NiThresholdSet) annualLadder(category NiCategory) (NiThresholdsUsed, error) {
	return buildLadder(category, s.Value, true)
}

func buildLadder(category NiCategory, get func(NiThresholdType) (decimal.Decimal, bool), director bool) (NiThresholdsUsed, error) {
	var used NiThresholdsUsed
	required := []struct {
		t   NiThresholdType
		dst *decimal.Decimal
	}{
		{LEL, &used.LEL}, {ST, &used.ST}, {PT, &used.PT}, {UEL, &used.UEL},
	}
	for _, r := range required {
		v, ok := get(r.t)
		if !ok {
			return NiThresholdsUsed{}, generic.ReferenceDataErrorf("ni thresholds", "no %s threshold", r.t)
		}
		*r.dst = v
	}

	if director {
		if dpt, ok := get(DPT); ok {
			used.PT = dpt
		}
	}

	used.UpperSecondaryType = category.UpperSecondaryThreshold()
	if v, ok := get(used.UpperSecondaryType); ok {
		used.UpperSecondary = v
	} else {
		used.UpperSecondaryType = UEL
		used.UpperSecondary = used.UEL
	}
	return used, nil
}
