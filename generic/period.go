package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TAX YEAR - 6 April to 5 April
// =============================================================================

// TaxYear identifies a UK tax year by the calendar year it starts in.
// TaxYear(2025) runs from 6 April 2025 to 5 April 2026.
type TaxYear int

// TaxYearFor returns the tax year that contains the given date.
func TaxYearFor(date time.Time) TaxYear {
	year := date.Year()
	if date.Before(NewDate(year, time.April, 6)) {
		year--
	}
	return TaxYear(year)
}

// Start returns 6 April of the tax year.
func (ty TaxYear) Start() time.Time { return NewDate(int(ty), time.April, 6) }

// End returns 5 April of the following calendar year.
func (ty TaxYear) End() time.Time { return NewDate(int(ty)+1, time.April, 5) }

// Contains returns true if the date falls inside [Start, End].
func (ty TaxYear) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(ty.Start()) && !d.After(ty.End())
}

// String returns the conventional "2025/26" label.
func (ty TaxYear) String() string {
	return fmt.Sprintf("%d/%02d", int(ty), (int(ty)+1)%100)
}

// ParseTaxYear accepts "2025", "2025/26" or "2025-26".
func ParseTaxYear(s string) (TaxYear, error) {
	bad := &ArgumentError{Arg: "tax_year", Reason: fmt.Sprintf("expected YYYY or YYYY/YY, got %q", s)}

	start, suffix, hasSuffix := s, "", false
	if i := strings.IndexAny(s, "/-"); i >= 0 {
		start, suffix, hasSuffix = s[:i], s[i+1:], true
	}
	year, err := strconv.Atoi(start)
	if err != nil || len(start) != 4 {
		return 0, bad
	}
	if hasSuffix && suffix != fmt.Sprintf("%02d", (year+1)%100) {
		return 0, bad
	}
	return TaxYear(year), nil
}

// NewDate returns midnight UTC on the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// PAY FREQUENCY
// =============================================================================

type PayFrequency string

const (
	Weekly     PayFrequency = "weekly"
	TwoWeekly  PayFrequency = "two_weekly"
	FourWeekly PayFrequency = "four_weekly"
	Monthly    PayFrequency = "monthly"
	Quarterly  PayFrequency = "quarterly"
	BiAnnually PayFrequency = "bi_annually"
	Annually   PayFrequency = "annually"
)

// StandardPeriodCount is the number of regular pay periods in a tax year.
// Week 53 (and its two- and four-weekly equivalents) is not counted.
func (f PayFrequency) StandardPeriodCount() int {
	switch f {
	case Weekly:
		return 52
	case TwoWeekly:
		return 26
	case FourWeekly:
		return 13
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case BiAnnually:
		return 2
	case Annually:
		return 1
	default:
		return 0
	}
}

// IsWeekBased is true for frequencies that can produce an extra period.
func (f PayFrequency) IsWeekBased() bool {
	return f == Weekly || f == TwoWeekly || f == FourWeekly
}

// Valid reports whether f is one of the known frequencies.
func (f PayFrequency) Valid() bool { return f.StandardPeriodCount() > 0 }

// ParsePayFrequency converts a wire value into a PayFrequency.
func ParsePayFrequency(s string) (PayFrequency, error) {
	f := PayFrequency(s)
	if !f.Valid() {
		return "", &ArgumentError{Arg: "pay_frequency", Reason: fmt.Sprintf("unknown pay frequency %q", s)}
	}
	return f, nil
}

// =============================================================================
// PAY DATE - a date paired with the frequency it was paid on
// =============================================================================

// PayDate pins a payment to its tax year and tax period.
//
// Examples:
//   - 2025-04-25 monthly  -> 2025/26 period 1
//   - 2025-05-06 monthly  -> 2025/26 period 2
//   - 2026-04-05 weekly   -> 2025/26 period 53
type PayDate struct {
	Date      time.Time
	Frequency PayFrequency
	TaxYear   TaxYear
	TaxPeriod int
}

// NewPayDate derives the tax year and tax period for a payment.
func NewPayDate(date time.Time, frequency PayFrequency) (PayDate, error) {
	if !frequency.Valid() {
		return PayDate{}, &ArgumentError{Arg: "frequency", Reason: fmt.Sprintf("unknown pay frequency %q", frequency)}
	}

	date = truncateDay(date)
	ty := TaxYearFor(date)

	return PayDate{
		Date:      date,
		Frequency: frequency,
		TaxYear:   ty,
		TaxPeriod: taxPeriodFor(date, ty, frequency),
	}, nil
}

// MustPayDate is NewPayDate for known-good literals.
func MustPayDate(date time.Time, frequency PayFrequency) PayDate {
	pd, err := NewPayDate(date, frequency)
	if err != nil {
		panic(err)
	}
	return pd
}

// IsExtraPeriod is true for week 53 and its two- and four-weekly equivalents.
func (pd PayDate) IsExtraPeriod() bool {
	return pd.TaxPeriod > pd.Frequency.StandardPeriodCount()
}

// IsFinalPeriod is true for the last regular period of the tax year, or any
// extra period that follows it.
func (pd PayDate) IsFinalPeriod() bool {
	return pd.TaxPeriod >= pd.Frequency.StandardPeriodCount()
}

func (pd PayDate) String() string {
	return fmt.Sprintf("%s %s period %d (%s)", pd.TaxYear, pd.Frequency, pd.TaxPeriod, pd.Date.Format("2006-01-02"))
}

func taxPeriodFor(date time.Time, ty TaxYear, frequency PayFrequency) int {
	start := ty.Start()
	days := int(date.Sub(start).Hours() / 24)

	switch frequency {
	case Weekly:
		return days/7 + 1
	case TwoWeekly:
		return days/14 + 1
	case FourWeekly:
		return days/28 + 1
	}

	// Month-based: tax month 1 runs 6 April to 5 May.
	months := (date.Year()-start.Year())*12 + int(date.Month()) - int(time.April)
	if date.Day() < 6 {
		months--
	}
	month := months + 1

	switch frequency {
	case Quarterly:
		return (month-1)/3 + 1
	case BiAnnually:
		return (month-1)/6 + 1
	case Annually:
		return 1
	default:
		return month
	}
}
