package ni

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// HISTORY ENTRY
// =============================================================================

// EmployeeNiHistoryEntry is the year-to-date NI for one category. Values are
// immutable; Add returns a new entry.
type EmployeeNiHistoryEntry struct {
	Category             NiCategory
	GrossNicableEarnings decimal.Decimal
	Breakdown            NiEarningsBreakdown
	EmployeeContribution decimal.Decimal
	EmployerContribution decimal.Decimal

	// Class1A is nil until a Class 1A amount has been recorded.
	Class1A *decimal.Decimal
}

// NewEmployeeNiHistoryEntry seeds an entry from a single result.
func NewEmployeeNiHistoryEntry(result NiCalculationResult) EmployeeNiHistoryEntry {
	return EmployeeNiHistoryEntry{
		Category:             result.Category,
		GrossNicableEarnings: result.NicablePay,
		Breakdown:            result.Breakdown,
		EmployeeContribution: result.EmployeeContribution,
		EmployerContribution: result.EmployerContribution,
		Class1A:              copyAmount(result.Class1A),
	}
}

// Add merges a result for the same category field by field.
func (e EmployeeNiHistoryEntry) Add(result NiCalculationResult) EmployeeNiHistoryEntry {
	return EmployeeNiHistoryEntry{
		Category:             e.Category,
		GrossNicableEarnings: e.GrossNicableEarnings.Add(result.NicablePay),
		Breakdown:            e.Breakdown.Add(result.Breakdown),
		EmployeeContribution: e.EmployeeContribution.Add(result.EmployeeContribution),
		EmployerContribution: e.EmployerContribution.Add(result.EmployerContribution),
		Class1A:              addAmounts(e.Class1A, result.Class1A),
	}
}

func (e EmployeeNiHistoryEntry) TotalContribution() decimal.Decimal {
	return e.EmployeeContribution.Add(e.EmployerContribution)
}

// addAmounts sums optional amounts: nil plus nil stays nil, otherwise nil
// counts as zero.
func addAmounts(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil && b == nil {
		return nil
	}
	sum := decimal.Zero
	if a != nil {
		sum = sum.Add(*a)
	}
	if b != nil {
		sum = sum.Add(*b)
	}
	return &sum
}

func copyAmount(a *decimal.Decimal) *decimal.Decimal {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

// =============================================================================
// YEAR-TO-DATE HISTORY
// =============================================================================

// NiYtdHistory is an employee's NI for the tax year so far, one entry per
// category in the order categories were first used. The zero value is an
// empty history. Add is the only way to change it and returns a new value,
// so a history can be shared while the next one is computed.
type NiYtdHistory struct {
	entries []EmployeeNiHistoryEntry
}

// NiYtdTotals is the employee and employer contribution paid to date.
type NiYtdTotals struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

func (t NiYtdTotals) Total() decimal.Decimal { return t.Employee.Add(t.Employer) }

// RestoreNiYtdHistory rebuilds a history from persisted entries.
func RestoreNiYtdHistory(entries []EmployeeNiHistoryEntry) (NiYtdHistory, error) {
	seen := make(map[NiCategory]bool, len(entries))
	out := make([]EmployeeNiHistoryEntry, 0, len(entries))
	for _, e := range entries {
		if seen[e.Category] {
			return NiYtdHistory{}, &generic.ArgumentError{
				Arg:    "ni_history",
				Reason: fmt.Sprintf("more than one entry for category %s", e.Category),
			}
		}
		seen[e.Category] = true
		e.Class1A = copyAmount(e.Class1A)
		out = append(out, e)
	}
	return NiYtdHistory{entries: out}, nil
}

// Add returns a new history with result merged into its category's entry,
// or appended as a new entry when the category has not been seen this year.
func (h NiYtdHistory) Add(result NiCalculationResult) NiYtdHistory {
	next := make([]EmployeeNiHistoryEntry, len(h.entries), len(h.entries)+1)
	copy(next, h.entries)

	for i, e := range next {
		if e.Category == result.Category {
			next[i] = e.Add(result)
			return NiYtdHistory{entries: next}
		}
	}
	return NiYtdHistory{entries: append(next, NewEmployeeNiHistoryEntry(result))}
}

// Entries returns a copy of the entries in first-use order.
func (h NiYtdHistory) Entries() []EmployeeNiHistoryEntry {
	out := make([]EmployeeNiHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h NiYtdHistory) Entry(category NiCategory) (EmployeeNiHistoryEntry, bool) {
	for _, e := range h.entries {
		if e.Category == category {
			return e, true
		}
	}
	return EmployeeNiHistoryEntry{}, false
}

func (h NiYtdHistory) Len() int { return len(h.entries) }

// GetNiYtdTotals sums contributions across every category.
func (h NiYtdHistory) GetNiYtdTotals() NiYtdTotals {
	totals := NiYtdTotals{Employee: decimal.Zero, Employer: decimal.Zero}
	for _, e := range h.entries {
		totals.Employee = totals.Employee.Add(e.EmployeeContribution)
		totals.Employer = totals.Employer.Add(e.EmployerContribution)
	}
	return totals
}

// TotalNicableEarnings is gross nicable pay to date across every category.
// Director calculations use it as earnings to date.
func (h NiYtdHistory) TotalNicableEarnings() decimal.Decimal {
	total := decimal.Zero
	for _, e := range h.entries {
		total = total.Add(e.GrossNicableEarnings)
	}
	return total
}

// Class1A sums Class 1A across categories, nil when none was ever recorded.
func (h NiYtdHistory) Class1A() *decimal.Decimal {
	var total *decimal.Decimal
	for _, e := range h.entries {
		total = addAmounts(total, e.Class1A)
	}
	return total
}
