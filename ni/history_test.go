package ni_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
)

func TestNiYtdHistory_ZeroValueIsEmpty(t *testing.T) {
	var h ni.NiYtdHistory

	assert.Equal(t, 0, h.Len())
	assertMoney(t, "0", h.GetNiYtdTotals().Total())
	assert.Nil(t, h.Class1A())
}

func TestNiYtdHistory_MergeIsAssociative(t *testing.T) {
	// GIVEN: Two category A results
	// WHEN: Adding them one after the other
	// THEN: Same totals as an entry seeded from their manual sum

	calc := newCalculator(t, calcOptions{})
	r1, err := calc.Calculate(ni.CategoryA, generic.Pounds(3000))
	require.NoError(t, err)
	r2, err := calc.Calculate(ni.CategoryA, generic.Pounds(5000))
	require.NoError(t, err)

	var h ni.NiYtdHistory
	h = h.Add(r1).Add(r2)

	summed := r1
	summed.NicablePay = r1.NicablePay.Add(r2.NicablePay)
	summed.Breakdown = r1.Breakdown.Add(r2.Breakdown)
	summed.EmployeeContribution = r1.EmployeeContribution.Add(r2.EmployeeContribution)
	summed.EmployerContribution = r1.EmployerContribution.Add(r2.EmployerContribution)
	manual := ni.NewEmployeeNiHistoryEntry(summed)

	require.Equal(t, 1, h.Len())
	got, ok := h.Entry(ni.CategoryA)
	require.True(t, ok)

	assertMoney(t, manual.GrossNicableEarnings.String(), got.GrossNicableEarnings)
	assertMoney(t, manual.EmployeeContribution.String(), got.EmployeeContribution)
	assertMoney(t, manual.EmployerContribution.String(), got.EmployerContribution)
	assertMoney(t, manual.Breakdown.Total().String(), got.Breakdown.Total())
	assertMoney(t, manual.Breakdown.AboveUEL.String(), got.Breakdown.AboveUEL)
	assertMoney(t, "8000", h.TotalNicableEarnings())
}

func TestNiYtdHistory_CategoryChangePartitions(t *testing.T) {
	// GIVEN: An employee who moves from M to A mid-year
	// WHEN: Adding one result for each
	// THEN: Two entries in first-use order, totals span both

	calc := newCalculator(t, calcOptions{})
	rm, err := calc.Calculate(ni.CategoryM, generic.Pounds(3000))
	require.NoError(t, err)
	ra, err := calc.Calculate(ni.CategoryA, generic.Pounds(3000))
	require.NoError(t, err)

	h := ni.NiYtdHistory{}.Add(rm).Add(ra)

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ni.CategoryM, entries[0].Category)
	assert.Equal(t, ni.CategoryA, entries[1].Category)

	totals := h.GetNiYtdTotals()
	assertMoney(t, "312.32", totals.Employee)
	assertMoney(t, "309.40", totals.Employer)
	assertMoney(t, entries[0].TotalContribution().Add(entries[1].TotalContribution()).String(), totals.Total())
}

func TestNiYtdHistory_AddDoesNotMutate(t *testing.T) {
	calc := newCalculator(t, calcOptions{})
	r, err := calc.Calculate(ni.CategoryA, generic.Pounds(3000))
	require.NoError(t, err)

	before := ni.NiYtdHistory{}.Add(r)
	after := before.Add(r)

	e, _ := before.Entry(ni.CategoryA)
	assertMoney(t, "3000", e.GrossNicableEarnings)
	e, _ = after.Entry(ni.CategoryA)
	assertMoney(t, "6000", e.GrossNicableEarnings)
}

func TestNiYtdHistory_NoRecordingRequiredStillCountsEarnings(t *testing.T) {
	calc := newCalculator(t, calcOptions{})
	r, err := calc.Calculate(ni.CategoryA, generic.Pounds(200))
	require.NoError(t, err)
	require.True(t, r.NoRecordingRequired())

	h := ni.NiYtdHistory{}.Add(r)

	assertMoney(t, "200", h.TotalNicableEarnings())
	assertMoney(t, "0", h.GetNiYtdTotals().Total())
}

func TestNiYtdHistory_Class1ANullSemantics(t *testing.T) {
	// GIVEN: Results with and without Class 1A
	// WHEN: Merging
	// THEN: nil + nil stays nil, anything else is a number

	calc := newCalculator(t, calcOptions{})
	plain, err := calc.Calculate(ni.CategoryA, generic.Pounds(3000))
	require.NoError(t, err)

	h := ni.NiYtdHistory{}.Add(plain).Add(plain)
	assert.Nil(t, h.Class1A())

	h = h.Add(plain.WithClass1A(zero))
	require.NotNil(t, h.Class1A())
	assertMoney(t, "0", *h.Class1A())

	h = h.Add(plain.WithClass1A(generic.Pounds(138)))
	assertMoney(t, "138", *h.Class1A())
}

func TestRestoreNiYtdHistory_RejectsDuplicateCategories(t *testing.T) {
	e := ni.EmployeeNiHistoryEntry{Category: ni.CategoryA}

	_, err := ni.RestoreNiYtdHistory([]ni.EmployeeNiHistoryEntry{e, e})

	assert.ErrorIs(t, err, generic.ErrInvalidArgument)
}
