package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/store/sqlite"
	"github.com/warp/paye-engine/tax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func money(s string) decimal.Decimal {
	return generic.Money(s)
}

// niResult is a recorded category A month with the given contributions.
func niResult(pay, ee, er string, class1A *decimal.Decimal) ni.NiCalculationResult {
	return ni.NiCalculationResult{
		Outcome:              ni.OutcomeContributions,
		Category:             ni.CategoryA,
		NicablePay:           money(pay),
		Breakdown:            ni.NiEarningsBreakdown{AtLEL: money("533"), LELToST: money("225"), STToPT: money("290"), PTToFUST: money(pay).Sub(money("1048")), FUSTToUEL: money("0"), AboveUEL: money("0")},
		EmployeeContribution: money(ee),
		EmployerContribution: money(er),
		Class1A:              class1A,
	}
}

func taxResult(due, unpaid string) tax.TaxCalculationResult {
	return tax.TaxCalculationResult{FinalTaxDue: money(due), TaxUnpaidDueToRegulatoryLimit: money(unpaid)}
}

func commit(t *testing.T, s *sqlite.Store, prev payrun.Snapshot, month time.Month, key string, n ni.NiCalculationResult) payrun.Snapshot {
	t.Helper()
	at := time.Date(2024, month, 25, 9, 0, 0, 0, time.UTC)
	next := prev.Next(money("3000"), taxResult("390.40", "0"), n, at)
	rec := payrun.Record{
		ID:             uuid.New(),
		IdempotencyKey: key,
		EmployeeID:     prev.EmployeeID,
		PayDate:        generic.MustPayDate(generic.NewDate(2024, month, 25), generic.Monthly),
		TaxCode:        "1257L",
		TaxablePay:     money("3000"),
		TaxDue:         money("390.40"),
		NiCategory:     n.Category,
		NicablePay:     n.NicablePay,
		EmployeeNi:     n.EmployeeContribution,
		EmployerNi:     n.EmployerContribution,
		Class1A:        n.Class1A,
		CreatedAt:      at,
	}
	require.NoError(t, s.Save(context.Background(), next, rec))
	return next
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestStore_LoadMissing(t *testing.T) {
	s := newStore(t)

	_, found, err := s.Load(context.Background(), "emp-1", 2024)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_RoundTripsSnapshot(t *testing.T) {
	// GIVEN: Two committed months, the second with Class 1A
	// WHEN: Loading the snapshot back
	// THEN: Every figure survives exactly, including the NI history

	s := newStore(t)
	ctx := context.Background()

	snap := payrun.NewSnapshot("emp-1", 2024)
	snap = commit(t, s, snap, time.April, "k1", niResult("3000", "156.16", "309.40", nil))
	c1a := money("138")
	snap = commit(t, s, snap, time.May, "k2", niResult("3000", "156.16", "309.40", &c1a))

	got, found, err := s.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 2, got.Version)
	assert.True(t, money("6000").Equal(got.TaxableSalaryYtd))
	assert.True(t, money("780.80").Equal(got.TaxPaidYtd))
	assert.True(t, got.TaxUnpaidDueToRegulatoryLimit.IsZero())

	require.Equal(t, 1, got.NiHistory.Len())
	entry, ok := got.NiHistory.Entry(ni.CategoryA)
	require.True(t, ok)
	assert.True(t, money("6000").Equal(entry.GrossNicableEarnings))
	assert.True(t, money("312.32").Equal(entry.EmployeeContribution))
	assert.True(t, money("618.80").Equal(entry.EmployerContribution))
	assert.True(t, money("1066").Equal(entry.Breakdown.AtLEL))
	assert.True(t, money("6000").Equal(entry.Breakdown.Total()))
	require.NotNil(t, entry.Class1A)
	assert.True(t, c1a.Equal(*entry.Class1A))
}

func TestStore_NullClass1AStaysNil(t *testing.T) {
	s := newStore(t)

	commit(t, s, payrun.NewSnapshot("emp-1", 2024), time.April, "k1", niResult("3000", "156.16", "309.40", nil))

	got, _, err := s.Load(context.Background(), "emp-1", 2024)
	require.NoError(t, err)
	assert.Nil(t, got.NiHistory.Class1A())

	recs, err := s.Payruns(context.Background(), "emp-1", 2024)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Class1A)
}

func TestStore_HistoryKeepsCategoryOrder(t *testing.T) {
	s := newStore(t)

	m := niResult("1000", "0", "0", nil)
	m.Category = ni.CategoryM

	snap := payrun.NewSnapshot("emp-1", 2024)
	snap = commit(t, s, snap, time.April, "k1", m)
	commit(t, s, snap, time.May, "k2", niResult("3000", "156.16", "309.40", nil))

	got, _, err := s.Load(context.Background(), "emp-1", 2024)
	require.NoError(t, err)
	entries := got.NiHistory.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ni.CategoryM, entries[0].Category)
	assert.Equal(t, ni.CategoryA, entries[1].Category)
}

// =============================================================================
// COMMIT CONTRACT
// =============================================================================

func TestStore_VersionConflict(t *testing.T) {
	// GIVEN: A snapshot committed at version 1
	// WHEN: A stale writer commits its own version 1
	// THEN: It is rejected and neither the snapshot nor the payrun is written

	s := newStore(t)
	ctx := context.Background()

	start := payrun.NewSnapshot("emp-1", 2024)
	commit(t, s, start, time.April, "k1", niResult("3000", "156.16", "309.40", nil))

	stale := start.Next(money("9999"), taxResult("1", "0"), niResult("9999", "1", "1", nil), time.Now())
	err := s.Save(ctx, stale, payrun.Record{
		ID:         uuid.New(),
		EmployeeID: "emp-1",
		PayDate:    generic.MustPayDate(generic.NewDate(2024, time.May, 25), generic.Monthly),
		NiCategory: ni.CategoryA,
		CreatedAt:  time.Now(),
	})
	require.ErrorIs(t, err, generic.ErrConcurrentModification)
	assert.True(t, generic.IsConflict(err))

	got, _, err := s.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.True(t, money("3000").Equal(got.TaxableSalaryYtd))

	recs, err := s.Payruns(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_DuplicateIdempotencyKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := commit(t, s, payrun.NewSnapshot("emp-1", 2024), time.April, "k1", niResult("3000", "156.16", "309.40", nil))

	next := snap.Next(money("3000"), taxResult("390.60", "0"), niResult("3000", "156.16", "309.40", nil), time.Now())
	err := s.Save(ctx, next, payrun.Record{
		ID:             uuid.New(),
		IdempotencyKey: "k1",
		EmployeeID:     "emp-1",
		PayDate:        generic.MustPayDate(generic.NewDate(2024, time.May, 25), generic.Monthly),
		CreatedAt:      time.Now(),
	})
	require.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	got, _, err := s.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

// =============================================================================
// PAYRUNS
// =============================================================================

func TestStore_PayrunsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := payrun.NewSnapshot("emp-1", 2024)
	snap = commit(t, s, snap, time.May, "k1", niResult("3000", "156.16", "309.40", nil))
	commit(t, s, snap, time.April, "k2", niResult("3000", "156.16", "309.40", nil))

	recs, err := s.Payruns(ctx, "emp-1", 2024)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Ordered by pay date, not commit order
	assert.Equal(t, "k2", recs[0].IdempotencyKey)
	assert.Equal(t, 1, recs[0].PayDate.TaxPeriod)
	assert.Equal(t, generic.TaxYear(2024), recs[0].PayDate.TaxYear)
	assert.Equal(t, generic.Monthly, recs[0].PayDate.Frequency)
	assert.Equal(t, "1257L", recs[0].TaxCode)
	assert.Equal(t, ni.CategoryA, recs[0].NiCategory)
	assert.True(t, money("390.40").Equal(recs[0].TaxDue))
	assert.True(t, money("156.16").Equal(recs[0].EmployeeNi))
	assert.NotEqual(t, uuid.Nil, recs[0].ID)

	other, err := s.Payruns(ctx, "emp-2", 2024)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	commit(t, s, payrun.NewSnapshot("emp-1", 2024), time.April, "k1", niResult("3000", "156.16", "309.40", nil))
	require.NoError(t, s.Reset(ctx))

	_, found, err := s.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.False(t, found)
}
