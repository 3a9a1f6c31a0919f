package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/store/memory"
)

func record(key string, month time.Month) payrun.Record {
	return payrun.Record{
		ID:             uuid.New(),
		IdempotencyKey: key,
		EmployeeID:     "emp-1",
		PayDate:        generic.MustPayDate(generic.NewDate(2024, month, 25), generic.Monthly),
		TaxablePay:     generic.Pounds(1000),
	}
}

func snapshot(version int) payrun.Snapshot {
	s := payrun.NewSnapshot("emp-1", 2024)
	s.Version = version
	s.TaxableSalaryYtd = generic.Pounds(int64(version) * 1000)
	return s
}

func TestMemory_LoadMissing(t *testing.T) {
	m := memory.New()

	_, found, err := m.Load(context.Background(), "emp-1", 2024)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_SaveAndLoad(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.April)))
	require.NoError(t, m.Save(ctx, snapshot(2), record("k2", time.May)))

	got, found, err := m.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Version)
	assert.True(t, generic.Pounds(2000).Equal(got.TaxableSalaryYtd))

	// Other tax years are separate
	_, found, err = m.Load(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_VersionConflict(t *testing.T) {
	// GIVEN: A stored snapshot at version 1
	// WHEN: Saving another version 1 (a stale writer)
	// THEN: The save fails and the record is not appended

	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.April)))

	err := m.Save(ctx, snapshot(1), record("k2", time.May))
	require.ErrorIs(t, err, generic.ErrConcurrentModification)

	recs, err := m.Payruns(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemory_FirstSaveMustBeVersionOne(t *testing.T) {
	m := memory.New()

	err := m.Save(context.Background(), snapshot(3), record("k1", time.April))
	require.ErrorIs(t, err, generic.ErrConcurrentModification)
}

func TestMemory_DuplicateIdempotencyKey(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.April)))

	err := m.Save(ctx, snapshot(2), record("k1", time.May))
	require.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	got, _, err := m.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestMemory_PayrunsOrderedAndCopied(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	// Committed out of pay date order
	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.June)))
	require.NoError(t, m.Save(ctx, snapshot(2), record("k2", time.April)))

	recs, err := m.Payruns(ctx, "emp-1", 2024)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "k2", recs[0].IdempotencyKey)
	assert.Equal(t, "k1", recs[1].IdempotencyKey)

	recs[0].IdempotencyKey = "mutated"
	again, err := m.Payruns(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "k2", again[0].IdempotencyKey)
}

func TestMemory_Reset(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.April)))

	require.NoError(t, m.Reset(ctx))

	_, found, err := m.Load(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.False(t, found)

	// keys are forgotten too
	require.NoError(t, m.Save(ctx, snapshot(1), record("k1", time.April)))
}
