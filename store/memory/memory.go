// Package memory provides an in-memory payrun.Store for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/payrun"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	snapshots   map[key]payrun.Snapshot
	records     map[key][]payrun.Record
	idempotency map[string]bool
}

type key struct {
	EmployeeID generic.EmployeeID
	TaxYear    generic.TaxYear
}

func New() *Memory {
	return &Memory{
		snapshots:   make(map[key]payrun.Snapshot),
		records:     make(map[key][]payrun.Record),
		idempotency: make(map[string]bool),
	}
}

var _ payrun.Store = (*Memory)(nil)

func (m *Memory) Load(_ context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) (payrun.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[key{EmployeeID: employeeID, TaxYear: taxYear}]
	return snap, ok, nil
}

// Save commits the snapshot and record together. Snapshots are immutable
// values, so storing them by value is enough.
func (m *Memory) Save(_ context.Context, snap payrun.Snapshot, rec payrun.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.IdempotencyKey != "" && m.idempotency[rec.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}

	k := key{EmployeeID: snap.EmployeeID, TaxYear: snap.TaxYear}
	current := m.snapshots[k].Version
	if snap.Version != current+1 {
		return fmt.Errorf("%w: %s %s at version %d, got %d",
			generic.ErrConcurrentModification, snap.EmployeeID, snap.TaxYear, current, snap.Version)
	}

	m.snapshots[k] = snap
	m.records[k] = append(m.records[k], rec)
	if rec.IdempotencyKey != "" {
		m.idempotency[rec.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Payruns(_ context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) ([]payrun.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.records[key{EmployeeID: employeeID, TaxYear: taxYear}]
	result := make([]payrun.Record, len(recs))
	copy(result, recs)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PayDate.Date.Before(result[j].PayDate.Date)
	})
	return result, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = make(map[key]payrun.Snapshot)
	m.records = make(map[key][]payrun.Record)
	m.idempotency = make(map[string]bool)
	return nil
}
