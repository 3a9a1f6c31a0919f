/*
store.go - Persistence contract for year-to-date state

PURPOSE:
  The calculators are pure. Everything a period needs from earlier periods
  lives in one Snapshot per employee per tax year: the scalar tax figures
  and the NI history. The Store loads it before a payrun and commits the
  next one afterwards, together with a Record of what the payrun computed.

COMMIT CONTRACT:
  Save writes the snapshot and the record atomically.
  - Version: a snapshot is saved with Version = loaded Version + 1. If the
    stored version moved in between, Save fails with
    ErrConcurrentModification and nothing is written.
  - Idempotency: a record whose IdempotencyKey was already committed fails
    with ErrDuplicateIdempotencyKey. Retries of the same payrun are safe.
  - Records are append-only. There is no update or delete.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: in-memory for tests and dev

SEE ALSO:
  - processor.go: the only writer
*/
package payrun

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/tax"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Load returns the employee's snapshot for the tax year. found is false
	// when no payrun has been committed for that year yet.
	Load(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) (snapshot Snapshot, found bool, err error)

	// Save commits the next snapshot and the record that produced it.
	Save(ctx context.Context, snapshot Snapshot, record Record) error

	// Payruns returns the committed records for the tax year, oldest first.
	Payruns(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) ([]Record, error)
}

// Resetter is implemented by stores that can be wiped for demo scenarios.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an employee's year-to-date position after the last payrun.
type Snapshot struct {
	EmployeeID generic.EmployeeID
	TaxYear    generic.TaxYear
	Version    int

	TaxableSalaryYtd              decimal.Decimal
	TaxPaidYtd                    decimal.Decimal
	TaxUnpaidDueToRegulatoryLimit decimal.Decimal

	NiHistory ni.NiYtdHistory

	UpdatedAt time.Time
}

// NewSnapshot is the position at the start of a tax year.
func NewSnapshot(employeeID generic.EmployeeID, taxYear generic.TaxYear) Snapshot {
	return Snapshot{
		EmployeeID:                    employeeID,
		TaxYear:                       taxYear,
		TaxableSalaryYtd:              decimal.Zero,
		TaxPaidYtd:                    decimal.Zero,
		TaxUnpaidDueToRegulatoryLimit: decimal.Zero,
	}
}

// Next folds one period's results into the snapshot.
func (s Snapshot) Next(taxablePay decimal.Decimal, taxResult tax.TaxCalculationResult, niResult ni.NiCalculationResult, at time.Time) Snapshot {
	return Snapshot{
		EmployeeID:                    s.EmployeeID,
		TaxYear:                       s.TaxYear,
		Version:                       s.Version + 1,
		TaxableSalaryYtd:              s.TaxableSalaryYtd.Add(taxablePay),
		TaxPaidYtd:                    s.TaxPaidYtd.Add(taxResult.FinalTaxDue),
		TaxUnpaidDueToRegulatoryLimit: taxResult.TaxUnpaidDueToRegulatoryLimit,
		NiHistory:                     s.NiHistory.Add(niResult),
		UpdatedAt:                     at,
	}
}

// =============================================================================
// RECORD
// =============================================================================

// Record is the audit line for one committed payrun.
type Record struct {
	ID             uuid.UUID
	IdempotencyKey string
	EmployeeID     generic.EmployeeID
	PayDate        generic.PayDate

	TaxCode    string
	TaxablePay decimal.Decimal
	TaxDue     decimal.Decimal

	NiCategory          ni.NiCategory
	NicablePay          decimal.Decimal
	EmployeeNi          decimal.Decimal
	EmployerNi          decimal.Decimal
	Class1A             *decimal.Decimal
	NoRecordingRequired bool

	CreatedAt time.Time
}
