/*
Package sqlite provides a SQLite-backed payrun.Store.

PURPOSE:
  Persists each employee's year-to-date position and the audit trail of
  committed payruns. The same schema works on PostgreSQL with minor dialect
  changes.

KEY TABLES:
  snapshots:  One row per employee per tax year, versioned
  ni_history: Year-to-date NI per category, rewritten with its snapshot
  payruns:    Append-only record of every committed payrun

MONEY:
  Amounts are stored as TEXT in decimal notation and scanned straight back
  into decimal.Decimal. Nothing is ever held as REAL.

COMMIT:
  Save runs in one database transaction:
  1. Reject a known idempotency key
  2. Check the stored version is exactly one behind
  3. Upsert the snapshot and replace its NI history
  4. Append the payrun

  Any failure rolls back all four.

WAL MODE:
  Opened with WAL so readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/paye.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  processor := payrun.NewProcessor(store, taxFactory, niFactory)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payrun/store.go: Store contract
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/payrun"
)

// Store implements payrun.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ payrun.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection and SQLite
	// has a single writer anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Year-to-date position (one row per employee per tax year)
	CREATE TABLE IF NOT EXISTS snapshots (
		employee_id TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		version INTEGER NOT NULL,
		taxable_salary_ytd TEXT NOT NULL,
		tax_paid_ytd TEXT NOT NULL,
		tax_unpaid_regulatory_limit TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, tax_year)
	);

	-- NI year to date by category, in first-use order
	CREATE TABLE IF NOT EXISTS ni_history (
		employee_id TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		position INTEGER NOT NULL,
		category TEXT NOT NULL,
		gross_nicable_earnings TEXT NOT NULL,
		at_lel TEXT NOT NULL,
		lel_to_st TEXT NOT NULL,
		st_to_pt TEXT NOT NULL,
		pt_to_fust TEXT NOT NULL,
		fust_to_uel TEXT NOT NULL,
		above_uel TEXT NOT NULL,
		employee_contribution TEXT NOT NULL,
		employer_contribution TEXT NOT NULL,
		class_1a TEXT,
		PRIMARY KEY (employee_id, tax_year, category),
		FOREIGN KEY (employee_id, tax_year)
			REFERENCES snapshots(employee_id, tax_year) ON DELETE CASCADE
	);

	-- Payruns (append-only)
	CREATE TABLE IF NOT EXISTS payruns (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT UNIQUE,
		employee_id TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		tax_period INTEGER NOT NULL,
		frequency TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		tax_code TEXT NOT NULL,
		taxable_pay TEXT NOT NULL,
		tax_due TEXT NOT NULL,
		ni_category TEXT NOT NULL,
		nicable_pay TEXT NOT NULL,
		employee_ni TEXT NOT NULL,
		employer_ni TEXT NOT NULL,
		class_1a TEXT,
		no_recording_required BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payruns_employee_year
		ON payruns(employee_id, tax_year, pay_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) Load(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) (payrun.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := payrun.Snapshot{EmployeeID: employeeID, TaxYear: taxYear}
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT version, taxable_salary_ytd, tax_paid_ytd, tax_unpaid_regulatory_limit, updated_at
		 FROM snapshots WHERE employee_id = ? AND tax_year = ?`,
		employeeID, taxYear,
	).Scan(&snap.Version, &snap.TaxableSalaryYtd, &snap.TaxPaidYtd, &snap.TaxUnpaidDueToRegulatoryLimit, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return payrun.Snapshot{}, false, nil
	}
	if err != nil {
		return payrun.Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	history, err := s.loadHistory(ctx, employeeID, taxYear)
	if err != nil {
		return payrun.Snapshot{}, false, err
	}
	snap.NiHistory = history

	return snap, true, nil
}

func (s *Store) loadHistory(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) (ni.NiYtdHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, gross_nicable_earnings,
		        at_lel, lel_to_st, st_to_pt, pt_to_fust, fust_to_uel, above_uel,
		        employee_contribution, employer_contribution, class_1a
		 FROM ni_history WHERE employee_id = ? AND tax_year = ?
		 ORDER BY position ASC`,
		employeeID, taxYear,
	)
	if err != nil {
		return ni.NiYtdHistory{}, fmt.Errorf("failed to query ni history: %w", err)
	}
	defer rows.Close()

	var entries []ni.EmployeeNiHistoryEntry
	for rows.Next() {
		var (
			e        ni.EmployeeNiHistoryEntry
			category string
			class1A  decimal.NullDecimal
		)
		b := &e.Breakdown
		if err := rows.Scan(&category, &e.GrossNicableEarnings,
			&b.AtLEL, &b.LELToST, &b.STToPT, &b.PTToFUST, &b.FUSTToUEL, &b.AboveUEL,
			&e.EmployeeContribution, &e.EmployerContribution, &class1A,
		); err != nil {
			return ni.NiYtdHistory{}, fmt.Errorf("failed to scan ni history: %w", err)
		}
		e.Category = ni.NiCategory(category)
		e.Class1A = fromNullDecimal(class1A)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return ni.NiYtdHistory{}, err
	}

	return ni.RestoreNiYtdHistory(entries)
}

// =============================================================================
// SAVE
// =============================================================================

// Save commits the snapshot, its NI history and the payrun atomically.
func (s *Store) Save(ctx context.Context, snap payrun.Snapshot, rec payrun.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if rec.IdempotencyKey != "" {
		var count int
		if err := sqlTx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM payruns WHERE idempotency_key = ?", rec.IdempotencyKey,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if count > 0 {
			return generic.ErrDuplicateIdempotencyKey
		}
	}

	var current int
	err = sqlTx.QueryRowContext(ctx,
		"SELECT version FROM snapshots WHERE employee_id = ? AND tax_year = ?",
		snap.EmployeeID, snap.TaxYear,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read snapshot version: %w", err)
	}
	if snap.Version != current+1 {
		return fmt.Errorf("%w: %s %s at version %d, got %d",
			generic.ErrConcurrentModification, snap.EmployeeID, snap.TaxYear, current, snap.Version)
	}

	if err := saveSnapshot(ctx, sqlTx, snap); err != nil {
		return err
	}
	if err := appendPayrun(ctx, sqlTx, rec); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func saveSnapshot(ctx context.Context, tx *sql.Tx, snap payrun.Snapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(employee_id, tax_year, version, taxable_salary_ytd, tax_paid_ytd, tax_unpaid_regulatory_limit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, tax_year) DO UPDATE SET
			version = excluded.version,
			taxable_salary_ytd = excluded.taxable_salary_ytd,
			tax_paid_ytd = excluded.tax_paid_ytd,
			tax_unpaid_regulatory_limit = excluded.tax_unpaid_regulatory_limit,
			updated_at = excluded.updated_at
	`,
		snap.EmployeeID, snap.TaxYear, snap.Version,
		snap.TaxableSalaryYtd, snap.TaxPaidYtd, snap.TaxUnpaidDueToRegulatoryLimit,
		snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ni_history WHERE employee_id = ? AND tax_year = ?",
		snap.EmployeeID, snap.TaxYear,
	); err != nil {
		return fmt.Errorf("failed to clear ni history: %w", err)
	}

	for i, e := range snap.NiHistory.Entries() {
		b := e.Breakdown
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ni_history
			(employee_id, tax_year, position, category, gross_nicable_earnings,
			 at_lel, lel_to_st, st_to_pt, pt_to_fust, fust_to_uel, above_uel,
			 employee_contribution, employer_contribution, class_1a)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.EmployeeID, snap.TaxYear, i, string(e.Category), e.GrossNicableEarnings,
			b.AtLEL, b.LELToST, b.STToPT, b.PTToFUST, b.FUSTToUEL, b.AboveUEL,
			e.EmployeeContribution, e.EmployerContribution, toNullDecimal(e.Class1A),
		)
		if err != nil {
			return fmt.Errorf("failed to save ni history: %w", err)
		}
	}
	return nil
}

func appendPayrun(ctx context.Context, tx *sql.Tx, rec payrun.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payruns
		(id, idempotency_key, employee_id, tax_year, tax_period, frequency, pay_date,
		 tax_code, taxable_pay, tax_due,
		 ni_category, nicable_pay, employee_ni, employer_ni, class_1a, no_recording_required,
		 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID.String(), nullString(rec.IdempotencyKey), rec.EmployeeID,
		rec.PayDate.TaxYear, rec.PayDate.TaxPeriod, string(rec.PayDate.Frequency),
		rec.PayDate.Date.Format(time.DateOnly),
		rec.TaxCode, rec.TaxablePay, rec.TaxDue,
		string(rec.NiCategory), rec.NicablePay, rec.EmployeeNi, rec.EmployerNi,
		toNullDecimal(rec.Class1A), rec.NoRecordingRequired,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append payrun: %w", err)
	}
	return nil
}

// =============================================================================
// PAYRUNS
// =============================================================================

func (s *Store) Payruns(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) ([]payrun.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idempotency_key, employee_id, frequency, pay_date,
		       tax_code, taxable_pay, tax_due,
		       ni_category, nicable_pay, employee_ni, employer_ni, class_1a, no_recording_required,
		       created_at
		FROM payruns
		WHERE employee_id = ? AND tax_year = ?
		ORDER BY pay_date ASC, created_at ASC
	`, employeeID, taxYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query payruns: %w", err)
	}
	defer rows.Close()

	var records []payrun.Record
	for rows.Next() {
		rec, err := scanPayrun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanPayrun(rows *sql.Rows) (payrun.Record, error) {
	var (
		rec            payrun.Record
		id             string
		idempotencyKey sql.NullString
		frequency      string
		payDate        string
		category       string
		class1A        decimal.NullDecimal
		createdAt      string
	)

	err := rows.Scan(
		&id, &idempotencyKey, &rec.EmployeeID, &frequency, &payDate,
		&rec.TaxCode, &rec.TaxablePay, &rec.TaxDue,
		&category, &rec.NicablePay, &rec.EmployeeNi, &rec.EmployerNi, &class1A, &rec.NoRecordingRequired,
		&createdAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan payrun: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return rec, fmt.Errorf("payrun %q: %w", id, err)
	}
	date, err := time.Parse(time.DateOnly, payDate)
	if err != nil {
		return rec, fmt.Errorf("payrun %s pay date: %w", id, err)
	}
	if rec.PayDate, err = generic.NewPayDate(date, generic.PayFrequency(frequency)); err != nil {
		return rec, fmt.Errorf("payrun %s: %w", id, err)
	}

	rec.IdempotencyKey = idempotencyKey.String
	rec.NiCategory = ni.NiCategory(category)
	rec.Class1A = fromNullDecimal(class1A)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payruns", "ni_history", "snapshots"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
