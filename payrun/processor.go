/*
Package payrun runs one employee's PAYE deductions for one pay period.

PURPOSE:
  Ties the pure calculators to persisted year-to-date state:

    load snapshot -> build calculators for the pay date -> income tax
      -> NI (director path when flagged) -> optional Class 1A
      -> next snapshot + record -> commit

  Failures are never recovered here. A reference data or input error aborts
  the employee's payrun and nothing is written.

CONCURRENCY:
  Load-compute-save is serialised per employee inside one Processor. Across
  processes the store's version check catches the race instead.

SEE ALSO:
  - store.go: Snapshot, Record and the Store contract
  - factory/: calculator construction
*/
package payrun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/factory"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/metrics"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/tax"
	"go.uber.org/zap"
)

// =============================================================================
// INPUT / RESULT
// =============================================================================

// Input is one employee's figures for one pay period. The pay totals are
// already summed from line items by the caller.
type Input struct {
	EmployeeID     generic.EmployeeID
	IdempotencyKey string

	PaymentDate time.Time
	Frequency   generic.PayFrequency
	PeriodSpan  int  // periods covered by this payment, default 1
	ExtraPeriod bool // week 53/54/56 payment

	TaxCode        tax.TaxCode
	TaxablePay     decimal.Decimal
	BenefitsInKind decimal.Decimal // payrolled benefits included in TaxablePay

	NiCategory ni.NiCategory
	NicablePay decimal.Decimal
	Director   *Director

	// Class1ABenefits, when set, is charged to Class 1A NI this period.
	Class1ABenefits *decimal.Decimal
}

// Director marks the employee as a company director.
type Director struct {
	Method        ni.DirectorsMethod
	ProRataFactor *decimal.Decimal
}

type Result struct {
	Record   Record
	Tax      tax.TaxCalculationResult
	Ni       ni.NiCalculationResult
	Snapshot Snapshot
}

// =============================================================================
// PROCESSOR
// =============================================================================

type Processor struct {
	store      Store
	taxFactory *factory.TaxCalculatorFactory
	niFactory  *factory.NiCalculatorFactory
	locks      *employeeLocks
	logger     *zap.Logger
	now        func() time.Time
}

func NewProcessor(store Store, taxFactory *factory.TaxCalculatorFactory, niFactory *factory.NiCalculatorFactory, logger ...*zap.Logger) *Processor {
	l := zap.L().Named("payrun")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payrun")
	}
	return &Processor{
		store:      store,
		taxFactory: taxFactory,
		niFactory:  niFactory,
		locks:      newEmployeeLocks(),
		logger:     l,
		now:        time.Now,
	}
}

// Run calculates the period and commits the result.
func (p *Processor) Run(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	defer func() { metrics.PayrunDuration.Observe(time.Since(start).Seconds()) }()

	unlock, err := p.locks.lock(ctx, in.EmployeeID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	result, err := p.calculate(ctx, in)
	if err != nil {
		metrics.PayrunsTotal.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	l := p.logger.With(
		zap.String("employee_id", string(in.EmployeeID)),
		zap.String("payrun_id", result.Record.ID.String()),
	)

	if err := p.store.Save(ctx, result.Snapshot, result.Record); err != nil {
		if generic.IsConflict(err) {
			metrics.PayrunsTotal.WithLabelValues("conflict").Inc()
			l.Warn("payrun not committed", zap.Error(err))
		} else {
			metrics.PayrunsTotal.WithLabelValues("failed").Inc()
			l.Error("failed to commit payrun", zap.Error(err))
		}
		return Result{}, fmt.Errorf("commit payrun for %s: %w", in.EmployeeID, err)
	}

	metrics.PayrunsTotal.WithLabelValues("committed").Inc()
	l.Info("payrun committed",
		zap.Stringer("pay_date", result.Record.PayDate),
		zap.String("tax_due", result.Tax.FinalTaxDue.StringFixed(2)),
		zap.String("employee_ni", result.Ni.EmployeeContribution.StringFixed(2)),
		zap.String("employer_ni", result.Ni.EmployerContribution.StringFixed(2)),
	)
	return result, nil
}

// Preview calculates the period against the stored snapshot without
// committing anything.
func (p *Processor) Preview(ctx context.Context, in Input) (Result, error) {
	result, err := p.calculate(ctx, in)
	if err != nil {
		return Result{}, err
	}
	metrics.PayrunsTotal.WithLabelValues("preview").Inc()
	return result, nil
}

// Snapshot returns the stored year-to-date position, or an empty one when
// the employee has not been paid in the tax year.
func (p *Processor) Snapshot(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) (Snapshot, error) {
	snap, found, err := p.store.Load(ctx, employeeID, taxYear)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot for %s: %w", employeeID, err)
	}
	if !found {
		return NewSnapshot(employeeID, taxYear), nil
	}
	return snap, nil
}

// Payruns lists committed payruns for the tax year.
func (p *Processor) Payruns(ctx context.Context, employeeID generic.EmployeeID, taxYear generic.TaxYear) ([]Record, error) {
	return p.store.Payruns(ctx, employeeID, taxYear)
}

// Reset wipes every snapshot and payrun. It fails with ErrInvalidOperation
// when the store cannot be reset.
func (p *Processor) Reset(ctx context.Context) error {
	r, ok := p.store.(Resetter)
	if !ok {
		return &generic.OperationError{Op: "reset", Reason: "store does not support reset"}
	}
	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	p.logger.Warn("store reset")
	return nil
}

// =============================================================================
// CALCULATION
// =============================================================================

func (p *Processor) calculate(ctx context.Context, in Input) (Result, error) {
	if in.EmployeeID == "" {
		return Result{}, &generic.ArgumentError{Arg: "employee_id", Reason: "required"}
	}

	payDate, err := generic.NewPayDate(in.PaymentDate, in.Frequency)
	if err != nil {
		return Result{}, err
	}

	snap, err := p.Snapshot(ctx, in.EmployeeID, payDate.TaxYear)
	if err != nil {
		return Result{}, err
	}

	taxResult, err := p.calculateTax(in, payDate, snap)
	if err != nil {
		return Result{}, err
	}

	niResult, err := p.calculateNi(in, payDate, snap)
	if err != nil {
		return Result{}, err
	}

	now := p.now()
	record := Record{
		ID:                  uuid.New(),
		IdempotencyKey:      in.IdempotencyKey,
		EmployeeID:          in.EmployeeID,
		PayDate:             payDate,
		TaxCode:             in.TaxCode.String(),
		TaxablePay:          in.TaxablePay,
		TaxDue:              taxResult.FinalTaxDue,
		NiCategory:          niResult.Category,
		NicablePay:          in.NicablePay,
		EmployeeNi:          niResult.EmployeeContribution,
		EmployerNi:          niResult.EmployerContribution,
		Class1A:             niResult.Class1A,
		NoRecordingRequired: niResult.NoRecordingRequired(),
		CreatedAt:           now,
	}

	return Result{
		Record:   record,
		Tax:      taxResult,
		Ni:       niResult,
		Snapshot: snap.Next(in.TaxablePay, taxResult, niResult, now),
	}, nil
}

func (p *Processor) calculateTax(in Input, payDate generic.PayDate, snap Snapshot) (tax.TaxCalculationResult, error) {
	calc, err := p.taxFactory.GetCalculator(in.TaxCode.Regime, payDate)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("tax", metrics.OutcomeError).Inc()
		return tax.TaxCalculationResult{}, err
	}

	bik := in.BenefitsInKind
	result, err := calc.Calculate(in.TaxablePay, bik, in.TaxCode,
		snap.TaxableSalaryYtd, snap.TaxPaidYtd, snap.TaxUnpaidDueToRegulatoryLimit)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("tax", metrics.OutcomeError).Inc()
		return tax.TaxCalculationResult{}, err
	}
	metrics.CalculationsTotal.WithLabelValues("tax", metrics.OutcomeOK).Inc()
	return result, nil
}

func (p *Processor) calculateNi(in Input, payDate generic.PayDate, snap Snapshot) (ni.NiCalculationResult, error) {
	var opts []factory.NiOption
	if in.PeriodSpan > 0 {
		opts = append(opts, factory.WithPeriodSpan(in.PeriodSpan))
	}
	if in.ExtraPeriod {
		opts = append(opts, factory.WithExtraPeriod(true))
	}

	kind := "ni"
	if in.Director != nil {
		kind = "ni_director"
	}

	calc, err := p.niFactory.GetCalculator(payDate, opts...)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return ni.NiCalculationResult{}, err
	}

	var result ni.NiCalculationResult
	if in.Director != nil {
		paid := snap.NiHistory.GetNiYtdTotals()
		result, err = calc.CalculateDirectors(in.Director.Method, in.NiCategory, in.NicablePay,
			snap.NiHistory.TotalNicableEarnings(), paid.Employee, paid.Employer, in.Director.ProRataFactor)
	} else {
		result, err = calc.Calculate(in.NiCategory, in.NicablePay)
	}
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return ni.NiCalculationResult{}, err
	}

	if in.Class1ABenefits != nil {
		result = result.WithClass1A(calc.Class1A(*in.Class1ABenefits))
	}

	outcome := metrics.OutcomeOK
	if result.NoRecordingRequired() {
		outcome = metrics.OutcomeNoRecordingRequired
	}
	metrics.CalculationsTotal.WithLabelValues(kind, outcome).Inc()
	return result, nil
}
