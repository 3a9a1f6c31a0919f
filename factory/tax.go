/*
Package factory builds calculators for a pay date.

PURPOSE:
  The calculators are bound to one tax year, frequency and period. The
  factories resolve the right reference data for a pay date from a provider
  and construct a calculator from it, so callers never pick bands or
  thresholds themselves.

PROVIDER CONTRACTS:
  TaxBandProvider:          TaxYear x PayFrequency x TaxPeriod -> bands by regime
  NiReferenceDataProvider:  PayDate -> thresholds, rates, director rates

  Providers own any fallback they choose to do. The factories never default
  missing data: a provider error or a missing regime is reported as
  invalid reference data.

USAGE:
  taxFactory := factory.NewTaxCalculatorFactory(refdata.New(), logger)
  calc, err := taxFactory.GetCalculator(tax.RegimeScotland, payDate)

  niFactory := factory.NewNiCalculatorFactory(refdata.New(), logger)
  niCalc, err := niFactory.GetCalculator(payDate, factory.WithPeriodSpan(2))

SEE ALSO:
  - refdata/: built-in provider
  - payrun/processor.go: main caller
*/
package factory

import (
	"fmt"

	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/tax"
	"go.uber.org/zap"
)

// =============================================================================
// TAX CALCULATOR FACTORY
// =============================================================================

// TaxBandProvider supplies the annual bandwidth sets in force for a tax
// period, keyed by regime.
type TaxBandProvider interface {
	TaxBands(taxYear generic.TaxYear, frequency generic.PayFrequency, taxPeriod int) (map[tax.TaxRegime]tax.TaxBandwidthSet, error)
}

type TaxCalculatorFactory struct {
	provider TaxBandProvider
	logger   *zap.Logger
}

func NewTaxCalculatorFactory(provider TaxBandProvider, logger ...*zap.Logger) *TaxCalculatorFactory {
	l := zap.L().Named("factory.tax")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("factory.tax")
	}
	return &TaxCalculatorFactory{provider: provider, logger: l}
}

// GetCalculator returns a calculator for regime bound to payDate's tax year,
// frequency and period.
func (f *TaxCalculatorFactory) GetCalculator(regime tax.TaxRegime, payDate generic.PayDate) (*tax.Calculator, error) {
	bands, err := f.provider.TaxBands(payDate.TaxYear, payDate.Frequency, payDate.TaxPeriod)
	if err != nil {
		f.logger.Error("tax bands unavailable",
			zap.Stringer("tax_year", payDate.TaxYear),
			zap.String("frequency", string(payDate.Frequency)),
			zap.Int("tax_period", payDate.TaxPeriod),
			zap.Error(err),
		)
		return nil, asReferenceDataError("tax bands", err)
	}

	set, ok := bands[regime]
	if !ok {
		return nil, generic.ReferenceDataErrorf("tax bands", "no bands for regime %s in %s", regime, payDate.TaxYear)
	}

	calc, err := tax.NewCalculator(payDate.TaxYear, regime, set, payDate.Frequency, payDate.TaxPeriod)
	if err != nil {
		return nil, fmt.Errorf("tax calculator for %s: %w", payDate, err)
	}

	f.logger.Debug("tax calculator built",
		zap.String("regime", string(regime)),
		zap.Stringer("pay_date", payDate),
	)
	return calc, nil
}

// asReferenceDataError keeps provider errors that already carry one of the
// taxonomy sentinels and reports any other failure as invalid reference data.
func asReferenceDataError(what string, err error) error {
	if generic.IsInvalidReferenceData(err) || generic.IsClientError(err) {
		return err
	}
	return &generic.InvalidReferenceDataError{What: what, Reason: err.Error()}
}
