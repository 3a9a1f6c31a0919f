package factory

import (
	"fmt"

	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"go.uber.org/zap"
)

// =============================================================================
// NI CALCULATOR FACTORY
// =============================================================================

// NiReferenceDataProvider supplies the NI reference data in force on a pay
// date.
type NiReferenceDataProvider interface {
	NiThresholds(payDate generic.PayDate) (ni.NiThresholdSet, error)
	NiRates(payDate generic.PayDate) (ni.NiRatesTable, error)
	NiDirectorsRates(payDate generic.PayDate) (ni.NiRatesTable, error)
}

type NiCalculatorFactory struct {
	provider NiReferenceDataProvider
	logger   *zap.Logger
}

func NewNiCalculatorFactory(provider NiReferenceDataProvider, logger ...*zap.Logger) *NiCalculatorFactory {
	l := zap.L().Named("factory.ni")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("factory.ni")
	}
	return &NiCalculatorFactory{provider: provider, logger: l}
}

type niOptions struct {
	periodSpan  int
	extraPeriod bool
}

// NiOption adjusts how the period is interpreted.
type NiOption func(*niOptions)

// WithPeriodSpan sets how many periods one payment covers, e.g. two months
// paid together. Thresholds are multiplied by the span.
func WithPeriodSpan(n int) NiOption {
	return func(o *niOptions) { o.periodSpan = n }
}

// WithExtraPeriod marks the payment as the week 53 (or 54/56) payment even
// when its date falls in a regular period. It is treated as the final
// period of the year.
func WithExtraPeriod(extra bool) NiOption {
	return func(o *niOptions) { o.extraPeriod = extra }
}

// GetCalculator returns a calculator bound to payDate's thresholds and rates.
func (f *NiCalculatorFactory) GetCalculator(payDate generic.PayDate, opts ...NiOption) (*ni.Calculator, error) {
	o := niOptions{periodSpan: 1}
	for _, opt := range opts {
		opt(&o)
	}

	annual, err := f.provider.NiThresholds(payDate)
	if err != nil {
		f.logError("ni thresholds unavailable", payDate, err)
		return nil, asReferenceDataError("ni thresholds", err)
	}
	if annual.TaxYear() != payDate.TaxYear {
		return nil, generic.ReferenceDataErrorf("ni thresholds", "provider returned %s for pay date in %s", annual.TaxYear(), payDate.TaxYear)
	}

	rates, err := f.provider.NiRates(payDate)
	if err != nil {
		f.logError("ni rates unavailable", payDate, err)
		return nil, asReferenceDataError("ni rates", err)
	}

	directorRates, err := f.provider.NiDirectorsRates(payDate)
	if err != nil {
		f.logError("ni director rates unavailable", payDate, err)
		return nil, asReferenceDataError("ni director rates", err)
	}

	period, err := annual.ForPeriod(payDate.Frequency, o.periodSpan)
	if err != nil {
		return nil, fmt.Errorf("ni thresholds for %s: %w", payDate, err)
	}

	isFinal := payDate.IsFinalPeriod() || o.extraPeriod

	f.logger.Debug("ni calculator built",
		zap.Stringer("pay_date", payDate),
		zap.Int("period_span", o.periodSpan),
		zap.Bool("final_period", isFinal),
	)
	return ni.NewCalculator(annual, period, rates, directorRates, isFinal), nil
}

func (f *NiCalculatorFactory) logError(msg string, payDate generic.PayDate, err error) {
	f.logger.Error(msg, zap.Stringer("pay_date", payDate), zap.Error(err))
}
