/*
Package refdata holds the built-in PAYE reference data.

PURPOSE:
  Bands, NI thresholds and NI rates for the tax years the engine ships with,
  served through the factory provider contracts. The tables are Go values
  built once at start-up and validated by the same constructors the
  calculators rely on, so a typo fails at boot rather than mid-payrun.

YEARS:
  2024/25 and 2025/26. Each year carries rUK, Scottish and Welsh bands, the
  annual NI thresholds, employee and director rate tables for every category
  and the Class 1A rate.

USAGE:
  provider := refdata.New()
  taxFactory := factory.NewTaxCalculatorFactory(provider)
  niFactory := factory.NewNiCalculatorFactory(provider)

SEE ALSO:
  - tables.go: the published figures
  - factory/: provider contracts
*/
package refdata

import (
	"fmt"
	"sort"

	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/tax"
)

// Year is the complete reference data for one tax year.
type Year struct {
	TaxYear          generic.TaxYear
	TaxBands         map[tax.TaxRegime]tax.TaxBandwidthSet
	NiThresholds     ni.NiThresholdSet
	NiRates          ni.NiRatesTable
	NiDirectorsRates ni.NiRatesTable
}

// Provider serves reference data by tax year. It is read-only after
// construction and safe for concurrent use.
type Provider struct {
	years map[generic.TaxYear]Year
}

// New returns a provider with the built-in years.
func New() *Provider {
	p, err := NewProvider(builtInYears()...)
	if err != nil {
		panic(err)
	}
	return p
}

// NewProvider builds a provider from explicit years. Every year must carry
// bands for all three regimes and threshold sets for the same year.
func NewProvider(years ...Year) (*Provider, error) {
	p := &Provider{years: make(map[generic.TaxYear]Year, len(years))}
	for _, y := range years {
		if _, dup := p.years[y.TaxYear]; dup {
			return nil, generic.ReferenceDataErrorf("reference data", "duplicate tax year %s", y.TaxYear)
		}
		for _, regime := range []tax.TaxRegime{tax.RegimeRUK, tax.RegimeScotland, tax.RegimeWales} {
			if _, ok := y.TaxBands[regime]; !ok {
				return nil, generic.ReferenceDataErrorf("tax bands", "%s: no bands for regime %s", y.TaxYear, regime)
			}
		}
		if y.NiThresholds.TaxYear() != y.TaxYear {
			return nil, generic.ReferenceDataErrorf("ni thresholds", "%s: thresholds are for %s", y.TaxYear, y.NiThresholds.TaxYear())
		}
		if y.NiRates.Len() == 0 || y.NiDirectorsRates.Len() == 0 {
			return nil, generic.ReferenceDataErrorf("ni rates", "%s: empty rate table", y.TaxYear)
		}
		p.years[y.TaxYear] = y
	}
	return p, nil
}

func builtInYears() []Year {
	rates2024 := ni.MustNiRatesTable(categoryRates("13.8"), generic.Rate("13.8"))
	rates2025 := ni.MustNiRatesTable(categoryRates("15"), generic.Rate("15"))

	return []Year{
		{
			TaxYear: 2024,
			TaxBands: map[tax.TaxRegime]tax.TaxBandwidthSet{
				tax.RegimeRUK:      rukBands(),
				tax.RegimeScotland: scottishBands2024(),
				tax.RegimeWales:    rukBands(),
			},
			NiThresholds:     niThresholds2024(),
			NiRates:          rates2024,
			NiDirectorsRates: rates2024,
		},
		{
			TaxYear: 2025,
			TaxBands: map[tax.TaxRegime]tax.TaxBandwidthSet{
				tax.RegimeRUK:      rukBands(),
				tax.RegimeScotland: scottishBands2025(),
				tax.RegimeWales:    rukBands(),
			},
			NiThresholds:     niThresholds2025(),
			NiRates:          rates2025,
			NiDirectorsRates: rates2025,
		},
	}
}

// TaxYears lists the years the provider covers, oldest first.
func (p *Provider) TaxYears() []generic.TaxYear {
	out := make([]generic.TaxYear, 0, len(p.years))
	for y := range p.years {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Year returns the reference data for a tax year.
func (p *Provider) Year(taxYear generic.TaxYear) (Year, error) {
	y, ok := p.years[taxYear]
	if !ok {
		return Year{}, generic.ReferenceDataErrorf("reference data", "no reference data for %s", taxYear)
	}
	return y, nil
}

// =============================================================================
// PROVIDER CONTRACTS
// =============================================================================

// TaxBands returns the annual bands by regime. Bands do not change within a
// year, so frequency and period only need to be valid.
func (p *Provider) TaxBands(taxYear generic.TaxYear, frequency generic.PayFrequency, taxPeriod int) (map[tax.TaxRegime]tax.TaxBandwidthSet, error) {
	if !frequency.Valid() {
		return nil, &generic.ArgumentError{Arg: "frequency", Reason: fmt.Sprintf("unknown pay frequency %q", frequency)}
	}
	if taxPeriod < 1 {
		return nil, &generic.ArgumentError{Arg: "tax_period", Reason: fmt.Sprintf("must be at least 1, got %d", taxPeriod)}
	}
	y, err := p.Year(taxYear)
	if err != nil {
		return nil, err
	}

	out := make(map[tax.TaxRegime]tax.TaxBandwidthSet, len(y.TaxBands))
	for regime, set := range y.TaxBands {
		out[regime] = set
	}
	return out, nil
}

func (p *Provider) NiThresholds(payDate generic.PayDate) (ni.NiThresholdSet, error) {
	y, err := p.Year(payDate.TaxYear)
	if err != nil {
		return ni.NiThresholdSet{}, err
	}
	return y.NiThresholds, nil
}

func (p *Provider) NiRates(payDate generic.PayDate) (ni.NiRatesTable, error) {
	y, err := p.Year(payDate.TaxYear)
	if err != nil {
		return ni.NiRatesTable{}, err
	}
	return y.NiRates, nil
}

func (p *Provider) NiDirectorsRates(payDate generic.PayDate) (ni.NiRatesTable, error) {
	y, err := p.Year(payDate.TaxYear)
	if err != nil {
		return ni.NiRatesTable{}, err
	}
	return y.NiDirectorsRates, nil
}
