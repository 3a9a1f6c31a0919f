package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// ANNUAL BANDWIDTHS
// =============================================================================

// TaxBandDefinition is one band as published: the rate and the annual upper
// bound of taxable pay after allowances. The top band has no upper bound.
type TaxBandDefinition struct {
	Rate       decimal.Decimal
	UpperBound decimal.Decimal
	IsTopBand  bool
}

// TaxBandwidthEntry is a band with its cumulative figures precomputed from
// the band immediately below.
type TaxBandwidthEntry struct {
	Index     int
	Rate      decimal.Decimal
	IsTopBand bool

	// EndOfBand is the cumulative annual bandwidth at the top of this band.
	// Zero for the top band, which is unbounded.
	EndOfBand decimal.Decimal

	// Bandwidth is EndOfBand minus the EndOfBand of the band below.
	Bandwidth decimal.Decimal

	// TaxAtEndOfBand is the cumulative annual tax for pay filling this band.
	TaxAtEndOfBand decimal.Decimal

	below *TaxBandwidthEntry
}

// Below returns the band immediately below, or nil for the first band.
func (e *TaxBandwidthEntry) Below() *TaxBandwidthEntry { return e.below }

// TaxBandwidthSet is the ordered, validated set of bands for one regime and
// tax year. It is immutable after construction.
type TaxBandwidthSet struct {
	bands          []*TaxBandwidthEntry
	basicRateIndex int
}

// NewTaxBandwidthSet validates and links the bands.
//
// INVARIANTS:
//   - bands are contiguous and upper bounds strictly increase
//   - exactly one band is the top band, and it is the last
//   - basicRateIndex addresses a band (BR codes tax at its rate)
func NewTaxBandwidthSet(defs []TaxBandDefinition, basicRateIndex int) (TaxBandwidthSet, error) {
	if len(defs) == 0 {
		return TaxBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "no bands supplied")
	}
	if basicRateIndex < 0 || basicRateIndex >= len(defs) {
		return TaxBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "basic rate index %d out of range", basicRateIndex)
	}

	bands := make([]*TaxBandwidthEntry, len(defs))
	var below *TaxBandwidthEntry

	for i, def := range defs {
		last := i == len(defs)-1
		if def.IsTopBand != last {
			return TaxBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "band %d: exactly the last band must be the top band", i)
		}
		if def.Rate.IsNegative() {
			return TaxBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "band %d: negative rate", i)
		}

		entry := &TaxBandwidthEntry{
			Index:     i,
			Rate:      def.Rate,
			IsTopBand: def.IsTopBand,
			below:     below,
		}

		if !def.IsTopBand {
			start := decimal.Zero
			taxBelow := decimal.Zero
			if below != nil {
				start = below.EndOfBand
				taxBelow = below.TaxAtEndOfBand
			}
			if !def.UpperBound.GreaterThan(start) {
				return TaxBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "band %d: upper bound %s does not exceed %s", i, def.UpperBound, start)
			}
			entry.EndOfBand = def.UpperBound
			entry.Bandwidth = def.UpperBound.Sub(start)
			entry.TaxAtEndOfBand = taxBelow.Add(entry.Bandwidth.Mul(def.Rate))
		} else if below != nil {
			entry.TaxAtEndOfBand = below.TaxAtEndOfBand
		}

		bands[i] = entry
		below = entry
	}

	return TaxBandwidthSet{bands: bands, basicRateIndex: basicRateIndex}, nil
}

// MustTaxBandwidthSet is NewTaxBandwidthSet for built-in tables.
func MustTaxBandwidthSet(defs []TaxBandDefinition, basicRateIndex int) TaxBandwidthSet {
	s, err := NewTaxBandwidthSet(defs, basicRateIndex)
	if err != nil {
		panic(err)
	}
	return s
}

// Bands returns the entries in index order.
func (s TaxBandwidthSet) Bands() []*TaxBandwidthEntry {
	out := make([]*TaxBandwidthEntry, len(s.bands))
	copy(out, s.bands)
	return out
}

func (s TaxBandwidthSet) Len() int { return len(s.bands) }

// BasicRateIndex is the index of the band BR codes are taxed at.
func (s TaxBandwidthSet) BasicRateIndex() int { return s.basicRateIndex }

// FixedCodeBand returns the band a fixed code (BR, D0, D1, D2) taxes at.
// NT is not a banded treatment and has no band.
func (s TaxBandwidthSet) FixedCodeBand(treatment TaxTreatment) (*TaxBandwidthEntry, error) {
	offset, ok := fixedRateOffset[treatment]
	if !ok {
		return nil, &generic.ArgumentError{Arg: "tax_code", Reason: fmt.Sprintf("%s is not a fixed-rate code", treatment)}
	}
	idx := s.basicRateIndex + offset
	if idx >= len(s.bands) {
		return nil, &generic.ArgumentError{Arg: "tax_code", Reason: fmt.Sprintf("%s needs band %d but only %d bands exist", treatment, idx, len(s.bands))}
	}
	return s.bands[idx], nil
}

// =============================================================================
// PERIOD BANDWIDTHS
// =============================================================================

// TaxPeriodBandwidthEntry is a band prorated to the end of a tax period.
// Cumulative bandwidths are rounded up to the whole pound.
type TaxPeriodBandwidthEntry struct {
	Index     int
	Rate      decimal.Decimal
	IsTopBand bool

	StartOfBandForPeriod      decimal.Decimal
	EndOfBandForPeriod        decimal.Decimal // zero for the top band
	TaxAtStartOfBandForPeriod decimal.Decimal
	TaxAtEndOfBandForPeriod   decimal.Decimal
}

// TaxPeriodBandwidthSet holds the annual set prorated two ways: to the end of
// the current period (cumulative codes) and to period 1 (non-cumulative codes).
type TaxPeriodBandwidthSet struct {
	Annual      TaxBandwidthSet
	TaxPeriod   int
	PeriodCount int

	cumulative    []TaxPeriodBandwidthEntry
	nonCumulative []TaxPeriodBandwidthEntry
}

// NewTaxPeriodBandwidthSet prorates annual bands for taxPeriod of periodCount.
// An extra period (week 53) is prorated as the final regular period; codes in
// an extra period are always calculated non-cumulatively anyway.
func NewTaxPeriodBandwidthSet(annual TaxBandwidthSet, taxPeriod, periodCount int) (TaxPeriodBandwidthSet, error) {
	if annual.Len() == 0 {
		return TaxPeriodBandwidthSet{}, generic.ReferenceDataErrorf("tax bands", "empty bandwidth set")
	}
	if periodCount <= 0 || taxPeriod <= 0 {
		return TaxPeriodBandwidthSet{}, &generic.ArgumentError{Arg: "tax_period", Reason: fmt.Sprintf("period %d of %d", taxPeriod, periodCount)}
	}

	cumulativePeriod := taxPeriod
	if cumulativePeriod > periodCount {
		cumulativePeriod = periodCount
	}

	return TaxPeriodBandwidthSet{
		Annual:        annual,
		TaxPeriod:     taxPeriod,
		PeriodCount:   periodCount,
		cumulative:    prorate(annual, cumulativePeriod, periodCount),
		nonCumulative: prorate(annual, 1, periodCount),
	}, nil
}

func prorate(annual TaxBandwidthSet, period, periodCount int) []TaxPeriodBandwidthEntry {
	factor := decimal.NewFromInt(int64(period)).Div(decimal.NewFromInt(int64(periodCount)))
	out := make([]TaxPeriodBandwidthEntry, annual.Len())

	start := decimal.Zero
	taxAtStart := decimal.Zero
	for i, band := range annual.bands {
		entry := TaxPeriodBandwidthEntry{
			Index:                     band.Index,
			Rate:                      band.Rate,
			IsTopBand:                 band.IsTopBand,
			StartOfBandForPeriod:      start,
			TaxAtStartOfBandForPeriod: taxAtStart,
		}
		if !band.IsTopBand {
			end := generic.RoundUpToPound(band.EndOfBand.Mul(factor))
			entry.EndOfBandForPeriod = end
			entry.TaxAtEndOfBandForPeriod = taxAtStart.Add(end.Sub(start).Mul(band.Rate))
			start = end
			taxAtStart = entry.TaxAtEndOfBandForPeriod
		} else {
			entry.TaxAtEndOfBandForPeriod = taxAtStart
		}
		out[i] = entry
	}
	return out
}

// Bands returns the cumulative or non-cumulative proration.
func (s TaxPeriodBandwidthSet) Bands(nonCumulative bool) []TaxPeriodBandwidthEntry {
	src := s.cumulative
	if nonCumulative {
		src = s.nonCumulative
	}
	out := make([]TaxPeriodBandwidthEntry, len(src))
	copy(out, src)
	return out
}

// ApplicableBand returns the lowest band whose rounded-up cumulative
// bandwidth covers taxable, falling back to the top band.
func (s TaxPeriodBandwidthSet) ApplicableBand(taxable decimal.Decimal, nonCumulative bool) (TaxPeriodBandwidthEntry, error) {
	bands := s.cumulative
	if nonCumulative {
		bands = s.nonCumulative
	}
	for _, b := range bands {
		if b.IsTopBand || b.EndOfBandForPeriod.GreaterThanOrEqual(taxable) {
			return b, nil
		}
	}
	return TaxPeriodBandwidthEntry{}, generic.ReferenceDataErrorf("tax bands", "no band matches taxable pay %s", taxable)
}
