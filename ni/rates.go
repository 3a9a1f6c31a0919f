package ni

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// NiCategoryRatesEntry holds the seven rates for one NI category.
type NiCategoryRatesEntry struct {
	Category NiCategory

	EmployeeRateToPT     decimal.Decimal // LEL to PT, zero for every current category
	EmployeeRatePTToUEL  decimal.Decimal
	EmployeeRateAboveUEL decimal.Decimal

	EmployerRateLELToST   decimal.Decimal
	EmployerRateSTToFUST  decimal.Decimal // ST to the category's upper secondary threshold
	EmployerRateFUSTToUEL decimal.Decimal
	EmployerRateAboveUEL  decimal.Decimal
}

func (e NiCategoryRatesEntry) rates() []decimal.Decimal {
	return []decimal.Decimal{
		e.EmployeeRateToPT, e.EmployeeRatePTToUEL, e.EmployeeRateAboveUEL,
		e.EmployerRateLELToST, e.EmployerRateSTToFUST, e.EmployerRateFUSTToUEL, e.EmployerRateAboveUEL,
	}
}

// NiRatesTable is an immutable lookup of rates by category, plus the Class 1A
// rate that applies to benefits in kind for the same period.
type NiRatesTable struct {
	rates       map[NiCategory]NiCategoryRatesEntry
	class1ARate decimal.Decimal
}

// NewNiRatesTable copies entries into a read-only table. Duplicate categories
// and negative rates are reference data errors.
func NewNiRatesTable(entries []NiCategoryRatesEntry, class1ARate decimal.Decimal) (NiRatesTable, error) {
	if class1ARate.IsNegative() {
		return NiRatesTable{}, generic.ReferenceDataErrorf("ni rates", "negative Class 1A rate %s", class1ARate)
	}
	rates := make(map[NiCategory]NiCategoryRatesEntry, len(entries))
	for _, e := range entries {
		if _, dup := rates[e.Category]; dup {
			return NiRatesTable{}, generic.ReferenceDataErrorf("ni rates", "duplicate category %s", e.Category)
		}
		for _, r := range e.rates() {
			if r.IsNegative() {
				return NiRatesTable{}, generic.ReferenceDataErrorf("ni rates", "category %s: negative rate %s", e.Category, r)
			}
		}
		rates[e.Category] = e
	}
	return NiRatesTable{rates: rates, class1ARate: class1ARate}, nil
}

func MustNiRatesTable(entries []NiCategoryRatesEntry, class1ARate decimal.Decimal) NiRatesTable {
	t, err := NewNiRatesTable(entries, class1ARate)
	if err != nil {
		panic(err)
	}
	return t
}

func (t NiRatesTable) Get(category NiCategory) (NiCategoryRatesEntry, bool) {
	e, ok := t.rates[category]
	return e, ok
}

// Categories lists the categories the table covers, sorted.
func (t NiRatesTable) Categories() []NiCategory {
	out := make([]NiCategory, 0, len(t.rates))
	for c := range t.rates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t NiRatesTable) Class1ARate() decimal.Decimal { return t.class1ARate }

func (t NiRatesTable) Len() int { return len(t.rates) }
