// Package tax implements UK PAYE income tax: tax codes, progressive
// bandwidth sets and the per-period calculator.
package tax

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
)

// =============================================================================
// TAX REGIME
// =============================================================================

// TaxRegime is the set of constituent countries a tax code applies to.
type TaxRegime string

const (
	RegimeRUK      TaxRegime = "rUK" // England and Northern Ireland
	RegimeScotland TaxRegime = "S"
	RegimeWales    TaxRegime = "C"
)

func (r TaxRegime) Valid() bool {
	return r == RegimeRUK || r == RegimeScotland || r == RegimeWales
}

// ParseTaxRegime accepts the code prefixes ("S", "C") as well as "rUK".
func ParseTaxRegime(s string) (TaxRegime, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "RUK", "UK", "ENGLAND":
		return RegimeRUK, nil
	case "S", "SCOTLAND":
		return RegimeScotland, nil
	case "C", "W", "WALES", "CYMRU":
		return RegimeWales, nil
	}
	return "", &generic.ArgumentError{Arg: "tax_regime", Reason: fmt.Sprintf("unknown tax regime %q", s)}
}

// =============================================================================
// TAX TREATMENT
// =============================================================================

type TaxTreatment string

const (
	TreatmentStandard TaxTreatment = "standard" // 1257L, 1100M, 1383N, 1257T
	TreatmentK        TaxTreatment = "K"        // negative allowance
	TreatmentZeroT    TaxTreatment = "0T"
	TreatmentBR       TaxTreatment = "BR"
	TreatmentD0       TaxTreatment = "D0"
	TreatmentD1       TaxTreatment = "D1"
	TreatmentD2       TaxTreatment = "D2"
	TreatmentNT       TaxTreatment = "NT"
)

// fixedRateOffset is how many bands above the basic rate band a fixed code
// taxes at.
var fixedRateOffset = map[TaxTreatment]int{
	TreatmentBR: 0,
	TreatmentD0: 1,
	TreatmentD1: 2,
	TreatmentD2: 3,
}

// =============================================================================
// TAX CODE
// =============================================================================

// TaxCode is a parsed PAYE tax code.
//
// 0T is deliberately not a fixed code: it is an ordinary banded calculation
// with no allowance, so it goes through the standard path.
type TaxCode struct {
	Regime        TaxRegime
	Treatment     TaxTreatment
	Number        int    // numeric part for standard and K codes
	Suffix        string // L, M, N, T for standard codes
	NonCumulative bool   // W1, M1 or X
}

var (
	standardCodePattern = regexp.MustCompile(`^([0-9]{1,5})([LMNT])$`)
	kCodePattern        = regexp.MustCompile(`^K([0-9]{1,5})$`)
)

// ParseTaxCode parses codes such as "1257L", "S1257L M1", "CK475", "BR",
// "SD1", "0T W1" and "NT".
func ParseTaxCode(s string) (TaxCode, error) {
	raw := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if raw == "" {
		return TaxCode{}, &generic.ArgumentError{Arg: "tax_code", Reason: "empty tax code"}
	}

	code := TaxCode{Regime: RegimeRUK}
	rest := raw

	for _, marker := range []string{"W1", "M1", "X"} {
		if strings.HasSuffix(rest, marker) {
			code.NonCumulative = true
			rest = strings.TrimSuffix(rest, marker)
			break
		}
	}

	if rest == "NT" {
		code.Treatment = TreatmentNT
		return code, nil
	}

	switch {
	case strings.HasPrefix(rest, "S"):
		code.Regime = RegimeScotland
		rest = rest[1:]
	case strings.HasPrefix(rest, "C"):
		code.Regime = RegimeWales
		rest = rest[1:]
	}

	switch rest {
	case "BR", "D0", "D1", "D2":
		code.Treatment = TaxTreatment(rest)
		return code, nil
	case "0T":
		code.Treatment = TreatmentZeroT
		return code, nil
	case "NT":
		code.Treatment = TreatmentNT
		return code, nil
	}

	if m := kCodePattern.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.Atoi(m[1])
		code.Treatment = TreatmentK
		code.Number = n
		return code, nil
	}

	if m := standardCodePattern.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.Atoi(m[1])
		code.Treatment = TreatmentStandard
		code.Number = n
		code.Suffix = m[2]
		return code, nil
	}

	return TaxCode{}, &generic.ArgumentError{Arg: "tax_code", Reason: fmt.Sprintf("unrecognised tax code %q", s)}
}

// MustParseTaxCode is ParseTaxCode for literals.
func MustParseTaxCode(s string) TaxCode {
	c, err := ParseTaxCode(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsFixedCode is true for BR, D0, D1, D2 and NT.
func (c TaxCode) IsFixedCode() bool {
	switch c.Treatment {
	case TreatmentBR, TreatmentD0, TreatmentD1, TreatmentD2, TreatmentNT:
		return true
	}
	return false
}

// AnnualAllowance is the notional annual tax-free amount: the code number
// times ten, negative for K codes, zero for 0T and fixed codes.
func (c TaxCode) AnnualAllowance() decimal.Decimal {
	switch c.Treatment {
	case TreatmentStandard:
		return decimal.NewFromInt(int64(c.Number) * 10)
	case TreatmentK:
		return decimal.NewFromInt(-int64(c.Number) * 10)
	default:
		return decimal.Zero
	}
}

// TaxFreePayForPeriod prorates the annual allowance to the end of taxPeriod
// out of periodCount, rounded away from zero to the penny. For K codes the
// result is negative (additional pay).
func (c TaxCode) TaxFreePayForPeriod(taxPeriod, periodCount int) decimal.Decimal {
	allowance := c.AnnualAllowance()
	if allowance.IsZero() || periodCount <= 0 {
		return decimal.Zero
	}
	prorated := allowance.Mul(decimal.NewFromInt(int64(taxPeriod))).Div(decimal.NewFromInt(int64(periodCount)))
	return generic.RoundUpToPenny(prorated)
}

// String renders the code in HMRC form. Non-cumulative codes use the "X"
// marker, e.g. "S1257L X".
func (c TaxCode) String() string {
	var b strings.Builder
	if c.Treatment != TreatmentNT {
		switch c.Regime {
		case RegimeScotland:
			b.WriteString("S")
		case RegimeWales:
			b.WriteString("C")
		}
	}
	switch c.Treatment {
	case TreatmentStandard:
		b.WriteString(strconv.Itoa(c.Number))
		b.WriteString(c.Suffix)
	case TreatmentK:
		b.WriteString("K")
		b.WriteString(strconv.Itoa(c.Number))
	default:
		b.WriteString(string(c.Treatment))
	}
	if c.NonCumulative {
		b.WriteString(" X")
	}
	return b.String()
}
