package ni

import "github.com/shopspring/decimal"

// NiEarningsBreakdown partitions nicable pay across the threshold ladder.
//
// When the ST sits below the LEL (2025/26 onwards) LELToST is negative: the
// slice between ST and LEL is counted in STToPT, where the employer rate
// applies, and the six primary fields still sum to the nicable pay.
type NiEarningsBreakdown struct {
	AtLEL     decimal.Decimal
	LELToST   decimal.Decimal
	STToPT    decimal.Decimal
	PTToFUST  decimal.Decimal
	FUSTToUEL decimal.Decimal
	AboveUEL  decimal.Decimal
}

// STToUEL is the earnings between the secondary threshold and the UEL.
func (b NiEarningsBreakdown) STToUEL() decimal.Decimal {
	return b.STToPT.Add(b.PTToFUST).Add(b.FUSTToUEL)
}

// LELToPT is the RTI "earnings above LEL up to PT" figure.
func (b NiEarningsBreakdown) LELToPT() decimal.Decimal {
	return b.LELToST.Add(b.STToPT)
}

// PTToUEL is the RTI "earnings above PT up to UEL" figure.
func (b NiEarningsBreakdown) PTToUEL() decimal.Decimal {
	return b.PTToFUST.Add(b.FUSTToUEL)
}

// Total sums the six primary fields.
func (b NiEarningsBreakdown) Total() decimal.Decimal {
	return b.AtLEL.Add(b.LELToST).Add(b.STToPT).Add(b.PTToFUST).Add(b.FUSTToUEL).Add(b.AboveUEL)
}

func (b NiEarningsBreakdown) IsZero() bool {
	return b.AtLEL.IsZero() && b.LELToST.IsZero() && b.STToPT.IsZero() &&
		b.PTToFUST.IsZero() && b.FUSTToUEL.IsZero() && b.AboveUEL.IsZero()
}

func (b NiEarningsBreakdown) Add(o NiEarningsBreakdown) NiEarningsBreakdown {
	return NiEarningsBreakdown{
		AtLEL:     b.AtLEL.Add(o.AtLEL),
		LELToST:   b.LELToST.Add(o.LELToST),
		STToPT:    b.STToPT.Add(o.STToPT),
		PTToFUST:  b.PTToFUST.Add(o.PTToFUST),
		FUSTToUEL: b.FUSTToUEL.Add(o.FUSTToUEL),
		AboveUEL:  b.AboveUEL.Add(o.AboveUEL),
	}
}

func (b NiEarningsBreakdown) Sub(o NiEarningsBreakdown) NiEarningsBreakdown {
	return NiEarningsBreakdown{
		AtLEL:     b.AtLEL.Sub(o.AtLEL),
		LELToST:   b.LELToST.Sub(o.LELToST),
		STToPT:    b.STToPT.Sub(o.STToPT),
		PTToFUST:  b.PTToFUST.Sub(o.PTToFUST),
		FUSTToUEL: b.FUSTToUEL.Sub(o.FUSTToUEL),
		AboveUEL:  b.AboveUEL.Sub(o.AboveUEL),
	}
}

func zeroBreakdown() NiEarningsBreakdown {
	return NiEarningsBreakdown{
		AtLEL:     decimal.Zero,
		LELToST:   decimal.Zero,
		STToPT:    decimal.Zero,
		PTToFUST:  decimal.Zero,
		FUSTToUEL: decimal.Zero,
		AboveUEL:  decimal.Zero,
	}
}
