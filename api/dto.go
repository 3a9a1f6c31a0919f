/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the calculators' Go types from the external API contract.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients
  - *Response: Response wrappers

MONEY:
  Requests accept amounts as JSON strings or numbers ("1234.56" or 1234.56).
  Responses always render amounts as strings with two decimal places so no
  client parses money into a float by accident.

DATES:
  payment_date is "YYYY-MM-DD".

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/tax"
)

// =============================================================================
// REQUESTS
// =============================================================================

// PeriodRequest identifies the pay period. Embedded in the other requests.
type PeriodRequest struct {
	PaymentDate string `json:"payment_date"`
	Frequency   string `json:"frequency"`
	PeriodSpan  int    `json:"period_span,omitempty"`
	ExtraPeriod bool   `json:"extra_period,omitempty"`
}

// TaxCalculateRequest is POST /api/tax/calculate.
type TaxCalculateRequest struct {
	PeriodRequest
	TaxCode        string          `json:"tax_code"`
	TaxablePay     decimal.Decimal `json:"taxable_pay"`
	BenefitsInKind decimal.Decimal `json:"benefits_in_kind"`

	TaxableSalaryYtd              decimal.Decimal `json:"taxable_salary_ytd"`
	TaxPaidYtd                    decimal.Decimal `json:"tax_paid_ytd"`
	TaxUnpaidDueToRegulatoryLimit decimal.Decimal `json:"tax_unpaid_due_to_regulatory_limit"`
}

// NiCalculateRequest is POST /api/ni/calculate.
type NiCalculateRequest struct {
	PeriodRequest
	Category        string           `json:"category"`
	NicablePay      decimal.Decimal  `json:"nicable_pay"`
	Class1ABenefits *decimal.Decimal `json:"class_1a_benefits,omitempty"`
}

// NiDirectorsRequest is POST /api/ni/directors.
type NiDirectorsRequest struct {
	NiCalculateRequest
	Method            string           `json:"method"`
	EarningsYtd       decimal.Decimal  `json:"earnings_ytd"`
	EmployeeNiPaidYtd decimal.Decimal  `json:"employee_ni_paid_ytd"`
	EmployerNiPaidYtd decimal.Decimal  `json:"employer_ni_paid_ytd"`
	ProRataFactor     *decimal.Decimal `json:"pro_rata_factor,omitempty"`
}

// PayrunRequest is POST /api/payruns and /api/payruns/preview.
type PayrunRequest struct {
	PeriodRequest
	EmployeeID     string `json:"employee_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	TaxCode        string          `json:"tax_code"`
	TaxablePay     decimal.Decimal `json:"taxable_pay"`
	BenefitsInKind decimal.Decimal `json:"benefits_in_kind"`

	NiCategory      string           `json:"ni_category"`
	NicablePay      decimal.Decimal  `json:"nicable_pay"`
	Director        *DirectorRequest `json:"director,omitempty"`
	Class1ABenefits *decimal.Decimal `json:"class_1a_benefits,omitempty"`
}

type DirectorRequest struct {
	Method        string           `json:"method"`
	ProRataFactor *decimal.Decimal `json:"pro_rata_factor,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type PayDateDTO struct {
	Date      string `json:"date"`
	Frequency string `json:"frequency"`
	TaxYear   string `json:"tax_year"`
	TaxPeriod int    `json:"tax_period"`
}

type TaxResultDTO struct {
	PayDate                       *PayDateDTO `json:"pay_date,omitempty"`
	TaxCode                       string      `json:"tax_code"`
	NonCumulative                 bool        `json:"non_cumulative"`
	TaxableSalary                 string      `json:"taxable_salary"`
	TaxFreePay                    string      `json:"tax_free_pay"`
	TaxableSalaryAfterAllowance   string      `json:"taxable_salary_after_allowance"`
	HighestApplicableBandIndex    int         `json:"highest_applicable_band_index"`
	IncomeAtHighestApplicableBand string      `json:"income_at_highest_applicable_band"`
	TaxAtHighestApplicableBand    string      `json:"tax_at_highest_applicable_band"`
	TaxToEndOfPeriod              string      `json:"tax_to_end_of_period"`
	TaxDue                        string      `json:"tax_due"`
	TaxOverRegulatoryLimit        string      `json:"tax_over_regulatory_limit"`
	FinalTaxDue                   string      `json:"final_tax_due"`
	TaxUnpaidDueToRegulatoryLimit string      `json:"tax_unpaid_due_to_regulatory_limit"`
}

type BreakdownDTO struct {
	AtLEL     string `json:"at_lel"`
	LELToST   string `json:"lel_to_st"`
	STToPT    string `json:"st_to_pt"`
	PTToFUST  string `json:"pt_to_fust"`
	FUSTToUEL string `json:"fust_to_uel"`
	AboveUEL  string `json:"above_uel"`
}

type ThresholdsDTO struct {
	LEL                string `json:"lel"`
	ST                 string `json:"st"`
	PT                 string `json:"pt"`
	UpperSecondary     string `json:"upper_secondary"`
	UpperSecondaryType string `json:"upper_secondary_type"`
	UEL                string `json:"uel"`
}

type NiResultDTO struct {
	PayDate              *PayDateDTO    `json:"pay_date,omitempty"`
	Outcome              string         `json:"outcome"`
	Category             string         `json:"category"`
	IsDirector           bool           `json:"is_director"`
	NicablePay           string         `json:"nicable_pay"`
	Thresholds           *ThresholdsDTO `json:"thresholds,omitempty"`
	Breakdown            *BreakdownDTO  `json:"breakdown,omitempty"`
	EmployeeContribution string         `json:"employee_contribution"`
	EmployerContribution string         `json:"employer_contribution"`
	Class1A              *string        `json:"class_1a,omitempty"`
}

type PayrunDTO struct {
	ID                  string     `json:"id"`
	IdempotencyKey      string     `json:"idempotency_key,omitempty"`
	EmployeeID          string     `json:"employee_id"`
	PayDate             PayDateDTO `json:"pay_date"`
	TaxCode             string     `json:"tax_code"`
	TaxablePay          string     `json:"taxable_pay"`
	TaxDue              string     `json:"tax_due"`
	NiCategory          string     `json:"ni_category"`
	NicablePay          string     `json:"nicable_pay"`
	EmployeeNi          string     `json:"employee_ni"`
	EmployerNi          string     `json:"employer_ni"`
	Class1A             *string    `json:"class_1a,omitempty"`
	NoRecordingRequired bool       `json:"no_recording_required"`
	CreatedAt           string     `json:"created_at"`
}

type NiHistoryEntryDTO struct {
	Category             string       `json:"category"`
	GrossNicableEarnings string       `json:"gross_nicable_earnings"`
	Breakdown            BreakdownDTO `json:"breakdown"`
	EmployeeContribution string       `json:"employee_contribution"`
	EmployerContribution string       `json:"employer_contribution"`
	Class1A              *string      `json:"class_1a,omitempty"`
}

type YtdDTO struct {
	EmployeeID                    string              `json:"employee_id"`
	TaxYear                       string              `json:"tax_year"`
	Version                       int                 `json:"version"`
	TaxableSalaryYtd              string              `json:"taxable_salary_ytd"`
	TaxPaidYtd                    string              `json:"tax_paid_ytd"`
	TaxUnpaidDueToRegulatoryLimit string              `json:"tax_unpaid_due_to_regulatory_limit"`
	EmployeeNiYtd                 string              `json:"employee_ni_ytd"`
	EmployerNiYtd                 string              `json:"employer_ni_ytd"`
	NicableEarningsYtd            string              `json:"nicable_earnings_ytd"`
	Class1AYtd                    *string             `json:"class_1a_ytd,omitempty"`
	NiHistory                     []NiHistoryEntryDTO `json:"ni_history"`
	UpdatedAt                     string              `json:"updated_at,omitempty"`
}

// PayrunResponse is returned by the payrun endpoints.
type PayrunResponse struct {
	Payrun    PayrunDTO    `json:"payrun"`
	Tax       TaxResultDTO `json:"tax"`
	Ni        NiResultDTO  `json:"ni"`
	Ytd       YtdDTO       `json:"ytd"`
	Committed bool         `json:"committed"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func optionalMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

func toPayDateDTO(pd generic.PayDate) PayDateDTO {
	return PayDateDTO{
		Date:      pd.Date.Format(time.DateOnly),
		Frequency: string(pd.Frequency),
		TaxYear:   pd.TaxYear.String(),
		TaxPeriod: pd.TaxPeriod,
	}
}

func toTaxResultDTO(r tax.TaxCalculationResult) TaxResultDTO {
	return TaxResultDTO{
		TaxCode:                       r.TaxCode.String(),
		NonCumulative:                 r.NonCumulative,
		TaxableSalary:                 money(r.TaxableSalary),
		TaxFreePay:                    money(r.TaxFreePay),
		TaxableSalaryAfterAllowance:   money(r.TaxableSalaryAfterAllowance),
		HighestApplicableBandIndex:    r.HighestApplicableBandIndex,
		IncomeAtHighestApplicableBand: money(r.IncomeAtHighestApplicableBand),
		TaxAtHighestApplicableBand:    money(r.TaxAtHighestApplicableBand),
		TaxToEndOfPeriod:              money(r.TaxToEndOfPeriod),
		TaxDue:                        money(r.TaxDue),
		TaxOverRegulatoryLimit:        money(r.TaxOverRegulatoryLimit),
		FinalTaxDue:                   money(r.FinalTaxDue),
		TaxUnpaidDueToRegulatoryLimit: money(r.TaxUnpaidDueToRegulatoryLimit),
	}
}

func toBreakdownDTO(b ni.NiEarningsBreakdown) BreakdownDTO {
	return BreakdownDTO{
		AtLEL:     money(b.AtLEL),
		LELToST:   money(b.LELToST),
		STToPT:    money(b.STToPT),
		PTToFUST:  money(b.PTToFUST),
		FUSTToUEL: money(b.FUSTToUEL),
		AboveUEL:  money(b.AboveUEL),
	}
}

func toNiResultDTO(r ni.NiCalculationResult) NiResultDTO {
	dto := NiResultDTO{
		Outcome:              r.Outcome.String(),
		Category:             string(r.Category),
		IsDirector:           r.IsDirector,
		NicablePay:           money(r.NicablePay),
		EmployeeContribution: money(r.EmployeeContribution),
		EmployerContribution: money(r.EmployerContribution),
		Class1A:              optionalMoney(r.Class1A),
	}
	if r.NoRecordingRequired() {
		return dto
	}

	th := r.Thresholds
	dto.Thresholds = &ThresholdsDTO{
		LEL:                money(th.LEL),
		ST:                 money(th.ST),
		PT:                 money(th.PT),
		UpperSecondary:     money(th.UpperSecondary),
		UpperSecondaryType: string(th.UpperSecondaryType),
		UEL:                money(th.UEL),
	}
	b := toBreakdownDTO(r.Breakdown)
	dto.Breakdown = &b
	return dto
}

func toPayrunDTO(rec payrun.Record) PayrunDTO {
	return PayrunDTO{
		ID:                  rec.ID.String(),
		IdempotencyKey:      rec.IdempotencyKey,
		EmployeeID:          string(rec.EmployeeID),
		PayDate:             toPayDateDTO(rec.PayDate),
		TaxCode:             rec.TaxCode,
		TaxablePay:          money(rec.TaxablePay),
		TaxDue:              money(rec.TaxDue),
		NiCategory:          string(rec.NiCategory),
		NicablePay:          money(rec.NicablePay),
		EmployeeNi:          money(rec.EmployeeNi),
		EmployerNi:          money(rec.EmployerNi),
		Class1A:             optionalMoney(rec.Class1A),
		NoRecordingRequired: rec.NoRecordingRequired,
		CreatedAt:           rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toYtdDTO(s payrun.Snapshot) YtdDTO {
	totals := s.NiHistory.GetNiYtdTotals()
	dto := YtdDTO{
		EmployeeID:                    string(s.EmployeeID),
		TaxYear:                       s.TaxYear.String(),
		Version:                       s.Version,
		TaxableSalaryYtd:              money(s.TaxableSalaryYtd),
		TaxPaidYtd:                    money(s.TaxPaidYtd),
		TaxUnpaidDueToRegulatoryLimit: money(s.TaxUnpaidDueToRegulatoryLimit),
		EmployeeNiYtd:                 money(totals.Employee),
		EmployerNiYtd:                 money(totals.Employer),
		NicableEarningsYtd:            money(s.NiHistory.TotalNicableEarnings()),
		Class1AYtd:                    optionalMoney(s.NiHistory.Class1A()),
		NiHistory:                     []NiHistoryEntryDTO{},
	}
	if !s.UpdatedAt.IsZero() {
		dto.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, e := range s.NiHistory.Entries() {
		dto.NiHistory = append(dto.NiHistory, NiHistoryEntryDTO{
			Category:             string(e.Category),
			GrossNicableEarnings: money(e.GrossNicableEarnings),
			Breakdown:            toBreakdownDTO(e.Breakdown),
			EmployeeContribution: money(e.EmployeeContribution),
			EmployerContribution: money(e.EmployerContribution),
			Class1A:              optionalMoney(e.Class1A),
		})
	}
	return dto
}
