/*
handlers_test.go - HTTP tests for the API

Tests for:
- Calculator endpoints (tax, NI, directors)
- Payrun commit, preview and year-to-date queries
- Error status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/factory"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/refdata"
	"github.com/warp/paye-engine/store/memory"
	"go.uber.org/zap"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	provider := refdata.New()
	taxFactory := factory.NewTaxCalculatorFactory(provider, zap.NewNop())
	niFactory := factory.NewNiCalculatorFactory(provider, zap.NewNop())
	processor := payrun.NewProcessor(memory.New(), taxFactory, niFactory, zap.NewNop())

	h := NewHandler(processor, taxFactory, niFactory, zap.NewNop())
	return NewRouter(h, RouterOptions{CORSOrigins: []string{"*"}, Logger: zap.NewNop()})
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const payrunApril = `{
	"employee_id": "emp-1",
	"idempotency_key": "emp-1-2024-m1",
	"payment_date": "2024-04-25",
	"frequency": "monthly",
	"tax_code": "1257L",
	"taxable_pay": "3000",
	"benefits_in_kind": "0",
	"ni_category": "A",
	"nicable_pay": "3000"
}`

// =============================================================================
// CALCULATORS
// =============================================================================

func TestCalculateTax(t *testing.T) {
	// GIVEN: 1257L, £2,000 in month 1 of 2024/25
	// WHEN: Posting to the tax calculator
	// THEN: £190.40 is due

	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/tax/calculate", `{
		"payment_date": "2024-04-25",
		"frequency": "monthly",
		"tax_code": "1257L",
		"taxable_pay": 2000
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[TaxResultDTO](t, rec)
	assert.Equal(t, "190.40", got.FinalTaxDue)
	assert.Equal(t, "1257L", got.TaxCode)
	require.NotNil(t, got.PayDate)
	assert.Equal(t, 1, got.PayDate.TaxPeriod)
	assert.Equal(t, "2024/25", got.PayDate.TaxYear)
}

func TestCalculateTax_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "malformed json",
			body:   `{"payment_date": `,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   `{"payment_date": "2024-04-25", "frequency": "monthly", "tax_code": "1257L", "salary": "1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad tax code",
			body:   `{"payment_date": "2024-04-25", "frequency": "monthly", "tax_code": "ZZZ", "taxable_pay": "1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad frequency",
			body:   `{"payment_date": "2024-04-25", "frequency": "daily", "tax_code": "1257L", "taxable_pay": "1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad date",
			body:   `{"payment_date": "25/04/2024", "frequency": "monthly", "tax_code": "1257L", "taxable_pay": "1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "no reference data for the year",
			body:   `{"payment_date": "2019-04-25", "frequency": "monthly", "tax_code": "1257L", "taxable_pay": "1"}`,
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/tax/calculate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			got := decodeBody[ErrorResponse](t, rec)
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestCalculateNi(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/ni/calculate", `{
		"payment_date": "2024-04-25",
		"frequency": "monthly",
		"category": "A",
		"nicable_pay": "3000",
		"class_1a_benefits": "1000"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[NiResultDTO](t, rec)
	assert.Equal(t, "contributions", got.Outcome)
	assert.Equal(t, "156.16", got.EmployeeContribution)
	assert.Equal(t, "309.40", got.EmployerContribution)
	require.NotNil(t, got.Class1A)
	assert.Equal(t, "138.00", *got.Class1A)
	require.NotNil(t, got.Thresholds)
	assert.Equal(t, "533.00", got.Thresholds.LEL)
	require.NotNil(t, got.Breakdown)
}

func TestCalculateNi_BelowLEL(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/ni/calculate", `{
		"payment_date": "2024-04-25",
		"frequency": "monthly",
		"category": "A",
		"nicable_pay": "500"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[NiResultDTO](t, rec)
	assert.Equal(t, "no_recording_required", got.Outcome)
	assert.Nil(t, got.Breakdown)
	assert.Equal(t, "0.00", got.EmployeeContribution)
}

func TestCalculateNi_UnknownCategory(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/ni/calculate", `{
		"payment_date": "2024-04-25",
		"frequency": "monthly",
		"category": "Q",
		"nicable_pay": "500"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateNiDirectors(t *testing.T) {
	// GIVEN: A director with £8,000 earned and nothing paid so far
	// WHEN: £10,000 more is paid
	// THEN: Contributions are due on the whole £18,000 to date

	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/ni/directors", `{
		"payment_date": "2024-06-25",
		"frequency": "monthly",
		"category": "A",
		"method": "standard",
		"nicable_pay": "10000",
		"earnings_ytd": "8000",
		"employee_ni_paid_ytd": "0",
		"employer_ni_paid_ytd": "0"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[NiResultDTO](t, rec)
	assert.True(t, got.IsDirector)
	assert.Equal(t, "434.40", got.EmployeeContribution)
	assert.Equal(t, "1228.20", got.EmployerContribution)
}

func TestCalculateNiDirectors_BadMethod(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/ni/directors", `{
		"payment_date": "2024-06-25",
		"frequency": "monthly",
		"category": "A",
		"method": "sometimes",
		"nicable_pay": "10000"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYRUNS
// =============================================================================

func TestRunPayrun_CommitAndQuery(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Committing a month 1 payrun then querying the employee
	// THEN: The year to date and the payrun list reflect it

	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/payruns", payrunApril)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeBody[PayrunResponse](t, rec)
	assert.True(t, got.Committed)
	assert.Equal(t, "390.40", got.Tax.FinalTaxDue)
	assert.Equal(t, "156.16", got.Ni.EmployeeContribution)
	assert.Equal(t, "390.40", got.Ytd.TaxPaidYtd)
	assert.Equal(t, 1, got.Ytd.Version)
	assert.NotEmpty(t, got.Payrun.ID)

	rec = do(t, srv, http.MethodGet, "/api/employees/emp-1/ytd?tax_year=2024/25", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ytd := decodeBody[YtdDTO](t, rec)
	assert.Equal(t, "3000.00", ytd.TaxableSalaryYtd)
	assert.Equal(t, "309.40", ytd.EmployerNiYtd)
	require.Len(t, ytd.NiHistory, 1)
	assert.Equal(t, "A", ytd.NiHistory[0].Category)

	rec = do(t, srv, http.MethodGet, "/api/employees/emp-1/payruns?tax_year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runs := decodeBody[[]PayrunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, got.Payrun.ID, runs[0].ID)
}

func TestRunPayrun_DuplicateIsConflict(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/payruns", payrunApril)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/payruns", payrunApril)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestPreviewPayrun_DoesNotCommit(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/payruns/preview", payrunApril)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[PayrunResponse](t, rec)
	assert.False(t, got.Committed)
	assert.Equal(t, "390.40", got.Tax.FinalTaxDue)

	rec = do(t, srv, http.MethodGet, "/api/employees/emp-1/ytd?tax_year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ytd := decodeBody[YtdDTO](t, rec)
	assert.Equal(t, 0, ytd.Version)
	assert.Empty(t, ytd.NiHistory)
}

func TestRunPayrun_Director(t *testing.T) {
	srv := newTestServer(t)

	body := strings.Replace(payrunApril, `"nicable_pay": "3000"`,
		`"nicable_pay": "3000", "director": {"method": "annual"}`, 1)

	rec := do(t, srv, http.MethodPost, "/api/payruns", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeBody[PayrunResponse](t, rec)
	assert.Equal(t, "no_recording_required", got.Ni.Outcome)
	assert.True(t, got.Payrun.NoRecordingRequired)
	assert.Equal(t, "3000.00", got.Ytd.NicableEarningsYtd)
}

func TestGetYtd_BadTaxYear(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/employees/emp-1/ytd?tax_year=2024/99", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/payruns/preview", payrunApril)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paye_http_requests_total")
	assert.Contains(t, rec.Body.String(), `path="/api/payruns/preview"`)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
