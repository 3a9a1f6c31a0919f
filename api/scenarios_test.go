/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario commits a full year of payruns through the
	processor, and that loading resets whatever was there before.
*/
package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/paye-engine/factory"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/refdata"
	"github.com/warp/paye-engine/store/memory"
	"go.uber.org/zap"
)

func newScenarioServer(t *testing.T, today time.Time) http.Handler {
	t.Helper()
	provider := refdata.New()
	taxFactory := factory.NewTaxCalculatorFactory(provider, zap.NewNop())
	niFactory := factory.NewNiCalculatorFactory(provider, zap.NewNop())
	processor := payrun.NewProcessor(memory.New(), taxFactory, niFactory, zap.NewNop())

	h := NewHandler(processor, taxFactory, niFactory, zap.NewNop())
	h.now = func() time.Time { return today }
	return NewRouter(h, RouterOptions{Logger: zap.NewNop()})
}

// =============================================================================
// LIST / CURRENT
// =============================================================================

func TestScenarios_List(t *testing.T) {
	srv := newScenarioServer(t, generic.NewDate(2024, time.October, 1))

	rec := do(t, srv, http.MethodGet, "/api/scenarios/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		_, ok := scenarioLoaders()[s.ID]
		assert.True(t, ok, "scenario %s has no loader", s.ID)
	}
}

func TestScenarios_CurrentIsNullBeforeLoad(t *testing.T) {
	srv := newScenarioServer(t, generic.NewDate(2024, time.October, 1))

	rec := do(t, srv, http.MethodGet, "/api/scenarios/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}

// =============================================================================
// LOAD
// =============================================================================

func TestScenario_MonthlyEmployee(t *testing.T) {
	// GIVEN: today falls in 2024/25
	srv := newScenarioServer(t, generic.NewDate(2024, time.October, 1))

	// WHEN: the monthly employee scenario is loaded
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "monthly-employee"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: twelve payruns are committed for 2024/25
	got := decodeBody[ScenarioLoadResponse](t, rec)
	assert.Equal(t, "loaded", got.Status)
	assert.Equal(t, "2024/25", got.TaxYear)
	assert.Equal(t, []string{"emp-001"}, got.Employees)
	assert.Equal(t, 12, got.Payruns)

	rec = do(t, srv, http.MethodGet, "/api/employees/emp-001/ytd?tax_year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ytd := decodeBody[YtdDTO](t, rec)
	assert.Equal(t, 12, ytd.Version)
	assert.Equal(t, "36000.00", ytd.TaxableSalaryYtd)
	assert.Equal(t, "36000.00", ytd.NicableEarningsYtd)
	// 12 x 156.16
	assert.Equal(t, "1873.92", ytd.EmployeeNiYtd)

	rec = do(t, srv, http.MethodGet, "/api/employees/emp-001/payruns?tax_year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]PayrunDTO](t, rec), 12)

	rec = do(t, srv, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "monthly-employee", decodeBody[ScenarioDTO](t, rec).ID)
}

func TestScenario_FallsBackToLatestReferenceYear(t *testing.T) {
	// GIVEN: today is past the last tax year with reference data
	srv := newScenarioServer(t, generic.NewDate(2030, time.June, 1))

	// WHEN: a scenario is loaded
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "monthly-employee"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the latest covered year is used
	assert.Equal(t, "2025/26", decodeBody[ScenarioLoadResponse](t, rec).TaxYear)
}

func TestScenario_AllLoad(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			srv := newScenarioServer(t, generic.NewDate(2025, time.May, 1))

			rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+s.ID+`"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := decodeBody[ScenarioLoadResponse](t, rec)
			require.Len(t, got.Employees, 1)
			assert.Positive(t, got.Payruns)

			rec = do(t, srv, http.MethodGet, "/api/employees/"+got.Employees[0]+"/ytd?tax_year=2025", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, got.Payruns, decodeBody[YtdDTO](t, rec).Version)
		})
	}
}

func TestScenario_ReloadResetsStore(t *testing.T) {
	// GIVEN: a loaded scenario
	srv := newScenarioServer(t, generic.NewDate(2024, time.October, 1))
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "monthly-employee"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: a different scenario is loaded
	rec = do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "director"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the first scenario's employee is gone
	rec = do(t, srv, http.MethodGet, "/api/employees/emp-001/ytd?tax_year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[YtdDTO](t, rec).Version)
}

func TestScenario_Unknown(t *testing.T) {
	srv := newScenarioServer(t, generic.NewDate(2024, time.October, 1))

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DATES
// =============================================================================

func TestScenarioDates(t *testing.T) {
	months := monthlyDates(2024)
	require.Len(t, months, 12)
	assert.Equal(t, generic.NewDate(2024, time.April, 25), months[0])
	assert.Equal(t, generic.NewDate(2025, time.March, 25), months[11])
	for i, d := range months {
		assert.Equal(t, i+1, generic.MustPayDate(d, generic.Monthly).TaxPeriod)
	}

	weeks := weeklyDates(2024)
	require.Len(t, weeks, 52)
	for i, d := range weeks {
		assert.Equal(t, i+1, generic.MustPayDate(d, generic.Weekly).TaxPeriod)
	}
}
