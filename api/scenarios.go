/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with a realistic
	year of payruns. Each scenario runs every pay period of the current tax
	year, or the latest year with reference data, through the payrun
	processor so the year-to-date endpoints have something to show.

AVAILABLE SCENARIOS:

	monthly-employee:   1257L, category A, flat monthly salary
	director:           Company director on the annual earnings method
	weekly-apprentice:  Weekly apprentice under 25 on an emergency code
	k-code:             K code with payrolled benefits and Class 1A

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Build one payrun input per pay period
 3. Commit each through the processor, in date order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "director"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - payrun/processor.go: Run, Reset
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/tax"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ScenarioLoadRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ScenarioLoadResponse struct {
	Status    string   `json:"status"`
	Scenario  string   `json:"scenario"`
	TaxYear   string   `json:"tax_year"`
	Employees []string `json:"employees"`
	Payruns   int      `json:"payruns"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "monthly-employee",
		Name:        "Monthly Employee",
		Description: "1257L, category A, £3,000 a month for the whole year",
		Category:    "employee",
	},
	{
		ID:          "director",
		Name:        "Director",
		Description: "Director on the annual earnings method with a bonus in month 9",
		Category:    "director",
	},
	{
		ID:          "weekly-apprentice",
		Name:        "Weekly Apprentice",
		Description: "Category H apprentice paid weekly on 1257L W1",
		Category:    "employee",
	},
	{
		ID:          "k-code",
		Name:        "K Code",
		Description: "K475 with £600 a month of payrolled benefits and Class 1A at year end",
		Category:    "employee",
	},
}

type scenarioLoader func(ty generic.TaxYear) []payrun.Input

func scenarioLoaders() map[string]scenarioLoader {
	return map[string]scenarioLoader{
		"monthly-employee":  monthlyEmployeeScenario,
		"director":          directorScenario,
		"weekly-apprentice": weeklyApprenticeScenario,
		"k-code":            kCodeScenario,
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and commits a year of payruns.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioLoadRequest
	if !h.decode(w, r, &req) {
		return
	}

	loader, ok := scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scenario %q", req.ScenarioID), nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.processor.Reset(ctx); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.currentScenario = ""

	ty := h.scenarioTaxYear()
	inputs := loader(ty)
	employees, err := h.runScenario(ctx, inputs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.Stringer("tax_year", ty),
		zap.Int("payruns", len(inputs)),
	)
	writeJSON(w, http.StatusOK, ScenarioLoadResponse{
		Status:    "loaded",
		Scenario:  req.ScenarioID,
		TaxYear:   ty.String(),
		Employees: employees,
		Payruns:   len(inputs),
	})
}

// scenarioTaxYear is the tax year containing today, or the latest earlier
// year the reference data covers.
func (h *Handler) scenarioTaxYear() generic.TaxYear {
	current := generic.TaxYearFor(h.now())
	for ty := current; ty > current-5; ty-- {
		payDate := generic.MustPayDate(ty.Start(), generic.Monthly)
		if _, err := h.taxFactory.GetCalculator(tax.RegimeRUK, payDate); err == nil {
			return ty
		}
	}
	return current
}

func (h *Handler) runScenario(ctx context.Context, inputs []payrun.Input) ([]string, error) {
	seen := make(map[generic.EmployeeID]bool)
	var employees []string
	for _, in := range inputs {
		if _, err := h.processor.Run(ctx, in); err != nil {
			return nil, fmt.Errorf("scenario payrun %s: %w", in.IdempotencyKey, err)
		}
		if !seen[in.EmployeeID] {
			seen[in.EmployeeID] = true
			employees = append(employees, string(in.EmployeeID))
		}
	}
	return employees, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// monthlyDates returns the 25th of every tax month.
func monthlyDates(ty generic.TaxYear) []time.Time {
	dates := make([]time.Time, 0, 12)
	for i := 0; i < 12; i++ {
		dates = append(dates, ty.Start().AddDate(0, i, 19))
	}
	return dates
}

func weeklyDates(ty generic.TaxYear) []time.Time {
	dates := make([]time.Time, 0, 52)
	for i := 0; i < 52; i++ {
		dates = append(dates, ty.Start().AddDate(0, 0, 7*i+4))
	}
	return dates
}

func monthlyEmployeeScenario(ty generic.TaxYear) []payrun.Input {
	var inputs []payrun.Input
	for i, date := range monthlyDates(ty) {
		inputs = append(inputs, payrun.Input{
			EmployeeID:     "emp-001",
			IdempotencyKey: fmt.Sprintf("emp-001-%d-m%02d", ty, i+1),
			PaymentDate:    date,
			Frequency:      generic.Monthly,
			TaxCode:        tax.MustParseTaxCode("1257L"),
			TaxablePay:     generic.Pounds(3000),
			BenefitsInKind: decimal.Zero,
			NiCategory:     ni.CategoryA,
			NicablePay:     generic.Pounds(3000),
		})
	}
	return inputs
}

func directorScenario(ty generic.TaxYear) []payrun.Input {
	var inputs []payrun.Input
	for i, date := range monthlyDates(ty) {
		pay := generic.Pounds(4000)
		if i == 8 {
			pay = generic.Pounds(25000)
		}
		inputs = append(inputs, payrun.Input{
			EmployeeID:     "dir-001",
			IdempotencyKey: fmt.Sprintf("dir-001-%d-m%02d", ty, i+1),
			PaymentDate:    date,
			Frequency:      generic.Monthly,
			TaxCode:        tax.MustParseTaxCode("1257L"),
			TaxablePay:     pay,
			BenefitsInKind: decimal.Zero,
			NiCategory:     ni.CategoryA,
			NicablePay:     pay,
			Director:       &payrun.Director{Method: ni.DirectorsStandard},
		})
	}
	return inputs
}

func weeklyApprenticeScenario(ty generic.TaxYear) []payrun.Input {
	var inputs []payrun.Input
	for i, date := range weeklyDates(ty) {
		inputs = append(inputs, payrun.Input{
			EmployeeID:     "apr-001",
			IdempotencyKey: fmt.Sprintf("apr-001-%d-w%02d", ty, i+1),
			PaymentDate:    date,
			Frequency:      generic.Weekly,
			TaxCode:        tax.MustParseTaxCode("1257L W1"),
			TaxablePay:     generic.Pounds(450),
			BenefitsInKind: decimal.Zero,
			NiCategory:     ni.CategoryH,
			NicablePay:     generic.Pounds(450),
		})
	}
	return inputs
}

func kCodeScenario(ty generic.TaxYear) []payrun.Input {
	var inputs []payrun.Input
	for i, date := range monthlyDates(ty) {
		benefits := generic.Pounds(600)
		var class1A *decimal.Decimal
		if i == 11 {
			annual := generic.Pounds(7200)
			class1A = &annual
		}
		inputs = append(inputs, payrun.Input{
			EmployeeID:      "kc-001",
			IdempotencyKey:  fmt.Sprintf("kc-001-%d-m%02d", ty, i+1),
			PaymentDate:     date,
			Frequency:       generic.Monthly,
			TaxCode:         tax.MustParseTaxCode("K475"),
			TaxablePay:      generic.Pounds(800).Add(benefits),
			BenefitsInKind:  benefits,
			NiCategory:      ni.CategoryA,
			NicablePay:      generic.Pounds(800),
			Class1ABenefits: class1A,
		})
	}
	return inputs
}
