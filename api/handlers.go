/*
handlers.go - HTTP API handlers for the PAYE engine

PURPOSE:
  Exposes the calculators and the payrun processor via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculators (stateless, caller supplies year-to-date figures):
    POST   /api/tax/calculate              Income tax for one period
    POST   /api/ni/calculate               Class 1 NI for one period
    POST   /api/ni/directors               Class 1 NI for a director

  Payruns (stateful, year to date read from the store):
    POST   /api/payruns                    Calculate and commit
    POST   /api/payruns/preview            Calculate without committing
    GET    /api/employees/{id}/ytd         Year-to-date position
    GET    /api/employees/{id}/payruns     Committed payruns

  Demo (see scenarios.go):
    GET    /api/scenarios                  Available scenarios
    GET    /api/scenarios/current          Loaded scenario, or null
    POST   /api/scenarios/load             Reset and load a scenario

  Both employee endpoints take ?tax_year=2025 (or 2025/26). Without it the
  tax year containing today is used.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (codes, categories, dates)
  3. Call the factory-built calculator or the processor
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, invalid argument or operation
  - 409: Conflict (idempotency key reused, concurrent payrun)
  - 422: Reference data missing or invalid for the pay date
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Put the service behind a gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/paye-engine/factory"
	"github.com/warp/paye-engine/generic"
	"github.com/warp/paye-engine/metrics"
	"github.com/warp/paye-engine/ni"
	"github.com/warp/paye-engine/payrun"
	"github.com/warp/paye-engine/tax"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	processor  *payrun.Processor
	taxFactory *factory.TaxCalculatorFactory
	niFactory  *factory.NiCalculatorFactory
	logger     *zap.Logger
	now        func() time.Time

	mu              sync.Mutex // serialises scenario loads
	currentScenario string
}

func NewHandler(processor *payrun.Processor, taxFactory *factory.TaxCalculatorFactory, niFactory *factory.NiCalculatorFactory, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("api.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("api.handler")
	}
	return &Handler{
		processor:  processor,
		taxFactory: taxFactory,
		niFactory:  niFactory,
		logger:     l,
		now:        time.Now,
	}
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalculateTax runs the income tax calculator for one period.
// POST /api/tax/calculate
func (h *Handler) CalculateTax(w http.ResponseWriter, r *http.Request) {
	var req TaxCalculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	payDate, err := req.payDate()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	code, err := tax.ParseTaxCode(req.TaxCode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	calc, err := h.taxFactory.GetCalculator(code.Regime, payDate)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	result, err := calc.Calculate(req.TaxablePay, req.BenefitsInKind, code,
		req.TaxableSalaryYtd, req.TaxPaidYtd, req.TaxUnpaidDueToRegulatoryLimit)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("tax", metrics.OutcomeError).Inc()
		h.writeDomainError(w, r, err)
		return
	}
	metrics.CalculationsTotal.WithLabelValues("tax", metrics.OutcomeOK).Inc()

	dto := toTaxResultDTO(result)
	pd := toPayDateDTO(payDate)
	dto.PayDate = &pd
	writeJSON(w, http.StatusOK, dto)
}

// CalculateNi runs the Class 1 NI calculator for one period.
// POST /api/ni/calculate
func (h *Handler) CalculateNi(w http.ResponseWriter, r *http.Request) {
	var req NiCalculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	calc, payDate, category, ok := h.niCalculator(w, r, req)
	if !ok {
		return
	}

	result, err := calc.Calculate(category, req.NicablePay)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("ni", metrics.OutcomeError).Inc()
		h.writeDomainError(w, r, err)
		return
	}
	if req.Class1ABenefits != nil {
		result = result.WithClass1A(calc.Class1A(*req.Class1ABenefits))
	}
	metrics.CalculationsTotal.WithLabelValues("ni", niOutcome(result)).Inc()

	dto := toNiResultDTO(result)
	pd := toPayDateDTO(payDate)
	dto.PayDate = &pd
	writeJSON(w, http.StatusOK, dto)
}

// CalculateNiDirectors runs the director calculation.
// POST /api/ni/directors
func (h *Handler) CalculateNiDirectors(w http.ResponseWriter, r *http.Request) {
	var req NiDirectorsRequest
	if !h.decode(w, r, &req) {
		return
	}

	method, err := ni.ParseDirectorsMethod(req.Method)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	calc, payDate, category, ok := h.niCalculator(w, r, req.NiCalculateRequest)
	if !ok {
		return
	}

	result, err := calc.CalculateDirectors(method, category, req.NicablePay,
		req.EarningsYtd, req.EmployeeNiPaidYtd, req.EmployerNiPaidYtd, req.ProRataFactor)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("ni_director", metrics.OutcomeError).Inc()
		h.writeDomainError(w, r, err)
		return
	}
	if req.Class1ABenefits != nil {
		result = result.WithClass1A(calc.Class1A(*req.Class1ABenefits))
	}
	metrics.CalculationsTotal.WithLabelValues("ni_director", niOutcome(result)).Inc()

	dto := toNiResultDTO(result)
	pd := toPayDateDTO(payDate)
	dto.PayDate = &pd
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) niCalculator(w http.ResponseWriter, r *http.Request, req NiCalculateRequest) (*ni.Calculator, generic.PayDate, ni.NiCategory, bool) {
	payDate, err := req.payDate()
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.PayDate{}, "", false
	}
	category, err := ni.ParseNiCategory(req.Category)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.PayDate{}, "", false
	}

	var opts []factory.NiOption
	if req.PeriodSpan > 0 {
		opts = append(opts, factory.WithPeriodSpan(req.PeriodSpan))
	}
	if req.ExtraPeriod {
		opts = append(opts, factory.WithExtraPeriod(true))
	}

	calc, err := h.niFactory.GetCalculator(payDate, opts...)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.PayDate{}, "", false
	}
	return calc, payDate, category, true
}

func niOutcome(r ni.NiCalculationResult) string {
	if r.NoRecordingRequired() {
		return metrics.OutcomeNoRecordingRequired
	}
	return metrics.OutcomeOK
}

// =============================================================================
// PAYRUN HANDLERS
// =============================================================================

// RunPayrun calculates the period and commits it.
// POST /api/payruns
func (h *Handler) RunPayrun(w http.ResponseWriter, r *http.Request) {
	h.payrun(w, r, true)
}

// PreviewPayrun calculates the period against stored year to date without
// committing.
// POST /api/payruns/preview
func (h *Handler) PreviewPayrun(w http.ResponseWriter, r *http.Request) {
	h.payrun(w, r, false)
}

func (h *Handler) payrun(w http.ResponseWriter, r *http.Request, commit bool) {
	var req PayrunRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var result payrun.Result
	if commit {
		result, err = h.processor.Run(r.Context(), in)
	} else {
		result, err = h.processor.Preview(r.Context(), in)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if commit {
		status = http.StatusCreated
	}
	writeJSON(w, status, PayrunResponse{
		Payrun:    toPayrunDTO(result.Record),
		Tax:       toTaxResultDTO(result.Tax),
		Ni:        toNiResultDTO(result.Ni),
		Ytd:       toYtdDTO(result.Snapshot),
		Committed: commit,
	})
}

// GetYtd returns the employee's year-to-date position.
// GET /api/employees/{id}/ytd?tax_year=2025
func (h *Handler) GetYtd(w http.ResponseWriter, r *http.Request) {
	employeeID, taxYear, ok := h.employeeYear(w, r)
	if !ok {
		return
	}

	snap, err := h.processor.Snapshot(r.Context(), employeeID, taxYear)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toYtdDTO(snap))
}

// ListPayruns returns the employee's committed payruns for the tax year.
// GET /api/employees/{id}/payruns?tax_year=2025
func (h *Handler) ListPayruns(w http.ResponseWriter, r *http.Request) {
	employeeID, taxYear, ok := h.employeeYear(w, r)
	if !ok {
		return
	}

	records, err := h.processor.Payruns(r.Context(), employeeID, taxYear)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]PayrunDTO, len(records))
	for i, rec := range records {
		dtos[i] = toPayrunDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) employeeYear(w http.ResponseWriter, r *http.Request) (generic.EmployeeID, generic.TaxYear, bool) {
	employeeID := generic.EmployeeID(chi.URLParam(r, "id"))

	taxYear := generic.TaxYearFor(h.now())
	if q := r.URL.Query().Get("tax_year"); q != "" {
		ty, err := generic.ParseTaxYear(q)
		if err != nil {
			h.writeDomainError(w, r, err)
			return "", 0, false
		}
		taxYear = ty
	}
	return employeeID, taxYear, true
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func (req PeriodRequest) payDate() (generic.PayDate, error) {
	date, err := time.Parse(time.DateOnly, req.PaymentDate)
	if err != nil {
		return generic.PayDate{}, &generic.ArgumentError{Arg: "payment_date", Reason: "expected YYYY-MM-DD"}
	}
	freq, err := generic.ParsePayFrequency(req.Frequency)
	if err != nil {
		return generic.PayDate{}, err
	}
	if req.PeriodSpan < 0 {
		return generic.PayDate{}, &generic.ArgumentError{Arg: "period_span", Reason: "must not be negative"}
	}
	return generic.NewPayDate(date, freq)
}

func (req PayrunRequest) toInput() (payrun.Input, error) {
	// payDate validates the period fields; the processor derives its own.
	payDate, err := req.payDate()
	if err != nil {
		return payrun.Input{}, err
	}
	code, err := tax.ParseTaxCode(req.TaxCode)
	if err != nil {
		return payrun.Input{}, err
	}
	category, err := ni.ParseNiCategory(req.NiCategory)
	if err != nil {
		return payrun.Input{}, err
	}

	in := payrun.Input{
		EmployeeID:      generic.EmployeeID(req.EmployeeID),
		IdempotencyKey:  req.IdempotencyKey,
		PaymentDate:     payDate.Date,
		Frequency:       payDate.Frequency,
		PeriodSpan:      req.PeriodSpan,
		ExtraPeriod:     req.ExtraPeriod,
		TaxCode:         code,
		TaxablePay:      req.TaxablePay,
		BenefitsInKind:  req.BenefitsInKind,
		NiCategory:      category,
		NicablePay:      req.NicablePay,
		Class1ABenefits: req.Class1ABenefits,
	}

	if req.Director != nil {
		method, err := ni.ParseDirectorsMethod(req.Director.Method)
		if err != nil {
			return payrun.Input{}, err
		}
		in.Director = &payrun.Director{Method: method, ProRataFactor: req.Director.ProRataFactor}
	}
	return in, nil
}

// decode reads the JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.logger.Warn("invalid request body",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// =============================================================================
// RESPONSES
// =============================================================================

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsInvalidReferenceData(err):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
	writeError(w, status, http.StatusText(status), err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
