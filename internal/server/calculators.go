package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iwvelando/calculator-hub/internal/metrics"
	"github.com/iwvelando/calculator-hub/pkg/bmi"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/iwvelando/calculator-hub/pkg/format"
	"github.com/iwvelando/calculator-hub/pkg/mortgage"
	"github.com/iwvelando/calculator-hub/pkg/output"
	"github.com/iwvelando/calculator-hub/pkg/units"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"go.uber.org/zap"
)

// mortgageForm is the mortgage calculator form as posted by the page. The
// upper term bound is constants.MaxTermYears, checked by mortgage.Compute.
type mortgageForm struct {
	Principal    float64  `json:"principal" validate:"gt=0,lte=999999999.99"`
	InterestRate float64  `json:"interestRate" validate:"gte=0,lte=100"`
	LoanTerm     int      `json:"loanTerm" validate:"gte=1"`
	DownPayment  float64  `json:"downPayment" validate:"gte=0"`
	PropertyTax  *float64 `json:"propertyTax,omitempty" validate:"omitempty,gte=0"`
	Insurance    *float64 `json:"insurance,omitempty" validate:"omitempty,gte=0"`
}

func (f mortgageForm) loanRequest() mortgage.LoanRequest {
	req := mortgage.LoanRequest{
		Principal:                 f.Principal,
		AnnualInterestRatePercent: f.InterestRate,
		TermYears:                 f.LoanTerm,
		DownPayment:               f.DownPayment,
	}
	if f.PropertyTax != nil {
		req.AnnualPropertyTax = *f.PropertyTax
	}
	if f.Insurance != nil {
		req.AnnualInsurance = *f.Insurance
	}
	return req
}

// formFields maps engine field names to the form's.
var formFields = map[string]string{
	mortgage.FieldAnnualInterestRatePercent: "interestRate",
	mortgage.FieldTermYears:                 "loanTerm",
	mortgage.FieldAnnualPropertyTax:         "propertyTax",
	mortgage.FieldAnnualInsurance:           "insurance",
}

// renameField reports verr under the caller-facing field name when fields
// has one.
func renameField(verr *validation.Error, fields map[string]string) *validation.Error {
	if name, ok := fields[verr.Field]; ok {
		return validation.NewError(name, verr.Reason)
	}
	return verr
}

type mortgageSummary struct {
	Currency             string            `json:"currency"`
	LoanAmount           string            `json:"loanAmount"`
	PrincipalAndInterest string            `json:"principalAndInterest"`
	Escrow               string            `json:"escrow"`
	MonthlyPayment       string            `json:"monthlyPayment"`
	TotalPayment         string            `json:"totalPayment"`
	TotalInterest        string            `json:"totalInterest"`
	PaymentCount         string            `json:"paymentCount"`
	Labels               map[string]string `json:"labels"`
}

type mortgageResponse struct {
	Result  mortgage.AmortizationResult `json:"result"`
	Summary mortgageSummary             `json:"summary"`
	Chart   []mortgage.ChartPoint       `json:"chart"`
	Yearly  []mortgage.YearSummary      `json:"yearly"`
}

func (h *handler) handleMortgage(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleMortgage"

	outputFormat := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if outputFormat == "" {
		outputFormat = constants.OutputFormatJSON
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		h.respondInvalid(w, r, validation.NewError("format", validation.ReasonUnsupported))
		return
	}
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if code == "" {
		code = "USD"
	}
	if !currency.IsSupported(code) {
		h.respondInvalid(w, r, validation.NewError("currency", validation.ReasonUnsupported))
		return
	}

	var form mortgageForm
	if err := h.decodeJSON(w, r, &form); err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}
	if err := validation.Struct(form); err != nil {
		h.calculationFailed(w, r, "mortgage", op, err)
		return
	}

	result, err := mortgage.Compute(form.loanRequest())
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			err = renameField(verr, formFields)
		}
		h.calculationFailed(w, r, "mortgage", op, err)
		return
	}
	h.metrics.CountCalculation("mortgage", metrics.OutcomeOK)

	if outputFormat != constants.OutputFormatJSON {
		money := output.Money{Locale: localeFrom(r.Context()), Code: code, Symbol: currency.Symbol(code)}
		h.writeSchedule(w, r, outputFormat, result, money)
		return
	}

	h.respondData(w, mortgageResponse{
		Result:  result,
		Summary: h.summarize(localeFrom(r.Context()), code, result),
		Chart:   result.Chart(),
		Yearly:  result.YearlySummary(),
	})
}

func (h *handler) summarize(locale, code string, result mortgage.AmortizationResult) mortgageSummary {
	f := format.NewLocalized(locale)
	symbol := currency.Symbol(code)
	money := func(v float64) string { return f.Currency(v, code, symbol) }

	return mortgageSummary{
		Currency:             code,
		LoanAmount:           money(result.LoanAmount),
		PrincipalAndInterest: money(result.MonthlyPrincipalAndInterest),
		Escrow:               money(result.MonthlyEscrow),
		MonthlyPayment:       money(result.MonthlyPayment),
		TotalPayment:         money(result.TotalPayment),
		TotalInterest:        money(result.TotalInterest),
		PaymentCount:         h.bundle.T(locale, "mortgage.payment_count", result.PaymentCount),
		Labels: map[string]string{
			"loanAmount":           h.bundle.T(locale, "mortgage.loan_amount"),
			"principalAndInterest": h.bundle.T(locale, "mortgage.principal_and_interest"),
			"escrow":               h.bundle.T(locale, "mortgage.escrow"),
			"monthlyPayment":       h.bundle.T(locale, "mortgage.monthly_payment"),
			"totalPayment":         h.bundle.T(locale, "mortgage.total_payment"),
			"totalInterest":        h.bundle.T(locale, "mortgage.total_interest"),
		},
	}
}

// writeSchedule streams the schedule as a download in outputFormat.
func (h *handler) writeSchedule(w http.ResponseWriter, r *http.Request, outputFormat string, result mortgage.AmortizationResult, money output.Money) {
	var buf bytes.Buffer
	var contentType, ext string
	var err error

	switch outputFormat {
	case constants.OutputFormatCSV:
		output.CsvFormat(&buf, result, money)
		contentType, ext = "text/csv; charset=utf-8", "csv"
	case constants.OutputFormatXLSX:
		err = output.XLSX(&buf, result, money)
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	case constants.OutputFormatPDF:
		err = output.PDF(&buf, result, money)
		contentType, ext = "application/pdf", "pdf"
	default:
		output.PrettyFormat(&buf, result, money)
		contentType, ext = "text/plain; charset=utf-8", "txt"
	}
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, codeInternal, "server.writeSchedule", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="amortization-schedule.%s"`, ext))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write schedule download",
			zap.String("op", "server.writeSchedule"),
			zap.Error(err),
		)
	}
}

// calculationFailed answers a calculator error: 400 for invalid input,
// 500 otherwise.
func (h *handler) calculationFailed(w http.ResponseWriter, r *http.Request, calculator, op string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		h.metrics.CountCalculation(calculator, metrics.OutcomeInvalid)
		h.respondInvalid(w, r, verr)
		return
	}
	h.metrics.CountCalculation(calculator, metrics.OutcomeError)
	h.respondError(w, r, http.StatusInternalServerError, codeInternal, op, err)
}

type bmiResponse struct {
	Result          bmi.Result        `json:"result"`
	CategoryLabel   string            `json:"categoryLabel"`
	Recommendations []string          `json:"recommendations"`
	Formatted       map[string]string `json:"formatted"`
}

func (h *handler) handleBMI(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBMI"

	var in bmi.Input
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}
	result, err := bmi.Calculate(in)
	if err != nil {
		h.calculationFailed(w, r, "bmi", op, err)
		return
	}
	h.metrics.CountCalculation("bmi", metrics.OutcomeOK)

	locale := localeFrom(r.Context())
	f := format.NewLocalized(locale)
	recs := make([]string, 0, len(result.Recommendations))
	for _, key := range result.Recommendations {
		recs = append(recs, h.bundle.T(locale, key))
	}

	h.respondData(w, bmiResponse{
		Result:          result,
		CategoryLabel:   h.bundle.T(locale, "bmi.category."+string(result.Category)),
		Recommendations: recs,
		Formatted: map[string]string{
			"bmi":             f.Number(result.BMI, 1),
			"healthyRangeMin": f.Number(result.HealthyRangeMin, 1) + " kg",
			"healthyRangeMax": f.Number(result.HealthyRangeMax, 1) + " kg",
		},
	})
}

func (h *handler) localizeCategory(locale string, c units.Category) units.Category {
	if key := "units.category." + c.ID; h.bundle.Has(locale, key) {
		c.Name = h.bundle.T(locale, key)
	}
	return c
}

func (h *handler) handleUnitCatalog(w http.ResponseWriter, r *http.Request) {
	locale := localeFrom(r.Context())
	categories := units.Categories()

	if id := strings.TrimSpace(r.URL.Query().Get("category")); id != "" {
		for _, c := range categories {
			if c.ID == id {
				h.respondData(w, h.localizeCategory(locale, c))
				return
			}
		}
		h.respondInvalid(w, r, validation.NewError("category", validation.ReasonUnsupported))
		return
	}

	for i := range categories {
		categories[i] = h.localizeCategory(locale, categories[i])
	}
	h.respondData(w, map[string]interface{}{"categories": categories})
}

type conversionForm struct {
	Value    float64 `json:"value"`
	From     string  `json:"from" validate:"required"`
	To       string  `json:"to" validate:"required"`
	Category string  `json:"category" validate:"required"`
}

type conversionResponse struct {
	Value     float64 `json:"value"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Category  string  `json:"category"`
	Result    float64 `json:"result"`
	Formatted string  `json:"formatted"`
}

func (h *handler) handleUnitConversion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUnitConversion"

	var form conversionForm
	if err := h.decodeJSON(w, r, &form); err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}
	if err := validation.Struct(form); err != nil {
		h.calculationFailed(w, r, "units", op, err)
		return
	}

	result, err := units.Convert(form.Value, form.From, form.To, form.Category)
	if err != nil {
		h.calculationFailed(w, r, "units", op, unitError(form, err))
		return
	}
	h.metrics.CountCalculation("units", metrics.OutcomeOK)

	f := format.NewLocalized(localeFrom(r.Context()))
	h.respondData(w, conversionResponse{
		Value:     form.Value,
		From:      form.From,
		To:        form.To,
		Category:  form.Category,
		Result:    result,
		Formatted: f.Number(result, 4),
	})
}

// unitError turns catalog lookup failures into field errors.
func unitError(form conversionForm, err error) error {
	switch {
	case errors.Is(err, units.ErrUnknownCategory):
		return validation.NewError("category", validation.ReasonUnsupported)
	case errors.Is(err, units.ErrUnknownUnit):
		field := "to"
		if known, _ := units.UnitsFor(form.Category); !containsUnit(known, form.From) {
			field = "from"
		}
		return validation.NewError(field, validation.ReasonUnsupported)
	}
	return err
}

func containsUnit(list []units.Unit, id string) bool {
	for _, u := range list {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (h *handler) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	h.respondData(w, map[string]interface{}{"currencies": currency.Supported()})
}
