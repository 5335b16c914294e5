package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/calculator-hub/internal/config"
	"github.com/iwvelando/calculator-hub/internal/exchange"
	"github.com/iwvelando/calculator-hub/internal/webhook"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubProvider struct {
	rates map[string]decimal.Decimal
	err   error
}

func (p stubProvider) Latest(_ context.Context, base string) (exchange.Rates, error) {
	if p.err != nil {
		return exchange.Rates{}, p.err
	}
	return exchange.Rates{Base: base, Rates: p.rates, Timestamp: 1700000000, Source: "test"}, nil
}

func newTestHandler(t *testing.T, yamlConfig string, mutate func(*Dependencies)) http.Handler {
	t.Helper()
	cfg, err := config.LoadConfigurationFromReader(strings.NewReader(yamlConfig))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	deps := Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Exchange: exchange.NewService(stubProvider{rates: map[string]decimal.Decimal{"EUR": decimal.RequireFromString("0.92")}}, nil),
		Version:  "1.2.3",
	}
	if mutate != nil {
		mutate(&deps)
	}
	h, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return h
}

func do(h http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) testEnvelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	if env.Error.Code != code || env.Error.Status != status {
		t.Fatalf("expected %s/%d, got %s/%d", code, status, env.Error.Code, env.Error.Status)
	}
	return env
}

const mortgageBody = `{"principal":200000,"interestRate":6,"loanTerm":30,"downPayment":40000,"propertyTax":2400,"insurance":1200}`

func TestMortgageSuccess(t *testing.T) {
	h := newTestHandler(t, "", nil)
	rr := do(h, http.MethodPost, "/en/api/mortgage", mortgageBody, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr)
	var resp mortgageResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("failed to decode mortgage data: %v", err)
	}

	if len(resp.Result.Schedule) != 360 {
		t.Fatalf("expected 360 schedule entries, got %d", len(resp.Result.Schedule))
	}
	if math.Abs(resp.Result.MonthlyPrincipalAndInterest-959.28) > 0.01 {
		t.Errorf("expected P&I of 959.28, got %.4f", resp.Result.MonthlyPrincipalAndInterest)
	}
	if resp.Summary.MonthlyPayment != "$1,259.28" {
		t.Errorf("expected formatted monthly payment $1,259.28, got %q", resp.Summary.MonthlyPayment)
	}
	if resp.Summary.PaymentCount != "360 monthly payments" {
		t.Errorf("unexpected payment count label %q", resp.Summary.PaymentCount)
	}
	if len(resp.Chart) != 360 || len(resp.Yearly) != 30 {
		t.Errorf("expected 360 chart points and 30 years, got %d and %d", len(resp.Chart), len(resp.Yearly))
	}
	if rr.Header().Get("X-RateLimit-Limit") != "60" {
		t.Errorf("expected calculator rate limit header, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMortgageLocalizedSummary(t *testing.T) {
	h := newTestHandler(t, "", nil)
	rr := do(h, http.MethodPost, "/de/api/mortgage?currency=eur", mortgageBody, nil)
	env := decodeEnvelope(t, rr)
	var resp mortgageResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("failed to decode mortgage data: %v", err)
	}
	if resp.Summary.MonthlyPayment != "1.259,28 €" {
		t.Errorf("expected German formatting, got %q", resp.Summary.MonthlyPayment)
	}
	if resp.Summary.Labels["monthlyPayment"] != "Monatliche Rate" {
		t.Errorf("expected German label, got %q", resp.Summary.Labels["monthlyPayment"])
	}
}

func TestMortgageValidation(t *testing.T) {
	h := newTestHandler(t, "", nil)

	tests := []struct {
		name    string
		path    string
		body    string
		field   string
		message string
	}{
		{
			name:    "term below range",
			path:    "/en/api/mortgage",
			body:    `{"principal":200000,"interestRate":6,"loanTerm":0,"downPayment":0}`,
			field:   "loanTerm",
			message: "Loan term is out of range",
		},
		{
			name:    "term above maximum",
			path:    "/en/api/mortgage",
			body:    fmt.Sprintf(`{"principal":200000,"interestRate":6,"loanTerm":%d,"downPayment":0}`, constants.MaxTermYears+1),
			field:   "loanTerm",
			message: "Loan term is out of range",
		},
		{
			name:    "term too large to schedule",
			path:    "/en/api/mortgage",
			body:    `{"principal":200000,"interestRate":6,"loanTerm":1000000000,"downPayment":0}`,
			field:   "loanTerm",
			message: "Loan term is out of range",
		},
		{
			name:    "missing principal",
			path:    "/en/api/mortgage",
			body:    `{"interestRate":6,"loanTerm":30,"downPayment":0}`,
			field:   "principal",
			message: "Home price must be greater than zero",
		},
		{
			name:    "rate above range",
			path:    "/es/api/mortgage",
			body:    `{"principal":200000,"interestRate":101,"loanTerm":30,"downPayment":0}`,
			field:   "interestRate",
			message: "Tasa de interés está fuera de rango",
		},
		{
			name:    "down payment above principal",
			path:    "/de/api/mortgage",
			body:    `{"principal":200000,"interestRate":6,"loanTerm":30,"downPayment":250000}`,
			field:   "downPayment",
			message: "Anzahlung darf den Kaufpreis nicht übersteigen",
		},
		{
			name:    "negative tax",
			path:    "/en/api/mortgage",
			body:    `{"principal":200000,"interestRate":6,"loanTerm":30,"downPayment":0,"propertyTax":-1}`,
			field:   "propertyTax",
			message: "Property tax cannot be negative",
		},
		{
			name:    "unknown export format",
			path:    "/en/api/mortgage?format=docx",
			body:    mortgageBody,
			field:   "format",
			message: "Format is not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, http.MethodPost, tt.path, tt.body, nil)
			env := expectError(t, rr, http.StatusBadRequest, codeValidation)
			if env.Error.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, env.Error.Field)
			}
			if env.Error.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, env.Error.Message)
			}
		})
	}
}

func TestMortgageDownloads(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodPost, "/en/api/mortgage?format=csv", mortgageBody, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "amortization-schedule.csv") {
		t.Errorf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 361 {
		t.Fatalf("expected header plus 360 rows, got %d lines", len(lines))
	}
	if lines[0] != `"month","payment","principal","interest","balance","currency"` {
		t.Errorf("unexpected CSV header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], `,"USD"`) {
		t.Errorf("CSV rows should default to USD: %q", lines[1])
	}

	rr = do(h, http.MethodPost, "/en/api/mortgage?format=pdf", mortgageBody, nil)
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected a PDF download, got %d", rr.Code)
	}

	rr = do(h, http.MethodPost, "/en/api/mortgage?format=xlsx", mortgageBody, nil)
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected an xlsx download, got %d", rr.Code)
	}
}

func TestMortgageDownloadsUseCurrency(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodPost, "/de/api/mortgage?format=pretty&currency=EUR", mortgageBody, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	text := rr.Body.String()
	if !strings.Contains(text, "Loan amount:        160.000,00 €") {
		t.Errorf("pretty download not rendered in euros:\n%s", text[:min(len(text), 400)])
	}
	if !strings.Contains(text, "Escrow:             300,00 €") {
		t.Errorf("pretty download missing escrow")
	}
	if strings.Contains(text, "$") {
		t.Errorf("pretty download printed a dollar sign for EUR")
	}

	rr = do(h, http.MethodPost, "/en/api/mortgage?format=csv&currency=JPY", mortgageBody, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if !strings.HasPrefix(lines[1], `"1","959","159","800",`) || !strings.HasSuffix(lines[1], `,"JPY"`) {
		t.Errorf("unexpected JPY row %q", lines[1])
	}
}

func TestRequestErrors(t *testing.T) {
	h := newTestHandler(t, "server:\n  maxBodySize: 1K\n", nil)

	rr := do(h, http.MethodPost, "/pt/api/mortgage", mortgageBody, nil)
	env := expectError(t, rr, http.StatusNotFound, codeUnsupportedLocale)
	if env.Error.Message != "Unsupported locale" {
		t.Errorf("unexpected message %q", env.Error.Message)
	}

	rr = do(h, http.MethodPost, "/en/api/mortgage", `{"principal":`, nil)
	expectError(t, rr, http.StatusBadRequest, codeInvalidRequest)

	large := `{"principal":200000,"padding":"` + strings.Repeat("x", 2048) + `"}`
	rr = do(h, http.MethodPost, "/en/api/mortgage", large, nil)
	expectError(t, rr, http.StatusRequestEntityTooLarge, codePayloadTooLarge)

	rr = do(h, http.MethodGet, "/en/api/mortgage", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
}

func TestBMI(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodPost, "/en/api/bmi", `{"height":180,"weight":75,"age":30,"gender":"male","unit":"metric"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp bmiResponse
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &resp); err != nil {
		t.Fatalf("failed to decode bmi data: %v", err)
	}
	if resp.Formatted["bmi"] != "23.1" {
		t.Errorf("expected BMI 23.1, got %q", resp.Formatted["bmi"])
	}
	if resp.CategoryLabel != "Normal weight" {
		t.Errorf("unexpected category label %q", resp.CategoryLabel)
	}
	if len(resp.Recommendations) != 6 || resp.Recommendations[0] != "Keep up your current healthy habits" {
		t.Errorf("unexpected recommendations %v", resp.Recommendations)
	}

	rr = do(h, http.MethodPost, "/fr/api/bmi", `{"height":180,"weight":75,"age":30,"gender":"other","unit":"metric"}`, nil)
	env := expectError(t, rr, http.StatusBadRequest, codeValidation)
	if env.Error.Field != "gender" || env.Error.Message != "Sexe n'est pas pris en charge" {
		t.Errorf("unexpected error %+v", env.Error)
	}
}

func TestUnits(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodPost, "/en/api/units", `{"value":1.5,"from":"kilometer","to":"meter","category":"length"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var conv conversionResponse
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &conv); err != nil {
		t.Fatalf("failed to decode conversion: %v", err)
	}
	if conv.Result != 1500 || conv.Formatted != "1,500.0000" {
		t.Errorf("unexpected conversion %+v", conv)
	}

	rr = do(h, http.MethodPost, "/en/api/units", `{"value":1,"from":"furlong","to":"meter","category":"length"}`, nil)
	env := expectError(t, rr, http.StatusBadRequest, codeValidation)
	if env.Error.Field != "from" {
		t.Errorf("expected field from, got %q", env.Error.Field)
	}

	rr = do(h, http.MethodPost, "/en/api/units", `{"value":1,"from":"meter","to":"meter","category":"time"}`, nil)
	env = expectError(t, rr, http.StatusBadRequest, codeValidation)
	if env.Error.Field != "category" {
		t.Errorf("expected field category, got %q", env.Error.Field)
	}

	rr = do(h, http.MethodGet, "/es/api/units", "", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("X-Cache") != "miss" {
		t.Fatalf("expected cache miss, got %d %q", rr.Code, rr.Header().Get("X-Cache"))
	}
	if !strings.Contains(rr.Body.String(), `"Longitud"`) {
		t.Errorf("expected Spanish category names: %s", rr.Body.String())
	}
	rr = do(h, http.MethodGet, "/es/api/units", "", nil)
	if rr.Header().Get("X-Cache") != "fresh" {
		t.Errorf("expected cached catalog, got %q", rr.Header().Get("X-Cache"))
	}

	rr = do(h, http.MethodGet, "/en/api/units?category=temperature", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"kelvin"`) {
		t.Errorf("expected temperature units: %s", rr.Body.String())
	}
}

func TestCurrencies(t *testing.T) {
	h := newTestHandler(t, "", nil)
	rr := do(h, http.MethodGet, "/en/api/currencies", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"id":"USD"`) {
		t.Fatalf("expected currency catalog, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestExchange(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodGet, "/en/api/exchange?from=usd&to=EUR", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rate rateResponse
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &rate); err != nil {
		t.Fatalf("failed to decode rate: %v", err)
	}
	if rate.Rate != 0.92 || rate.Source != "test" || rate.Timestamp != 1700000000 {
		t.Errorf("unexpected rate %+v", rate)
	}

	expectError(t, do(h, http.MethodGet, "/en/api/exchange?from=USD", "", nil), http.StatusBadRequest, codeInvalidParameters)
	expectError(t, do(h, http.MethodGet, "/en/api/exchange?from=USD&to=GBP", "", nil), http.StatusNotFound, codeRateNotFound)

	failing := newTestHandler(t, "", func(d *Dependencies) {
		d.Exchange = exchange.NewService(stubProvider{err: errors.New("upstream down")}, nil)
	})
	expectError(t, do(failing, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", nil),
		http.StatusInternalServerError, codeExchangeRateError)
}

func TestConversion(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodPost, "/api/exchange-rates", `{"amount":100,"fromCurrency":"USD","toCurrency":"EUR"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp convertedResponse
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &resp); err != nil {
		t.Fatalf("failed to decode conversion: %v", err)
	}
	if resp.ConvertedAmount != 92 || resp.Rate != 0.92 {
		t.Errorf("unexpected conversion %+v", resp)
	}

	expectError(t, do(h, http.MethodPost, "/api/exchange-rates", `{"fromCurrency":"USD","toCurrency":"EUR"}`, nil),
		http.StatusBadRequest, codeInvalidParameters)
	env := expectError(t, do(h, http.MethodPost, "/api/exchange-rates", `{"amount":-5,"fromCurrency":"USD","toCurrency":"EUR"}`, nil),
		http.StatusBadRequest, codeValidation)
	if env.Error.Field != "amount" {
		t.Errorf("expected amount field, got %q", env.Error.Field)
	}

	tests := []struct {
		body    string
		lang    string
		field   string
		message string
	}{
		{`{"amount":5,"fromCurrency":"XXX","toCurrency":"EUR"}`, "en", "fromCurrency", "From currency is not supported"},
		{`{"amount":5,"fromCurrency":"USD","toCurrency":"XXX"}`, "en", "toCurrency", "To currency is not supported"},
		{`{"amount":5,"fromCurrency":"USD","toCurrency":"USD"}`, "de", "toCurrency", "Zielwährung muss sich unterscheiden"},
		{`{"amount":5,"fromCurrency":"XXX","toCurrency":"EUR"}`, "fr", "fromCurrency", "Devise source n'est pas pris en charge"},
	}
	for _, tt := range tests {
		rr := do(h, http.MethodPost, "/api/exchange-rates", tt.body, map[string]string{"Accept-Language": tt.lang})
		env := expectError(t, rr, http.StatusBadRequest, codeValidation)
		if env.Error.Field != tt.field {
			t.Errorf("%s: expected field %q, got %q", tt.body, tt.field, env.Error.Field)
		}
		if env.Error.Message != tt.message {
			t.Errorf("%s: expected message %q, got %q", tt.body, tt.message, env.Error.Message)
		}
	}
}

func TestAnalytics(t *testing.T) {
	h := newTestHandler(t, "analytics:\n  enabled: true\n", nil)

	rr := do(h, http.MethodPost, "/en/api/analytics", `{"type":"calculator_used","category":"mortgage","action":"calculate"}`,
		map[string]string{"X-Client-ID": "abc"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"forwarded":true`) {
		t.Fatalf("expected forwarded event, got %d: %s", rr.Code, rr.Body.String())
	}

	expectError(t, do(h, http.MethodPost, "/en/api/analytics", `{"type":"calculator_used"}`, nil),
		http.StatusBadRequest, codeInvalidEvent)

	disabled := newTestHandler(t, "", nil)
	rr = do(disabled, http.MethodPost, "/en/api/analytics", `{}`, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"forwarded":false`) {
		t.Fatalf("expected accepted no-op, got %d: %s", rr.Code, rr.Body.String())
	}
}

func signedHeaders(secret, webhookType string, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return map[string]string{
		webhook.HeaderType:      webhookType,
		webhook.HeaderTimestamp: ts,
		webhook.HeaderSignature: webhook.NewVerifier(secret, 0).Sign(ts, []byte(body)),
	}
}

func TestWebhooks(t *testing.T) {
	h := newTestHandler(t, "webhook:\n  secret: hook-secret\n", nil)
	body := `{"base":"USD"}`

	rr := do(h, http.MethodPost, "/en/api/webhooks", body, signedHeaders("hook-secret", webhook.TypeExchangeRateUpdate, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	expectError(t, do(h, http.MethodPost, "/en/api/webhooks", body, signedHeaders("wrong", webhook.TypeExchangeRateUpdate, body)),
		http.StatusUnauthorized, codeInvalidSignature)
	expectError(t, do(h, http.MethodPost, "/en/api/webhooks", body, signedHeaders("hook-secret", "user_signup", body)),
		http.StatusBadRequest, codeUnknownWebhook)

	broken := `{"base":`
	expectError(t, do(h, http.MethodPost, "/en/api/webhooks", broken, signedHeaders("hook-secret", webhook.TypeExchangeRateUpdate, broken)),
		http.StatusInternalServerError, codeWebhookError)

	unsigned := newTestHandler(t, "", nil)
	expectError(t, do(unsigned, http.MethodPost, "/en/api/webhooks", body, signedHeaders("", webhook.TypeExchangeRateUpdate, body)),
		http.StatusUnauthorized, codeInvalidSignature)
}

func TestRateLimiting(t *testing.T) {
	h := newTestHandler(t, "rateLimits:\n  EXCHANGE_API:\n    limit: 2\n    interval: 1m\n", nil)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}

	for i := 0; i < 2; i++ {
		rr := do(h, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", headers)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
	rr := do(h, http.MethodGet, "/fr/api/exchange?from=USD&to=EUR", "", headers)
	env := expectError(t, rr, http.StatusTooManyRequests, codeRateLimited)
	if env.Error.Message != "Trop de requêtes, veuillez réessayer plus tard" {
		t.Errorf("expected French message, got %q", env.Error.Message)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" || rr.Header().Get("Retry-After") == "" {
		t.Errorf("expected rate limit headers, got %v", rr.Header())
	}

	other := do(h, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", map[string]string{"X-Forwarded-For": "198.51.100.1"})
	if other.Code != http.StatusOK {
		t.Errorf("expected other clients to be unaffected, got %d", other.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	h := newTestHandler(t, "admin:\n  apiKey: admin-key\nrateLimits:\n  EXCHANGE_API:\n    limit: 1\n    interval: 1m\n", nil)
	admin := map[string]string{"X-API-Key": "admin-key"}

	expectError(t, do(h, http.MethodPost, "/api/admin/cache/clear", "", nil), http.StatusUnauthorized, codeUnauthorized)
	expectError(t, do(h, http.MethodPost, "/api/admin/cache/clear", "", map[string]string{"X-API-Key": "nope"}),
		http.StatusUnauthorized, codeUnauthorized)

	do(h, http.MethodGet, "/en/api/currencies", "", nil)
	rr := do(h, http.MethodPost, "/api/admin/cache/clear", `{"tags":["currencies"]}`, admin)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"cleared":1`) {
		t.Fatalf("expected one cleared entry, got %d: %s", rr.Code, rr.Body.String())
	}

	client := map[string]string{"X-Forwarded-For": "192.0.2.10"}
	do(h, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", client)
	expectError(t, do(h, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", client), http.StatusTooManyRequests, codeRateLimited)

	expectError(t, do(h, http.MethodPost, "/api/admin/ratelimit/reset", `{}`, admin), http.StatusBadRequest, codeValidation)
	rr = do(h, http.MethodPost, "/api/admin/ratelimit/reset", `{"ip":"192.0.2.10"}`, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected reset to succeed, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := do(h, http.MethodGet, "/en/api/exchange?from=USD&to=EUR", "", client); rr.Code != http.StatusOK {
		t.Errorf("expected limit to be reset, got %d", rr.Code)
	}

	unset := newTestHandler(t, "", nil)
	expectError(t, do(unset, http.MethodPost, "/api/admin/cache/clear", "", map[string]string{"X-API-Key": ""}),
		http.StatusUnauthorized, codeUnauthorized)
}

func TestHealthVersionAndMetrics(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"healthy"`) {
		t.Fatalf("expected healthy, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodGet, "/api/version", "", nil)
	var version map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &version); err != nil || version["version"] != "1.2.3" {
		t.Fatalf("unexpected version response %q", rr.Body.String())
	}

	do(h, http.MethodPost, "/en/api/mortgage", mortgageBody, nil)
	rr = do(h, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rr.Body.String(), `calculator_hub_calculations_total{calculator="mortgage",outcome="ok"} 1`) {
		t.Errorf("expected mortgage calculation metric")
	}
	if !strings.Contains(rr.Body.String(), `route="POST /{locale}/api/mortgage"`) {
		t.Errorf("expected request metrics by route pattern")
	}
}

func TestCommonHeaders(t *testing.T) {
	h := newTestHandler(t, "", nil)

	rr := do(h, http.MethodGet, "/api/version", "", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected permissive CORS by default, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	id := "5f2b8f0e-8e7a-4c7e-9a53-0c2f8d1b2a11"
	rr = do(h, http.MethodGet, "/api/version", "", map[string]string{"X-Request-ID": id})
	if rr.Header().Get("X-Request-ID") != id {
		t.Errorf("expected request id to be echoed, got %q", rr.Header().Get("X-Request-ID"))
	}

	restricted := newTestHandler(t, "server:\n  allowedOrigins: [\"https://calc.example\"]\n", nil)
	rr = do(restricted, http.MethodOptions, "/en/api/mortgage", "", map[string]string{"Origin": "https://calc.example"})
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://calc.example" {
		t.Errorf("expected preflight to allow the configured origin, got %d %q", rr.Code, rr.Header().Get("Access-Control-Allow-Origin"))
	}
	rr = do(restricted, http.MethodGet, "/api/version", "", map[string]string{"Origin": "https://evil.example"})
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("expected no CORS header for unknown origin")
	}
}

func TestRecoverer(t *testing.T) {
	cfg, err := config.LoadConfigurationFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	h, err := newHandler(Dependencies{Config: cfg})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	panicky := h.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	panicky.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	expectError(t, rr, http.StatusInternalServerError, codeInternal)
}
