// Package testutil provides common utility functions for testing.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/iwvelando/calculator-hub/pkg/mortgage"
	"github.com/shopspring/decimal"
)

// FindPayment finds the schedule entry for month.
// Returns a pointer to the entry if found, nil otherwise.
func FindPayment(result mortgage.AmortizationResult, month int) *mortgage.AmortizationEntry {
	for i := range result.Schedule {
		if result.Schedule[i].Month == month {
			return &result.Schedule[i]
		}
	}
	return nil
}

// RatesServer is a fake exchange-rate upstream. It serves latest rates at
// /latest/{BASE} and pair conversions at /v6/{key}/pair/{from}/{to}/{amount}.
type RatesServer struct {
	*httptest.Server

	mu        sync.Mutex
	rates     map[string]map[string]string
	timestamp int64
	hits      map[string]int
}

// NewRatesServer starts a fake upstream quoting rates per base currency.
func NewRatesServer(rates map[string]map[string]string, timestamp int64) *RatesServer {
	s := &RatesServer{rates: rates, timestamp: timestamp, hits: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /latest/{base}", s.latest)
	mux.HandleFunc("GET /v6/{key}/pair/{from}/{to}/{amount}", s.pair)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetRate changes the quote for base/quote.
func (s *RatesServer) SetRate(base, quote, rate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates[base] == nil {
		s.rates[base] = make(map[string]string)
	}
	s.rates[base][quote] = rate
	s.timestamp++
}

// Hits returns how many times path was requested.
func (s *RatesServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *RatesServer) latest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	base := strings.ToUpper(r.PathValue("base"))
	quotes, ok := s.rates[base]
	payload := map[string]interface{}{
		"base":      base,
		"rates":     quotes,
		"timestamp": s.timestamp,
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown base", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *RatesServer) pair(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	from, to := r.PathValue("from"), r.PathValue("to")
	quote, ok := s.rates[from][to]
	ts := s.timestamp
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	amount, err := decimal.NewFromString(r.PathValue("amount"))
	if !ok || err != nil {
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "error", "error-type": "unsupported-code"})
		return
	}
	rate := decimal.RequireFromString(quote)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"result":                "success",
		"conversion_rate":       rate,
		"conversion_result":     amount.Mul(rate),
		"time_last_update_unix": ts,
	})
}
