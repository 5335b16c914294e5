// Package output provides utilities for formatting and displaying amortization schedules.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/calculator-hub/pkg/format"
	"github.com/iwvelando/calculator-hub/pkg/mortgage"
)

// Money selects the locale and currency the renderers print amounts in.
type Money struct {
	Locale string
	Code   string
	Symbol string
}

// USD prints amounts as US dollars for an English reader.
var USD = Money{Locale: "en", Code: "USD", Symbol: "$"}

func (m Money) formatter() func(float64) string {
	f := format.NewLocalized(m.Locale)
	return func(v float64) string { return f.Currency(v, m.Code, m.Symbol) }
}

// plain formats v with the currency's fraction digits and no grouping.
func (m Money) plain(v float64) string {
	return strconv.FormatFloat(v, 'f', format.FractionDigits(m.Code), 64)
}

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, result mortgage.AmortizationResult, m Money) {
	money := m.formatter()
	fmt.Fprintf(w, "--- Amortization summary ---\n")
	fmt.Fprintf(w, "Loan amount:        %s\n", money(result.LoanAmount))
	fmt.Fprintf(w, "Principal+interest: %s\n", money(result.MonthlyPrincipalAndInterest))
	fmt.Fprintf(w, "Escrow:             %s\n", money(result.MonthlyEscrow))
	fmt.Fprintf(w, "Monthly payment:    %s\n", money(result.MonthlyPayment))
	fmt.Fprintf(w, "Total payment:      %s\n", money(result.TotalPayment))
	fmt.Fprintf(w, "Total interest:     %s\n", money(result.TotalInterest))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Month | Payment    | Principal  | Interest   | Balance\n")
	fmt.Fprintf(w, "_____ | __________ | __________ | __________ | _______\n")
	for _, entry := range result.Schedule {
		fmt.Fprintf(w, "%5d | %s | %s | %s | %s\n",
			entry.Month, money(entry.Payment), money(entry.PrincipalPortion),
			money(entry.InterestPortion), money(entry.RemainingBalance))
	}
}

// CsvFormat writes the schedule in comma-separated value format. Amounts carry
// the currency's fraction digits and each row names the currency.
func CsvFormat(w io.Writer, result mortgage.AmortizationResult, m Money) {
	fmt.Fprintf(w, `"month","payment","principal","interest","balance","currency"`)
	fmt.Fprintf(w, "\n")
	for _, entry := range result.Schedule {
		fmt.Fprintf(w, `"%d","%s","%s","%s","%s","%s"`,
			entry.Month, m.plain(entry.Payment), m.plain(entry.PrincipalPortion),
			m.plain(entry.InterestPortion), m.plain(entry.RemainingBalance), m.Code)
		fmt.Fprintf(w, "\n")
	}
}

// JSON writes the full result as indented JSON.
func JSON(w io.Writer, result mortgage.AmortizationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	return nil
}
