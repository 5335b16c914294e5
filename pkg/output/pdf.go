package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/calculator-hub/pkg/mortgage"
	"github.com/jung-kurt/gofpdf"
)

// PDF writes a printable breakdown: summary figures followed by the schedule table.
func PDF(w io.Writer, result mortgage.AmortizationResult, m Money) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; symbols such as € need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	render := m.formatter()
	money := func(v float64) string { return tr(render(v)) }
	pdf.SetTitle("Mortgage amortization schedule", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(40, 10, "Mortgage Breakdown")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	summary := []struct {
		label string
		value float64
	}{
		{"Loan amount", result.LoanAmount},
		{"Monthly payment", result.MonthlyPayment},
		{"Principal and interest", result.MonthlyPrincipalAndInterest},
		{"Escrow", result.MonthlyEscrow},
		{"Total payment", result.TotalPayment},
		{"Total interest", result.TotalInterest},
	}
	for _, line := range summary {
		pdf.Cell(60, 8, line.label+": "+money(line.value))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(20, 7, "Month", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Payment", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Principal", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Interest", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Balance", "1", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, entry := range result.Schedule {
		pdf.CellFormat(20, 6, strconv.Itoa(entry.Month), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, money(entry.Payment), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(entry.PrincipalPortion), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(entry.InterestPortion), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(entry.RemainingBalance), "1", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
