package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/calculator-hub/pkg/format"
	"github.com/iwvelando/calculator-hub/pkg/mortgage"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	scheduleSheet = "Schedule"
)

var scheduleHeaders = []string{"Month", "Payment", "Principal", "Interest", "Balance"}

// XLSX writes a workbook with a Summary sheet and a month-by-month Schedule sheet.
func XLSX(w io.Writer, result mortgage.AmortizationResult, m Money) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Loan amount", result.LoanAmount},
		{"Monthly principal and interest", result.MonthlyPrincipalAndInterest},
		{"Monthly escrow", result.MonthlyEscrow},
		{"Monthly payment", result.MonthlyPayment},
		{"Total payment", result.TotalPayment},
		{"Total interest", result.TotalInterest},
		{"Payments", result.PaymentCount},
		{"Currency", m.Code},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if _, err := f.NewSheet(scheduleSheet); err != nil {
		return fmt.Errorf("failed to create schedule sheet: %w", err)
	}
	for i, header := range scheduleHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(scheduleSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	numFmt := 4 // #,##0.00
	if format.FractionDigits(m.Code) == 0 {
		numFmt = 3 // #,##0
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	for i, entry := range result.Schedule {
		row := []interface{}{entry.Month, entry.Payment, entry.PrincipalPortion, entry.InterestPortion, entry.RemainingBalance}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(scheduleSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write schedule row %d: %w", entry.Month, err)
		}
	}
	if len(result.Schedule) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(scheduleHeaders), len(result.Schedule)+1)
		if err := f.SetCellStyle(scheduleSheet, "B2", last, moneyStyle); err != nil {
			return fmt.Errorf("failed to style schedule: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
