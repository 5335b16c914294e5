// Package mortgage computes level-payment amortization schedules for fixed-rate loans.
package mortgage

import (
	"math"

	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/iwvelando/calculator-hub/pkg/mathutil"
	"github.com/iwvelando/calculator-hub/pkg/validation"
)

// Field names reported by validation errors. They match the JSON keys of LoanRequest.
const (
	FieldPrincipal                 = "principal"
	FieldAnnualInterestRatePercent = "annualInterestRatePercent"
	FieldTermYears                 = "termYears"
	FieldDownPayment               = "downPayment"
	FieldAnnualPropertyTax         = "annualPropertyTax"
	FieldAnnualInsurance           = "annualInsurance"
)

// LoanRequest holds the parameters of a single amortization calculation.
// AnnualPropertyTax and AnnualInsurance default to 0 when left unset.
type LoanRequest struct {
	Principal                 float64 `json:"principal"`
	AnnualInterestRatePercent float64 `json:"annualInterestRatePercent"`
	TermYears                 int     `json:"termYears"`
	DownPayment               float64 `json:"downPayment"`
	AnnualPropertyTax         float64 `json:"annualPropertyTax"`
	AnnualInsurance           float64 `json:"annualInsurance"`
}

// AmortizationEntry is one month of the schedule.
type AmortizationEntry struct {
	Month            int     `json:"month"`
	Payment          float64 `json:"payment"`
	PrincipalPortion float64 `json:"principalPortion"`
	InterestPortion  float64 `json:"interestPortion"`
	RemainingBalance float64 `json:"remainingBalance"`
}

// AmortizationResult is the outcome of Compute. MonthlyPayment includes escrow;
// the schedule entries carry principal and interest only.
type AmortizationResult struct {
	LoanAmount                  float64             `json:"loanAmount"`
	MonthlyRate                 float64             `json:"monthlyRate"`
	PaymentCount                int                 `json:"paymentCount"`
	MonthlyPrincipalAndInterest float64             `json:"monthlyPrincipalAndInterest"`
	MonthlyEscrow               float64             `json:"monthlyEscrow"`
	MonthlyPayment              float64             `json:"monthlyPayment"`
	TotalPayment                float64             `json:"totalPayment"`
	TotalInterest               float64             `json:"totalInterest"`
	Schedule                    []AmortizationEntry `json:"schedule"`
}

// Validate checks every precondition of req and returns a *validation.Error
// naming the first offending field.
func (req LoanRequest) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{FieldPrincipal, req.Principal},
		{FieldDownPayment, req.DownPayment},
		{FieldAnnualInterestRatePercent, req.AnnualInterestRatePercent},
		{FieldAnnualPropertyTax, req.AnnualPropertyTax},
		{FieldAnnualInsurance, req.AnnualInsurance},
	}
	for _, c := range checks {
		if !mathutil.IsFinite(c.value) {
			return validation.NewError(c.field, validation.ReasonMustBeFinite)
		}
	}

	if req.Principal <= 0 {
		return validation.NewError(FieldPrincipal, validation.ReasonMustBePositive)
	}
	if req.DownPayment < 0 {
		return validation.NewError(FieldDownPayment, validation.ReasonMustBeNonNegative)
	}
	if req.DownPayment > req.Principal {
		return validation.NewError(FieldDownPayment, validation.ReasonMustNotExceedPrincipal)
	}
	if req.AnnualInterestRatePercent < 0 || req.AnnualInterestRatePercent > constants.MaxInterestRatePercent {
		return validation.NewError(FieldAnnualInterestRatePercent, validation.ReasonOutOfRange)
	}
	if req.TermYears <= 0 {
		return validation.NewError(FieldTermYears, validation.ReasonMustBePositive)
	}
	if req.TermYears > constants.MaxTermYears {
		return validation.NewError(FieldTermYears, validation.ReasonOutOfRange)
	}
	if req.AnnualPropertyTax < 0 {
		return validation.NewError(FieldAnnualPropertyTax, validation.ReasonMustBeNonNegative)
	}
	if req.AnnualInsurance < 0 {
		return validation.NewError(FieldAnnualInsurance, validation.ReasonMustBeNonNegative)
	}
	return nil
}

// MonthlyRate converts an annual percentage rate into a periodic monthly rate.
func MonthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / constants.PercentageMultiplier / constants.MonthsPerYear
}

// MonthlyPayment returns the level principal and interest payment that retires
// loanAmount over paymentCount months.
func MonthlyPayment(loanAmount, annualRatePercent float64, paymentCount int) float64 {
	if loanAmount == 0 || paymentCount <= 0 {
		return 0
	}

	monthlyRate := MonthlyRate(annualRatePercent)
	if monthlyRate == 0 {
		return loanAmount / float64(paymentCount)
	}

	power := math.Pow(1+monthlyRate, float64(paymentCount))
	if power-1 == 0 {
		// Rate too small to register in float64; the annuity degenerates to straight-line.
		return loanAmount / float64(paymentCount)
	}
	return loanAmount * monthlyRate * power / (power - 1)
}

// InterestPayment calculates the interest accrued on balance for one month.
func InterestPayment(balance, annualRatePercent float64) float64 {
	return balance * MonthlyRate(annualRatePercent)
}

// Compute validates req and produces the full amortization schedule. It has no
// side effects and either returns a complete result or a *validation.Error.
func Compute(req LoanRequest) (AmortizationResult, error) {
	if err := req.Validate(); err != nil {
		return AmortizationResult{}, err
	}

	loanAmount := req.Principal - req.DownPayment
	monthlyRate := MonthlyRate(req.AnnualInterestRatePercent)
	paymentCount := req.TermYears * constants.MonthsPerYear
	principalAndInterest := MonthlyPayment(loanAmount, req.AnnualInterestRatePercent, paymentCount)
	escrow := req.AnnualPropertyTax/constants.MonthsPerYear + req.AnnualInsurance/constants.MonthsPerYear
	monthlyPayment := principalAndInterest + escrow

	result := AmortizationResult{
		LoanAmount:                  loanAmount,
		MonthlyRate:                 monthlyRate,
		PaymentCount:                paymentCount,
		MonthlyPrincipalAndInterest: principalAndInterest,
		MonthlyEscrow:               escrow,
		MonthlyPayment:              monthlyPayment,
		TotalPayment:                monthlyPayment * float64(paymentCount),
		Schedule:                    make([]AmortizationEntry, 0, paymentCount),
	}

	if loanAmount == 0 {
		for month := 1; month <= paymentCount; month++ {
			result.Schedule = append(result.Schedule, AmortizationEntry{Month: month})
		}
		return result, nil
	}

	balance := loanAmount
	totalInterest := 0.0
	for month := 1; month <= paymentCount; month++ {
		interest := balance * monthlyRate
		principal := principalAndInterest - interest
		balance = math.Max(0, balance-principal)
		if month == paymentCount {
			// Absorb the residual left by floating-point drift.
			balance = 0
		}
		totalInterest += interest

		result.Schedule = append(result.Schedule, AmortizationEntry{
			Month:            month,
			Payment:          principalAndInterest,
			PrincipalPortion: principal,
			InterestPortion:  interest,
			RemainingBalance: balance,
		})
	}
	result.TotalInterest = totalInterest

	return result, nil
}
