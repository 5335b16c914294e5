package mortgage

import "github.com/iwvelando/calculator-hub/pkg/constants"

// ChartPoint is one point of the balance/interest line chart.
type ChartPoint struct {
	Month              int     `json:"month"`
	RemainingBalance   float64 `json:"remainingBalance"`
	CumulativeInterest float64 `json:"cumulativeInterest"`
}

// YearSummary aggregates twelve schedule entries.
type YearSummary struct {
	Year          int     `json:"year"`
	Principal     float64 `json:"principal"`
	Interest      float64 `json:"interest"`
	EndingBalance float64 `json:"endingBalance"`
}

// Chart returns the schedule keyed by month against remaining balance and
// cumulative interest.
func (r AmortizationResult) Chart() []ChartPoint {
	points := make([]ChartPoint, 0, len(r.Schedule))
	cumulative := 0.0
	for _, entry := range r.Schedule {
		cumulative += entry.InterestPortion
		points = append(points, ChartPoint{
			Month:              entry.Month,
			RemainingBalance:   entry.RemainingBalance,
			CumulativeInterest: cumulative,
		})
	}
	return points
}

// YearlySummary folds the schedule into calendar-agnostic loan years.
func (r AmortizationResult) YearlySummary() []YearSummary {
	var years []YearSummary
	for _, entry := range r.Schedule {
		year := (entry.Month-1)/constants.MonthsPerYear + 1
		if len(years) < year {
			years = append(years, YearSummary{Year: year})
		}
		current := &years[year-1]
		current.Principal += entry.PrincipalPortion
		current.Interest += entry.InterestPortion
		current.EndingBalance = entry.RemainingBalance
	}
	return years
}
