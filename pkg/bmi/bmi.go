// Package bmi computes body mass index, its category and a healthy weight range.
package bmi

import (
	"github.com/iwvelando/calculator-hub/pkg/mathutil"
	"github.com/iwvelando/calculator-hub/pkg/validation"
)

// Unit systems accepted by Calculate.
const (
	UnitMetric   = "metric"
	UnitImperial = "imperial"
)

// Gender values accepted by Calculate.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Category is the BMI classification band.
type Category string

const (
	Underweight   Category = "underweight"
	Normal        Category = "normal"
	Overweight    Category = "overweight"
	Obese         Category = "obese"
	SeverelyObese Category = "severely_obese"
)

const (
	centimetersPerInch = 2.54
	kilogramsPerPound  = 0.453592

	healthyMin = 18.5
	healthyMax = 24.9
)

// Input is the BMI form. Height is centimeters (metric) or inches (imperial);
// weight is kilograms or pounds.
type Input struct {
	Height float64 `json:"height" validate:"gt=0"`
	Weight float64 `json:"weight" validate:"gt=0"`
	Age    int     `json:"age" validate:"gte=2,lte=120"`
	Gender string  `json:"gender" validate:"required,oneof=male female"`
	Unit   string  `json:"unit" validate:"required,oneof=metric imperial"`
}

// Result holds the computed index. The healthy range is expressed in kilograms.
// Recommendations are message keys, localized by the caller.
type Result struct {
	BMI             float64  `json:"bmi"`
	Category        Category `json:"category"`
	HealthyRangeMin float64  `json:"healthyRangeMin"`
	HealthyRangeMax float64  `json:"healthyRangeMax"`
	Recommendations []string `json:"recommendations"`
}

// Calculate validates in and computes the BMI result.
func Calculate(in Input) (Result, error) {
	if !mathutil.IsFinite(in.Height) {
		return Result{}, validation.NewError("height", validation.ReasonMustBeFinite)
	}
	if !mathutil.IsFinite(in.Weight) {
		return Result{}, validation.NewError("weight", validation.ReasonMustBeFinite)
	}
	if err := validation.Struct(in); err != nil {
		return Result{}, err
	}

	heightMeters := in.Height / 100
	weightKg := in.Weight
	if in.Unit == UnitImperial {
		heightMeters = in.Height * centimetersPerInch / 100
		weightKg = in.Weight * kilogramsPerPound
	}

	squared := heightMeters * heightMeters
	index := weightKg / squared
	category := Classify(index)

	return Result{
		BMI:             index,
		Category:        category,
		HealthyRangeMin: healthyMin * squared,
		HealthyRangeMax: healthyMax * squared,
		Recommendations: Recommendations(category, in.Age, in.Gender),
	}, nil
}

// Classify maps a BMI value to its category band.
func Classify(index float64) Category {
	switch {
	case index < 18.5:
		return Underweight
	case index < 25:
		return Normal
	case index < 30:
		return Overweight
	case index < 35:
		return Obese
	default:
		return SeverelyObese
	}
}

var categoryRecommendations = map[Category][]string{
	Underweight: {
		"bmi.rec.consult_provider_weight",
		"bmi.rec.nutrient_dense",
		"bmi.rec.strength_training",
		"bmi.rec.frequent_meals",
	},
	Normal: {
		"bmi.rec.maintain_lifestyle",
		"bmi.rec.regular_exercise",
		"bmi.rec.balanced_diet",
		"bmi.rec.checkups",
	},
	Overweight: {
		"bmi.rec.gradual_loss",
		"bmi.rec.increase_activity",
		"bmi.rec.portion_sizes",
		"bmi.rec.whole_foods",
	},
	Obese: {
		"bmi.rec.personalized_plan",
		"bmi.rec.dietitian",
		"bmi.rec.low_impact",
		"bmi.rec.health_markers",
	},
}

// Recommendations returns message keys for the category, age and gender.
func Recommendations(category Category, age int, gender string) []string {
	lookup := category
	if lookup == SeverelyObese {
		lookup = Obese
	}
	recs := append([]string(nil), categoryRecommendations[lookup]...)

	switch {
	case age < 18:
		recs = append(recs, "bmi.rec.pediatrician")
	case age > 65:
		recs = append(recs, "bmi.rec.muscle_mass", "bmi.rec.calcium_vitamin_d")
	}

	if gender == GenderFemale {
		recs = append(recs, "bmi.rec.iron", "bmi.rec.calcium_foods")
	} else {
		recs = append(recs, "bmi.rec.protein", "bmi.rec.cardio")
	}
	return recs
}
