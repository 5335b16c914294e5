// Package units converts measurements within a category (length, mass,
// temperature, volume, area) by way of the category's base unit.
package units

import (
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"
	"github.com/iwvelando/calculator-hub/pkg/mathutil"
	"github.com/iwvelando/calculator-hub/pkg/validation"
)

var (
	// ErrUnknownCategory is returned for a category id outside the catalog.
	ErrUnknownCategory = errors.New("unknown unit category")
	// ErrUnknownUnit is returned for a unit id that is not part of the category.
	ErrUnknownUnit = errors.New("unknown unit")
)

// Category ids.
const (
	Length      = "length"
	Mass        = "mass"
	Temperature = "temperature"
	Volume      = "volume"
	Area        = "area"
)

const absoluteZeroCelsius = -273.15

// Unit is a selectable unit within a category.
type Unit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category describes a family of units sharing a base unit.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BaseUnit string `json:"baseUnit"`
	Units    []Unit `json:"units"`
}

type converter interface {
	toBase(value float64) (float64, error)
	fromBase(value float64) (float64, error)
}

// linear units scale by a constant factor; the inverse is derived so the
// round trip is exact to float64 precision.
type linear float64

func (l linear) toBase(value float64) (float64, error) {
	return value * float64(l), nil
}

func (l linear) fromBase(value float64) (float64, error) {
	return value / float64(l), nil
}

// formula units carry an affine expression in each direction over "value".
type formula struct {
	to   *govaluate.EvaluableExpression
	from *govaluate.EvaluableExpression
}

func newFormula(to, from string) formula {
	return formula{to: mustExpression(to), from: mustExpression(from)}
}

func mustExpression(expr string) *govaluate.EvaluableExpression {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid unit formula %q: %v", expr, err))
	}
	return e
}

func (f formula) toBase(value float64) (float64, error) {
	return evaluate(f.to, value)
}

func (f formula) fromBase(value float64) (float64, error) {
	return evaluate(f.from, value)
}

func evaluate(expr *govaluate.EvaluableExpression, value float64) (float64, error) {
	out, err := expr.Evaluate(map[string]interface{}{"value": value})
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate %s: %w", expr.String(), err)
	}
	result, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("formula %s returned %T", expr.String(), out)
	}
	return result, nil
}

type unitDef struct {
	Unit
	conv converter
}

type categoryDef struct {
	id, name, base string
	units          []unitDef
}

var catalog = []categoryDef{
	{Length, "Length", "meter", []unitDef{
		{Unit{"meter", "Meter"}, linear(1)},
		{Unit{"kilometer", "Kilometer"}, linear(1000)},
		{Unit{"centimeter", "Centimeter"}, linear(0.01)},
		{Unit{"millimeter", "Millimeter"}, linear(0.001)},
		{Unit{"inch", "Inch"}, linear(0.0254)},
		{Unit{"foot", "Foot"}, linear(0.3048)},
		{Unit{"yard", "Yard"}, linear(0.9144)},
		{Unit{"mile", "Mile"}, linear(1609.344)},
	}},
	{Mass, "Mass", "kilogram", []unitDef{
		{Unit{"kilogram", "Kilogram"}, linear(1)},
		{Unit{"gram", "Gram"}, linear(0.001)},
		{Unit{"milligram", "Milligram"}, linear(0.000001)},
		{Unit{"pound", "Pound"}, linear(0.45359237)},
		{Unit{"ounce", "Ounce"}, linear(0.028349523125)},
		{Unit{"ton", "Metric Ton"}, linear(1000)},
	}},
	{Temperature, "Temperature", "celsius", []unitDef{
		{Unit{"celsius", "Celsius"}, newFormula("value", "value")},
		{Unit{"fahrenheit", "Fahrenheit"}, newFormula("(value - 32) * 5 / 9", "value * 9 / 5 + 32")},
		{Unit{"kelvin", "Kelvin"}, newFormula("value - 273.15", "value + 273.15")},
	}},
	{Volume, "Volume", "liter", []unitDef{
		{Unit{"liter", "Liter"}, linear(1)},
		{Unit{"milliliter", "Milliliter"}, linear(0.001)},
		{Unit{"cubic_meter", "Cubic Meter"}, linear(1000)},
		{Unit{"gallon", "Gallon (US)"}, linear(3.785411784)},
		{Unit{"quart", "Quart (US)"}, linear(0.946352946)},
		{Unit{"pint", "Pint (US)"}, linear(0.473176473)},
		{Unit{"cup", "Cup (US)"}, linear(0.2365882365)},
	}},
	{Area, "Area", "square_meter", []unitDef{
		{Unit{"square_meter", "Square Meter"}, linear(1)},
		{Unit{"square_kilometer", "Square Kilometer"}, linear(1000000)},
		{Unit{"square_foot", "Square Foot"}, linear(0.09290304)},
		{Unit{"square_yard", "Square Yard"}, linear(0.83612736)},
		{Unit{"acre", "Acre"}, linear(4046.8564224)},
		{Unit{"hectare", "Hectare"}, linear(10000)},
	}},
}

// Categories returns the full unit catalog.
func Categories() []Category {
	out := make([]Category, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c.public())
	}
	return out
}

// UnitsFor returns the units of a category, or ErrUnknownCategory.
func UnitsFor(category string) ([]Unit, error) {
	c, err := lookupCategory(category)
	if err != nil {
		return nil, err
	}
	return c.public().Units, nil
}

// Convert converts value from one unit to another within category.
func Convert(value float64, from, to, category string) (float64, error) {
	if !mathutil.IsFinite(value) {
		return 0, validation.NewError("value", validation.ReasonMustBeFinite)
	}

	c, err := lookupCategory(category)
	if err != nil {
		return 0, err
	}
	fromUnit, err := c.lookupUnit(from)
	if err != nil {
		return 0, err
	}
	toUnit, err := c.lookupUnit(to)
	if err != nil {
		return 0, err
	}

	if value < 0 && category != Temperature {
		return 0, validation.NewError("value", validation.ReasonMustBeNonNegative)
	}

	base, err := fromUnit.conv.toBase(value)
	if err != nil {
		return 0, err
	}
	if category == Temperature && base < absoluteZeroCelsius {
		return 0, validation.NewError("value", validation.ReasonBelowAbsoluteZero)
	}
	if from == to {
		return value, nil
	}
	return toUnit.conv.fromBase(base)
}

func lookupCategory(id string) (*categoryDef, error) {
	for i := range catalog {
		if catalog[i].id == id {
			return &catalog[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
}

func (c *categoryDef) lookupUnit(id string) (*unitDef, error) {
	for i := range c.units {
		if c.units[i].ID == id {
			return &c.units[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrUnknownUnit, id, c.id)
}

func (c *categoryDef) public() Category {
	units := make([]Unit, 0, len(c.units))
	for _, u := range c.units {
		units = append(units, u.Unit)
	}
	return Category{ID: c.id, Name: c.name, BaseUnit: c.base, Units: units}
}
