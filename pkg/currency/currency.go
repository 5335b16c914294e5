// Package currency holds the supported currency catalog and exact conversion arithmetic.
package currency

import (
	"fmt"
	"regexp"

	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"github.com/shopspring/decimal"
)

var (
	codePattern = regexp.MustCompile(`^[A-Z]{3}$`)
	byCode      = indexCatalog()
	maxAmount   = decimal.NewFromFloat(constants.MaxCurrencyAmount)
)

func indexCatalog() map[string]Info {
	m := make(map[string]Info, len(supported))
	for _, c := range supported {
		m[c.Code] = c
	}
	return m
}

// Supported returns the catalog in display order.
func Supported() []Info {
	return append([]Info(nil), supported...)
}

// IsSupported reports whether code is in the catalog.
func IsSupported(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Symbol returns the display symbol for code, or code itself when unknown.
func Symbol(code string) string {
	if c, ok := byCode[code]; ok && c.Symbol != "" {
		return c.Symbol
	}
	return code
}

// Name returns the English name for code, or code itself when unknown.
func Name(code string) string {
	if c, ok := byCode[code]; ok && c.Name != "" {
		return c.Name
	}
	return code
}

// Pair is a validated from/to currency pair.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewPair validates both codes and requires them to differ.
func NewPair(from, to string) (Pair, error) {
	if !codePattern.MatchString(from) || !IsSupported(from) {
		return Pair{}, validation.NewError("from", validation.ReasonUnsupported)
	}
	if !codePattern.MatchString(to) || !IsSupported(to) {
		return Pair{}, validation.NewError("to", validation.ReasonUnsupported)
	}
	if from == to {
		return Pair{}, validation.NewError("to", validation.ReasonMustDiffer)
	}
	return Pair{From: from, To: to}, nil
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}

// Conversion is the result of applying a rate to an amount.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"convertedAmount"`
}

// Rounded returns the converted amount rounded to cents for display.
func (c Conversion) Rounded() decimal.Decimal {
	return c.Converted.Round(2)
}

// ValidateAmount checks a conversion amount against the accepted range.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validation.NewError("amount", validation.ReasonMustBePositive)
	}
	if amount.GreaterThan(maxAmount) {
		return validation.NewError("amount", validation.ReasonOutOfRange)
	}
	return nil
}

// Convert multiplies amount by rate without floating-point error.
func Convert(amount, rate decimal.Decimal) (Conversion, error) {
	if err := ValidateAmount(amount); err != nil {
		return Conversion{}, err
	}
	if !rate.IsPositive() {
		return Conversion{}, validation.NewError("rate", validation.ReasonMustBePositive)
	}
	return Conversion{Amount: amount, Rate: rate, Converted: amount.Mul(rate)}, nil
}

// Inverse returns 1/rate at the given precision, for deriving the reverse of a quoted pair.
func Inverse(rate decimal.Decimal, places int32) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(rate, places)
}
