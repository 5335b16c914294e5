// Package format renders numbers and money for display.
package format

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Localized formats numbers and money for a single locale.
type Localized struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalized returns a formatter for locale, falling back to English when the
// tag cannot be parsed.
func NewLocalized(locale string) *Localized {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Localized{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the language tag used for formatting.
func (l *Localized) Tag() language.Tag {
	return l.tag
}

// Number formats v with exactly decimals fraction digits and locale grouping.
func (l *Localized) Number(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return l.printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
}

// Percent formats a percentage value such as 3.5 as "3.50%".
func (l *Localized) Percent(v float64, decimals int) string {
	return l.Number(v, decimals) + "%"
}

// FractionDigits returns the standard number of fraction digits for an ISO
// currency code, e.g. 0 for JPY. Unknown codes get 2.
func FractionDigits(code string) int {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return 2
	}
	decimals, _ := currency.Standard.Rounding(unit)
	return decimals
}

// Currency formats v in the given ISO currency using symbol. The number of
// fraction digits follows FractionDigits.
func (l *Localized) Currency(v float64, code, symbol string) string {
	decimals := FractionDigits(code)
	if symbol == "" {
		symbol = strings.ToUpper(code)
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	amount := l.Number(v, decimals)

	base, _ := l.tag.Base()
	switch base.String() {
	case "en":
		return sign + symbol + amount
	default:
		return sign + amount + " " + symbol
	}
}
