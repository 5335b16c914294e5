package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/shopspring/decimal"
)

// SourceStatic is reported for rates served from the built-in table.
const SourceStatic = "static"

// staticRates maps "BASE/QUOTE" to a reference rate.
var staticRates = map[string]string{
	"EUR/USD": "1.0850",
	"GBP/USD": "1.2650",
	"USD/JPY": "149.50",
	"USD/CHF": "0.8820",
	"AUD/USD": "0.6520",
	"USD/CAD": "1.3580",
	"NZD/USD": "0.6080",
	"USD/CNY": "7.2400",
	"USD/INR": "83.10",
	"USD/MXN": "17.05",
	"USD/BRL": "4.9700",
	"USD/SEK": "10.45",
	"USD/NOK": "10.60",
	"EUR/GBP": "0.8580",
	"EUR/JPY": "162.20",
	"GBP/JPY": "189.10",
}

// StaticProvider serves a small table of reference rates. It backs the
// exchange route when the upstream provider is unreachable.
type StaticProvider struct {
	now func() time.Time
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{now: time.Now}
}

// Latest returns every quote for base that the table holds directly or as
// the inverse of a listed pair.
func (p *StaticProvider) Latest(_ context.Context, base string) (Rates, error) {
	base = strings.ToUpper(base)
	quotes := make(map[string]decimal.Decimal)

	for key, value := range staticRates {
		from, to, _ := strings.Cut(key, "/")
		rate := decimal.RequireFromString(value)
		switch base {
		case from:
			quotes[to] = rate
		case to:
			if _, direct := quotes[from]; !direct {
				quotes[from] = currency.Inverse(rate, 6)
			}
		}
	}
	if len(quotes) == 0 {
		return Rates{}, fmt.Errorf("no static rates available for %s", base)
	}
	quotes[base] = decimal.NewFromInt(1)

	return Rates{
		Base:      base,
		Rates:     quotes,
		Timestamp: p.now().Unix(),
		Source:    SourceStatic,
	}, nil
}
