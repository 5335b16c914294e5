package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/shopspring/decimal"
)

// PairResult is the upstream answer for a single conversion.
type PairResult struct {
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Rate            decimal.Decimal `json:"rate"`
	Timestamp       int64           `json:"timestamp"`
}

type pairResponse struct {
	Result           string          `json:"result"`
	ErrorType        string          `json:"error-type"`
	ConversionResult decimal.Decimal `json:"conversion_result"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	TimeLastUpdate   int64           `json:"time_last_update_unix"`
}

// PairConverter converts an amount with the {base}/{key}/pair/{from}/{to}/{amount}
// endpoint.
type PairConverter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPairConverter creates a PairConverter.
func NewPairConverter(baseURL, apiKey string, timeout time.Duration) *PairConverter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PairConverter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is available.
func (c *PairConverter) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// Convert asks the upstream to convert amount from one currency to another.
func (c *PairConverter) Convert(ctx context.Context, amount decimal.Decimal, pair currency.Pair) (PairResult, error) {
	if err := currency.ValidateAmount(amount); err != nil {
		return PairResult{}, err
	}

	url := fmt.Sprintf("%s/%s/pair/%s/%s/%s", c.baseURL, c.apiKey, pair.From, pair.To, amount.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PairResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return PairResult{}, fmt.Errorf("failed to convert %s: %w", pair, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PairResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return PairResult{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload pairResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return PairResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if payload.Result == "error" {
		return PairResult{}, fmt.Errorf("%w: %s", ErrUpstream, payload.ErrorType)
	}
	if payload.ConversionResult.IsZero() {
		return PairResult{}, fmt.Errorf("%w: response carried no conversion result", ErrUpstream)
	}

	return PairResult{
		ConvertedAmount: payload.ConversionResult,
		Rate:            payload.ConversionRate,
		Timestamp:       payload.TimeLastUpdate,
	}, nil
}
