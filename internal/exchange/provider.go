// Package exchange looks up currency exchange rates from an upstream provider
// and keeps them cached per base currency.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SourceUpstream is reported for rates fetched from the configured provider.
const SourceUpstream = "exchangerate-api.com"

// ErrUpstream marks a response the upstream provider could not satisfy.
var ErrUpstream = errors.New("exchange rate provider error")

// Rates is one base currency and its quotes.
type Rates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Timestamp int64                      `json:"timestamp"`
	Source    string                     `json:"source"`
}

// Provider fetches the latest quotes for base.
type Provider interface {
	Latest(ctx context.Context, base string) (Rates, error)
}

// latestResponse accepts both the v4 and v6 latest payloads.
type latestResponse struct {
	Base              string                     `json:"base"`
	BaseCode          string                     `json:"base_code"`
	Rates             map[string]decimal.Decimal `json:"rates"`
	ConversionRates   map[string]decimal.Decimal `json:"conversion_rates"`
	Timestamp         int64                      `json:"timestamp"`
	TimeLastUpdateUTC int64                      `json:"time_last_update_unix"`
}

// HTTPProvider calls {baseURL}/{BASE} with a bearer key.
type HTTPProvider struct {
	baseURL         string
	apiKey          string
	client          *http.Client
	retries         int
	initialInterval time.Duration
	logger          *zap.Logger
}

// HTTPOption customizes an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

// WithRetries sets how many times a transient failure is retried and the
// first backoff interval.
func WithRetries(n int, initial time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.retries = n
		p.initialInterval = initial
	}
}

// NewHTTPProvider creates a provider for baseURL.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...HTTPOption) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &HTTPProvider{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		client:          &http.Client{Timeout: timeout},
		retries:         3,
		initialInterval: 200 * time.Millisecond,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Latest fetches quotes for base, retrying network errors and 5xx responses
// with exponential backoff.
func (p *HTTPProvider) Latest(ctx context.Context, base string) (Rates, error) {
	url := p.baseURL + "/" + strings.ToUpper(base)

	var rates Rates
	attempt := 0
	operation := func() error {
		attempt++
		r, err := p.fetch(ctx, url)
		if err != nil {
			p.logger.Debug("exchange rate fetch failed",
				zap.String("op", "exchange.HTTPProvider.Latest"),
				zap.String("base", base),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		rates = r
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.initialInterval
	var b backoff.BackOff = exp
	if p.retries >= 0 {
		b = backoff.WithMaxRetries(exp, uint64(p.retries))
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return Rates{}, fmt.Errorf("failed to fetch rates for %s: %w", base, err)
	}

	if rates.Base == "" {
		rates.Base = strings.ToUpper(base)
	}
	rates.Source = SourceUpstream
	return rates, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, url string) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Rates{}, backoff.Permanent(err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Rates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Rates{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Rates{}, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Rates{}, err
	}
	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Rates{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstream, err))
	}

	rates := Rates{
		Base:      payload.Base,
		Rates:     payload.Rates,
		Timestamp: payload.Timestamp,
	}
	if rates.Base == "" {
		rates.Base = payload.BaseCode
	}
	if rates.Rates == nil {
		rates.Rates = payload.ConversionRates
	}
	if rates.Timestamp == 0 {
		rates.Timestamp = payload.TimeLastUpdateUTC
	}
	if len(rates.Rates) == 0 {
		return Rates{}, backoff.Permanent(fmt.Errorf("%w: response carried no rates", ErrUpstream))
	}
	return rates, nil
}
