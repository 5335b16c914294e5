package exchange

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrRateNotFound is returned when the base currency has no quote for the target.
var ErrRateNotFound = errors.New("exchange rate not found")

// Lookup results reported to the lookup hook.
const (
	LookupFresh = "fresh"
	LookupStale = "stale"
	LookupMiss  = "miss"
)

// Quote is a single rate with its provenance.
type Quote struct {
	Rate      decimal.Decimal `json:"rate"`
	Timestamp int64           `json:"timestamp"`
	Source    string          `json:"source"`
}

type cachedRates struct {
	rates      Rates
	freshUntil time.Time
	staleUntil time.Time
}

// Service answers rate queries from a per-base cache in front of a Provider.
// Stale entries are served while a single background refresh runs.
type Service struct {
	provider Provider
	fallback Provider
	ttl      time.Duration
	stale    time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	onLookup func(result string)
	now      func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cachedRates
}

// Option customizes a Service.
type Option func(*Service)

// WithFallback sets a provider used when the primary fails.
func WithFallback(p Provider) Option {
	return func(s *Service) { s.fallback = p }
}

// WithTTL sets the fresh and stale windows for cached rates.
func WithTTL(ttl, stale time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
		if stale >= 0 {
			s.stale = stale
		}
	}
}

// WithRefreshTimeout bounds one shared upstream fetch, which runs detached
// from the cancellation of whichever caller started it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLookupHook registers a callback invoked with LookupFresh, LookupStale
// or LookupMiss on every Rate call.
func WithLookupHook(fn func(result string)) Option {
	return func(s *Service) { s.onLookup = fn }
}

// NewService creates a Service around provider.
func NewService(provider Provider, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		provider: provider,
		ttl:      time.Hour,
		stale:    5 * time.Minute,
		timeout:  30 * time.Second,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]cachedRates),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rate returns the quote for converting one unit of from into to.
func (s *Service) Rate(ctx context.Context, from, to string) (Quote, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if _, err := currency.NewPair(from, to); err != nil {
		return Quote{}, err
	}

	rates, err := s.ratesFor(ctx, from)
	if err != nil {
		return Quote{}, err
	}
	rate, ok := rates.Rates[to]
	if !ok || !rate.IsPositive() {
		return Quote{}, ErrRateNotFound
	}
	return Quote{Rate: rate, Timestamp: rates.Timestamp, Source: rates.Source}, nil
}

// Convert converts amount using the current from/to quote.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, Quote, error) {
	if err := currency.ValidateAmount(amount); err != nil {
		return currency.Conversion{}, Quote{}, err
	}
	quote, err := s.Rate(ctx, from, to)
	if err != nil {
		return currency.Conversion{}, Quote{}, err
	}
	conv, err := currency.Convert(amount, quote.Rate)
	return conv, quote, err
}

// Invalidate drops the cached rates for base, or all bases when base is
// empty, and returns how many were dropped.
func (s *Service) Invalidate(_ context.Context, base string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		n := len(s.entries)
		s.entries = make(map[string]cachedRates)
		return n
	}
	if _, ok := s.entries[base]; !ok {
		return 0
	}
	delete(s.entries, base)
	return 1
}

func (s *Service) ratesFor(ctx context.Context, base string) (Rates, error) {
	s.mu.RLock()
	entry, ok := s.entries[base]
	s.mu.RUnlock()

	now := s.now()
	switch {
	case ok && now.Before(entry.freshUntil):
		s.observe(LookupFresh)
		return entry.rates, nil
	case ok && now.Before(entry.staleUntil):
		s.observe(LookupStale)
		go func() {
			if _, err := s.refresh(context.WithoutCancel(ctx), base); err != nil {
				s.logger.Warn("background rate refresh failed",
					zap.String("op", "exchange.Service.ratesFor"),
					zap.String("base", base),
					zap.Error(err),
				)
			}
		}()
		return entry.rates, nil
	}

	s.observe(LookupMiss)
	return s.refresh(ctx, base)
}

// refresh fetches base once no matter how many callers are waiting on it. A
// caller that gives up returns its own context error without cancelling the
// fetch for the others.
func (s *Service) refresh(ctx context.Context, base string) (Rates, error) {
	ch := s.group.DoChan(base, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		rates, err := s.provider.Latest(ctx, base)
		if err != nil && s.fallback != nil {
			s.logger.Warn("upstream exchange rates unavailable, using fallback",
				zap.String("op", "exchange.Service.refresh"),
				zap.String("base", base),
				zap.Error(err),
			)
			rates, err = s.fallback.Latest(ctx, base)
		}
		if err != nil {
			return Rates{}, err
		}

		now := s.now()
		s.mu.Lock()
		s.entries[base] = cachedRates{
			rates:      rates,
			freshUntil: now.Add(s.ttl),
			staleUntil: now.Add(s.ttl + s.stale),
		}
		s.mu.Unlock()

		s.logger.Debug("exchange rates refreshed",
			zap.String("op", "exchange.Service.refresh"),
			zap.String("base", base),
			zap.String("source", rates.Source),
			zap.Int("quotes", len(rates.Rates)),
		)
		return rates, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Rates{}, res.Err
		}
		return res.Val.(Rates), nil
	case <-ctx.Done():
		return Rates{}, ctx.Err()
	}
}

func (s *Service) observe(result string) {
	if s.onLookup != nil {
		s.onLookup(result)
	}
}
