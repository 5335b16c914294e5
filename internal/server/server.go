// Package server exposes the calculators and API proxy routes over HTTP.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/internal/analytics"
	"github.com/iwvelando/calculator-hub/internal/cache"
	"github.com/iwvelando/calculator-hub/internal/config"
	"github.com/iwvelando/calculator-hub/internal/exchange"
	"github.com/iwvelando/calculator-hub/internal/i18n"
	"github.com/iwvelando/calculator-hub/internal/metrics"
	"github.com/iwvelando/calculator-hub/internal/ratelimit"
	"github.com/iwvelando/calculator-hub/internal/webhook"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"go.uber.org/zap"
)

// Dependencies wires the collaborators of the HTTP handler. Only Config is
// required; anything left nil is built from it.
type Dependencies struct {
	Config     *config.Configuration
	Logger     *zap.Logger
	Bundle     *i18n.Bundle
	Limiter    *ratelimit.Limiter
	Cache      cache.Cache
	Exchange   *exchange.Service
	Pair       *exchange.PairConverter
	Analytics  *analytics.Service
	Dispatcher *webhook.Dispatcher
	Verifier   *webhook.Verifier
	Metrics    *metrics.Metrics
	Version    string
}

type handler struct {
	logger         *zap.Logger
	bundle         *i18n.Bundle
	limiter        *ratelimit.Limiter
	cache          cache.Cache
	responses      *cache.Middleware
	exchange       *exchange.Service
	pair           *exchange.PairConverter
	analytics      *analytics.Service
	dispatcher     *webhook.Dispatcher
	verifier       *webhook.Verifier
	metrics        *metrics.Metrics
	version        string
	maxBodySize    int64
	allowedOrigins []string
	adminKey       string
}

// NewHandler constructs the HTTP handler serving every calculator and API route.
func NewHandler(deps Dependencies) (http.Handler, error) {
	h, err := newHandler(deps)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	h.route(mux, "POST /{locale}/api/mortgage", constants.RateLimitCalculator, http.HandlerFunc(h.handleMortgage))
	h.route(mux, "POST /{locale}/api/bmi", constants.RateLimitCalculator, http.HandlerFunc(h.handleBMI))
	h.route(mux, "POST /{locale}/api/units", constants.RateLimitCalculator, http.HandlerFunc(h.handleUnitConversion))
	h.route(mux, "GET /{locale}/api/units", constants.RateLimitCalculator, h.responses.Wrap(http.HandlerFunc(h.handleUnitCatalog)))
	h.route(mux, "GET /{locale}/api/currencies", constants.RateLimitCalculator, h.responses.Wrap(http.HandlerFunc(h.handleCurrencies)))
	h.route(mux, "GET /{locale}/api/exchange", constants.RateLimitExchange, h.responses.Wrap(http.HandlerFunc(h.handleExchange)))
	h.route(mux, "POST /api/exchange-rates", constants.RateLimitConversion, http.HandlerFunc(h.handleConversion))
	h.route(mux, "POST /{locale}/api/analytics", constants.RateLimitAnalytics, http.HandlerFunc(h.handleAnalytics))
	h.route(mux, "POST /{locale}/api/webhooks", constants.RateLimitWebhook, http.HandlerFunc(h.handleWebhook))

	h.route(mux, "GET /api/health", "", http.HandlerFunc(h.handleHealth))
	h.route(mux, "GET /api/version", "", http.HandlerFunc(h.handleVersion))
	h.route(mux, "GET /metrics", "", h.metrics.Handler())
	h.route(mux, "POST /api/admin/cache/clear", "", h.requireAdmin(http.HandlerFunc(h.handleCacheClear)))
	h.route(mux, "POST /api/admin/ratelimit/reset", "", h.requireAdmin(http.HandlerFunc(h.handleRateLimitReset)))

	var root http.Handler = mux
	root = h.logRequests(root)
	root = h.cors(root)
	root = h.requestID(root)
	root = h.recoverer(root)
	return root, nil
}

// route registers next under pattern with metrics, locale resolution and,
// when identifier is set, rate limiting.
func (h *handler) route(mux *http.ServeMux, pattern, identifier string, next http.Handler) {
	if identifier != "" {
		next = h.rateLimited(identifier, next)
	}
	next = h.withLocale(next)
	mux.Handle(pattern, h.instrument(pattern, next))
}

func newHandler(deps Dependencies) (*handler, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("server requires a configuration")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{
		logger:         logger,
		bundle:         deps.Bundle,
		limiter:        deps.Limiter,
		cache:          deps.Cache,
		exchange:       deps.Exchange,
		pair:           deps.Pair,
		analytics:      deps.Analytics,
		dispatcher:     deps.Dispatcher,
		verifier:       deps.Verifier,
		metrics:        deps.Metrics,
		version:        strings.TrimSpace(deps.Version),
		maxBodySize:    cfg.Server.MaxBodySizeBytes(),
		allowedOrigins: cfg.Server.AllowedOrigins,
		adminKey:       cfg.Admin.APIKey,
	}
	if h.version == "" {
		h.version = "dev"
	}

	if h.bundle == nil {
		bundle, err := i18n.Load(cfg.Locales.Supported, cfg.Locales.Default)
		if err != nil {
			return nil, fmt.Errorf("failed to load message catalogs: %w", err)
		}
		h.bundle = bundle
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	if h.limiter == nil {
		// Long-running servers pass a limiter they Stop on shutdown.
		h.limiter = ratelimit.New(logger, append(ratelimit.RulesFromConfig(cfg), ratelimit.WithoutCleanup())...)
	}
	if h.cache == nil {
		h.cache = cache.NewMemory(cfg.Cache.MaxItems, cache.Options{
			MaxAge:               cfg.Cache.DefaultMaxAge,
			StaleWhileRevalidate: cfg.Cache.StaleWhileRevalidate,
		})
	}
	h.responses = cache.NewMiddleware(h.cache, cache.Options{
		MaxAge:               cfg.Cache.DefaultMaxAge,
		StaleWhileRevalidate: cfg.Cache.StaleWhileRevalidate,
	}, logger)
	if h.exchange == nil {
		h.exchange = NewExchangeService(cfg.Exchange, h.metrics, logger)
	}
	if h.pair == nil {
		h.pair = exchange.NewPairConverter(cfg.Exchange.PairBaseURL, cfg.Exchange.APIKey, cfg.Exchange.Timeout)
	}
	if h.analytics == nil {
		sink, err := analytics.NewSink(cfg.Analytics, logger)
		if err != nil {
			return nil, err
		}
		h.analytics = analytics.NewService(cfg.Analytics, sink, logger)
	}
	if h.verifier == nil {
		h.verifier = webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.MaxSkew)
	}
	if h.dispatcher == nil {
		h.dispatcher = NewDispatcher(h.exchange, h.cache, logger)
	}
	return h, nil
}

// NewExchangeService builds the rate service described by cfg, reporting
// cache lookups to m.
func NewExchangeService(cfg config.ExchangeConfig, m *metrics.Metrics, logger *zap.Logger) *exchange.Service {
	provider := exchange.NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout, logger,
		exchange.WithRetries(cfg.Retries, 200*time.Millisecond))
	opts := []exchange.Option{
		exchange.WithTTL(cfg.CacheTTL, cfg.StaleTTL),
		// Every attempt may use the full timeout, plus room for backoff.
		exchange.WithRefreshTimeout(cfg.Timeout * time.Duration(cfg.Retries+2)),
	}
	if cfg.FallbackStatic {
		opts = append(opts, exchange.WithFallback(exchange.NewStaticProvider()))
	}
	if m != nil {
		opts = append(opts, exchange.WithLookupHook(m.CountExchangeLookup))
	}
	return exchange.NewService(provider, logger, opts...)
}

// NewDispatcher registers the webhook types the site understands.
func NewDispatcher(rates webhook.RateInvalidator, responses webhook.ResponseClearer, logger *zap.Logger) *webhook.Dispatcher {
	d := webhook.NewDispatcher(logger)
	d.Handle(webhook.TypeExchangeRateUpdate, webhook.ExchangeRateUpdate(rates, responses, logger))
	d.Handle(webhook.TypeAnalyticsReport, webhook.AnalyticsReport(logger))
	return d
}
