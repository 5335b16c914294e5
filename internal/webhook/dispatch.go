package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Webhook types understood by the default dispatcher.
const (
	TypeExchangeRateUpdate = "exchange_rate_update"
	TypeAnalyticsReport    = "analytics_report"
)

// ErrUnknownType is returned for a webhook type with no handler.
var ErrUnknownType = errors.New("unknown webhook type")

// HandlerFunc processes one verified webhook payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Dispatcher routes verified webhooks by type.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{handlers: make(map[string]HandlerFunc), logger: logger}
}

// Handle registers fn for webhookType.
func (d *Dispatcher) Handle(webhookType string, fn HandlerFunc) {
	d.handlers[webhookType] = fn
}

// Dispatch runs the handler registered for webhookType.
func (d *Dispatcher) Dispatch(ctx context.Context, webhookType string, payload json.RawMessage) error {
	fn, ok := d.handlers[webhookType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, webhookType)
	}
	d.logger.Info("webhook received",
		zap.String("op", "webhook.Dispatcher.Dispatch"),
		zap.String("type", webhookType),
		zap.Int("bytes", len(payload)),
	)
	return fn(ctx, payload)
}

// RateInvalidator drops cached exchange rates for a base currency.
type RateInvalidator interface {
	Invalidate(ctx context.Context, base string) int
}

// ResponseClearer drops cached HTTP responses matching any tag.
type ResponseClearer interface {
	Clear(ctx context.Context, tags ...string) (int, error)
}

type exchangeRateUpdate struct {
	Base string `json:"base"`
}

// ExchangeRateUpdate invalidates cached rates for the payload's base
// currency, or every base when none is given, along with cached exchange
// responses.
func ExchangeRateUpdate(rates RateInvalidator, responses ResponseClearer, logger *zap.Logger) HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, payload json.RawMessage) error {
		var update exchangeRateUpdate
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &update); err != nil {
				return fmt.Errorf("decode exchange rate update: %w", err)
			}
		}
		base := strings.ToUpper(strings.TrimSpace(update.Base))

		dropped := rates.Invalidate(ctx, base)
		cleared := 0
		if responses != nil {
			tag := "/api/exchange"
			if base != "" {
				tag = "from=" + base
			}
			n, err := responses.Clear(ctx, tag)
			if err != nil {
				return fmt.Errorf("clear cached exchange responses: %w", err)
			}
			cleared = n
		}

		logger.Info("processed exchange rate update",
			zap.String("op", "webhook.ExchangeRateUpdate"),
			zap.String("base", base),
			zap.Int("ratesDropped", dropped),
			zap.Int("responsesCleared", cleared),
		)
		return nil
	}
}

// AnalyticsReport logs the report payload.
func AnalyticsReport(logger *zap.Logger) HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, payload json.RawMessage) error {
		if len(payload) > 0 && !json.Valid(payload) {
			return errors.New("analytics report payload is not valid JSON")
		}
		logger.Info("processed analytics report",
			zap.String("op", "webhook.AnalyticsReport"),
			zap.ByteString("payload", payload),
		)
		return nil
	}
}
