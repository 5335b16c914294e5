package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iwvelando/calculator-hub/internal/exchange"
	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rateResponse struct {
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
}

func (h *handler) handleExchange(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExchange"

	from := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("from")))
	to := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("to")))
	if from == "" || to == "" {
		h.respondError(w, r, http.StatusBadRequest, codeInvalidParameters, op, nil)
		return
	}

	quote, err := h.exchange.Rate(r.Context(), from, to)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			h.respondInvalid(w, r, verr)
		case errors.Is(err, exchange.ErrRateNotFound):
			h.respondError(w, r, http.StatusNotFound, codeRateNotFound, op, err)
		default:
			h.respondError(w, r, http.StatusInternalServerError, codeExchangeRateError, op, err)
		}
		return
	}

	h.logger.Info("exchange rate fetched successfully",
		zap.String("op", op),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("rate", quote.Rate.String()),
		zap.String("locale", localeFrom(r.Context())),
	)
	h.respondData(w, rateResponse{
		Rate:      quote.Rate.InexactFloat64(),
		Timestamp: quote.Timestamp,
		Source:    quote.Source,
	})
}

type conversionRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
}

// conversionFields maps currency package field names to the request body's.
var conversionFields = map[string]string{
	"from": "fromCurrency",
	"to":   "toCurrency",
}

type convertedResponse struct {
	ConvertedAmount float64 `json:"convertedAmount"`
	Rate            float64 `json:"rate"`
	Timestamp       int64   `json:"timestamp"`
}

// handleConversion converts an amount, preferring the upstream pair endpoint
// when a key is configured and the cached rates otherwise.
func (h *handler) handleConversion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConversion"

	var req conversionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}
	from := strings.ToUpper(strings.TrimSpace(req.FromCurrency))
	to := strings.ToUpper(strings.TrimSpace(req.ToCurrency))
	if req.Amount.IsZero() || from == "" || to == "" {
		h.respondError(w, r, http.StatusBadRequest, codeInvalidParameters, op, nil)
		return
	}

	pair, err := currency.NewPair(from, to)
	if err == nil {
		err = currency.ValidateAmount(req.Amount)
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		h.respondInvalid(w, r, renameField(verr, conversionFields))
		return
	}

	if h.pair.Configured() {
		res, err := h.pair.Convert(r.Context(), req.Amount, pair)
		if err == nil {
			h.respondData(w, convertedResponse{
				ConvertedAmount: res.ConvertedAmount.InexactFloat64(),
				Rate:            res.Rate.InexactFloat64(),
				Timestamp:       res.Timestamp,
			})
			return
		}
		h.logger.Warn("pair conversion failed, using cached rates",
			zap.String("op", op),
			zap.String("pair", pair.String()),
			zap.Error(err),
		)
	}

	conv, quote, err := h.exchange.Convert(r.Context(), req.Amount, from, to)
	if err != nil {
		switch {
		case errors.As(err, &verr):
			h.respondInvalid(w, r, renameField(verr, conversionFields))
		case errors.Is(err, exchange.ErrRateNotFound):
			h.respondError(w, r, http.StatusNotFound, codeRateNotFound, op, err)
		default:
			h.respondError(w, r, http.StatusInternalServerError, codeExchangeRateError, op, err)
		}
		return
	}
	h.respondData(w, convertedResponse{
		ConvertedAmount: conv.Rounded().InexactFloat64(),
		Rate:            quote.Rate.InexactFloat64(),
		Timestamp:       quote.Timestamp,
	})
}
