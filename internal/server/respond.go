package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iwvelando/calculator-hub/pkg/validation"
	"go.uber.org/zap"
)

// Error codes returned in the error envelope.
const (
	codeInvalidRequest    = "INVALID_REQUEST"
	codeInvalidParameters = "INVALID_PARAMETERS"
	codeValidation        = "VALIDATION_ERROR"
	codeRateNotFound      = "RATE_NOT_FOUND"
	codeExchangeRateError = "EXCHANGE_RATE_ERROR"
	codeInvalidEvent      = "INVALID_EVENT"
	codeAnalyticsError    = "ANALYTICS_ERROR"
	codeInvalidSignature  = "INVALID_SIGNATURE"
	codeUnknownWebhook    = "UNKNOWN_WEBHOOK"
	codeWebhookError      = "WEBHOOK_ERROR"
	codeRateLimited       = "RATE_LIMIT_EXCEEDED"
	codeUnsupportedLocale = "UNSUPPORTED_LOCALE"
	codePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	codeUnauthorized      = "UNAUTHORIZED"
	codeInternal          = "INTERNAL_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *handler) respondData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// respondError writes the error envelope with the code's message in the
// request locale and logs the cause under op.
func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, op string, cause error) {
	locale := localeFrom(r.Context())
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("locale", locale),
		zap.String("requestId", requestIDFrom(r.Context())),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	h.writeJSON(w, status, envelope{Error: &apiError{
		Code:    code,
		Message: h.bundle.T(locale, "error."+code),
		Status:  status,
	}})
}

// respondInvalid writes a 400 naming the offending field.
func (h *handler) respondInvalid(w http.ResponseWriter, r *http.Request, verr *validation.Error) {
	locale := localeFrom(r.Context())
	h.writeJSON(w, http.StatusBadRequest, envelope{Error: &apiError{
		Code:    codeValidation,
		Message: h.bundle.ValidationMessage(locale, verr),
		Status:  http.StatusBadRequest,
		Field:   verr.Field,
	}})
}

// respondDecodeError maps a body decoding failure to 413 or 400.
func (h *handler) respondDecodeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, op, err)
		return
	}
	h.respondError(w, r, http.StatusBadRequest, codeInvalidRequest, op, err)
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
