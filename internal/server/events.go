package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/iwvelando/calculator-hub/internal/analytics"
	"github.com/iwvelando/calculator-hub/internal/webhook"
)

func (h *handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalytics"

	var ev analytics.Event
	if err := h.decodeJSON(w, r, &ev); err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}

	forwarded, err := h.analytics.Track(r.Context(), localeFrom(r.Context()), r.Header.Get("X-Client-ID"), ev)
	switch {
	case errors.Is(err, analytics.ErrInvalidEvent):
		h.respondError(w, r, http.StatusBadRequest, codeInvalidEvent, op, err)
		return
	case err != nil:
		h.respondError(w, r, http.StatusInternalServerError, codeAnalyticsError, op, err)
		return
	}
	h.respondData(w, map[string]bool{"forwarded": forwarded})
}

func (h *handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleWebhook"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondDecodeError(w, r, op, err)
		return
	}

	if err := h.verifier.Verify(
		r.Header.Get(webhook.HeaderSignature),
		r.Header.Get(webhook.HeaderTimestamp),
		body,
	); err != nil {
		h.respondError(w, r, http.StatusUnauthorized, codeInvalidSignature, op, err)
		return
	}

	err = h.dispatcher.Dispatch(r.Context(), r.Header.Get(webhook.HeaderType), body)
	switch {
	case errors.Is(err, webhook.ErrUnknownType):
		h.respondError(w, r, http.StatusBadRequest, codeUnknownWebhook, op, err)
		return
	case err != nil:
		h.respondError(w, r, http.StatusInternalServerError, codeWebhookError, op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true})
}
