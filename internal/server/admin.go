package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/internal/webhook"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"go.uber.org/zap"
)

func verifyAdmin(r *http.Request, key string) bool {
	return webhook.VerifyAPIKey(r.Header.Get("X-API-Key"), key)
}

type healthResponse struct {
	Status  string `json:"status"`
	Cache   string `json:"cache"`
	Version string `json:"version"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Cache: h.cache.Name(), Version: h.version}
	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("cache backend unhealthy",
			zap.String("op", "server.handleHealth"),
			zap.String("cache", resp.Cache),
			zap.Error(err),
		)
		resp.Status = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Data: resp})
		return
	}
	h.respondData(w, resp)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

type cacheClearRequest struct {
	Tags []string `json:"tags"`
}

func (h *handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCacheClear"

	var req cacheClearRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.respondDecodeError(w, r, op, err)
		return
	}

	cleared, err := h.cache.Clear(r.Context(), req.Tags...)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, codeInternal, op, err)
		return
	}
	ratesDropped := 0
	if len(req.Tags) == 0 {
		ratesDropped = h.exchange.Invalidate(r.Context(), "")
	}

	h.logger.Info("cache cleared",
		zap.String("op", op),
		zap.Strings("tags", req.Tags),
		zap.Int("cleared", cleared),
		zap.Int("ratesDropped", ratesDropped),
	)
	h.respondData(w, map[string]int{"cleared": cleared, "ratesDropped": ratesDropped})
}

type rateLimitResetRequest struct {
	IP string `json:"ip"`
}

func (h *handler) handleRateLimitReset(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRateLimitReset"

	var req rateLimitResetRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.respondDecodeError(w, r, op, err)
		return
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		h.respondInvalid(w, r, validation.NewError("ip", validation.ReasonRequired))
		return
	}

	removed := h.limiter.Reset(ip)
	h.logger.Info("rate limits reset",
		zap.String("op", op),
		zap.String("ip", ip),
		zap.Int("removed", removed),
	)
	h.respondData(w, map[string]interface{}{"ip": ip, "removed": removed})
}
