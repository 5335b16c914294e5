package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/calculator-hub/internal/ratelimit"
	"go.uber.org/zap"
)

type contextKey int

const (
	localeKey contextKey = iota
	requestIDKey
)

func localeFrom(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey).(string); ok {
		return locale
	}
	return ""
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.respondError(w, r, http.StatusInternalServerError, codeInternal, "server.recoverer",
					fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (h *handler) cors(next http.Handler) http.Handler {
	allowAll := len(h.allowedOrigins) == 0
	allowed := make(map[string]bool, len(h.allowedOrigins))
	for _, origin := range h.allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, X-API-Key, X-Client-ID, X-Request-ID, X-Webhook-Type, X-Webhook-Signature, X-Webhook-Timestamp")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		h.logger.Info("request completed",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remoteAddr", ratelimit.ClientIP(r)),
			zap.String("requestId", requestIDFrom(r.Context())),
		)
	})
}

// instrument records request metrics under the route pattern.
func (h *handler) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		h.metrics.ObserveRequest(pattern, r.Method, rec.status, time.Since(start))
	})
}

// withLocale resolves the {locale} path segment, answering 404 for locales
// without a catalog. Routes without the segment negotiate from
// Accept-Language.
func (h *handler) withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale, ok := h.bundle.Resolve(r.PathValue("locale"), r.Header.Get("Accept-Language"))
		if !ok {
			ctx := context.WithValue(r.Context(), localeKey, h.bundle.Default())
			h.respondError(w, r.WithContext(ctx), http.StatusNotFound, codeUnsupportedLocale, "server.withLocale",
				fmt.Errorf("unsupported locale %q", locale))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey, locale)))
	})
}

func (h *handler) rateLimited(identifier string, next http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
		h.metrics.CountRateLimited(identifier)
		h.logger.Warn("rate limit exceeded",
			zap.String("op", "server.rateLimited"),
			zap.String("identifier", identifier),
			zap.String("ip", ratelimit.ClientIP(r)),
			zap.Time("reset", info.Reset),
		)
		h.respondError(w, r, http.StatusTooManyRequests, codeRateLimited, "server.rateLimited", ratelimit.ErrLimitExceeded)
	}
	return ratelimit.Middleware(h.limiter, identifier, reject)(next)
}

func (h *handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !verifyAdmin(r, h.adminKey) {
			h.respondError(w, r, http.StatusUnauthorized, codeUnauthorized, "server.requireAdmin", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
