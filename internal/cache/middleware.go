package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// storedResponse is what the middleware keeps for a cached GET.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Middleware serves cacheable requests from c. Fresh hits are returned
// directly; stale hits are returned and refreshed in the background; misses
// run next and store successful responses.
type Middleware struct {
	cache  Cache
	opts   Options
	logger *zap.Logger
	group  singleflight.Group
}

// NewMiddleware builds a response cache middleware around c.
func NewMiddleware(c Cache, opts Options, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{cache: c, opts: opts, logger: logger}
}

// Wrap returns next with response caching applied.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil || !IsCacheable(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := KeyForRequest(r)
		entry, ok, err := m.cache.Get(r.Context(), key)
		if err != nil {
			m.logger.Warn("cache lookup failed",
				zap.String("op", "cache.Middleware"),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		if ok {
			var resp storedResponse
			if err := json.Unmarshal(entry.Value, &resp); err == nil {
				if entry.State == Stale {
					m.revalidate(r, key, next)
				}
				writeStored(w, resp, entry.State.String())
				return
			}
		}

		resp := m.render(r, next)
		if resp.Status == http.StatusOK {
			m.store(r.Context(), key, resp)
		}
		writeStored(w, resp, "miss")
	})
}

func (m *Middleware) render(r *http.Request, next http.Handler) storedResponse {
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, r)
	return storedResponse{
		Status:      rec.Code,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.Body.Bytes(),
	}
}

func (m *Middleware) store(ctx context.Context, key string, resp storedResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, key, raw, m.opts); err != nil {
		m.logger.Warn("cache store failed",
			zap.String("op", "cache.Middleware"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// revalidate refreshes key once in the background no matter how many stale
// hits arrive meanwhile.
func (m *Middleware) revalidate(r *http.Request, key string, next http.Handler) {
	ctx := context.WithoutCancel(r.Context())
	req := r.Clone(ctx)
	go func() {
		_, _, _ = m.group.Do(key, func() (interface{}, error) {
			resp := m.render(req, next)
			if resp.Status == http.StatusOK {
				m.store(ctx, key, resp)
			}
			return nil, nil
		})
	}()
}

func writeStored(w http.ResponseWriter, resp storedResponse, state string) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("X-Cache", state)
	w.WriteHeader(resp.Status)
	_, _ = bytes.NewReader(resp.Body).WriteTo(w)
}
