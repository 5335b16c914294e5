package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// RejectFunc writes the response for a request that exceeded its limit.
type RejectFunc func(w http.ResponseWriter, r *http.Request, info Info)

// Middleware applies the identifier's bucket to every request and sets the
// X-RateLimit-* headers on both accepted and rejected responses. A client over
// its cross-identifier ceiling is rejected before any bucket is touched.
func Middleware(l *Limiter, identifier string, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, _ Info) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if l.IsRateLimited(ip) {
				info := l.ipInfo(ip)
				setHeaders(w.Header(), info)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(l, info)))
				reject(w, r, info)
				return
			}

			info, err := l.Allow(ip, identifier)
			setHeaders(w.Header(), info)
			if err != nil {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(l, info)))
				reject(w, r, info)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setHeaders(h http.Header, info Info) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
}

func retryAfterSeconds(l *Limiter, info Info) int {
	seconds := int(info.Reset.Sub(l.now()).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// ClientIP returns the caller's address, preferring the first X-Forwarded-For
// hop, then X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
