// Package cache provides the response cache used by the API routes: an
// in-memory or redis store with a stale-while-revalidate window.
package cache

import (
	"context"
	"net/http"
	"time"
)

// State tells whether a hit is still fresh or only within its stale window.
type State int

const (
	Fresh State = iota
	Stale
)

func (s State) String() string {
	if s == Stale {
		return "stale"
	}
	return "fresh"
}

// Entry is a cache hit.
type Entry struct {
	Value []byte
	State State
}

// Options controls how long an item stays fresh and then stale.
type Options struct {
	MaxAge               time.Duration
	StaleWhileRevalidate time.Duration
}

// Cache is implemented by the memory and redis backends.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, value []byte, opts Options) error
	// Clear removes every key containing any of tags, or everything when no
	// tags are given. It returns the number of keys removed.
	Clear(ctx context.Context, tags ...string) (int, error)
	Ping(ctx context.Context) error
	Name() string
}

// KeyForRequest returns METHOD:path?query.
func KeyForRequest(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	return key
}

// IsCacheable reports whether r may be served from cache: GET requests
// without credentials only.
func IsCacheable(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return r.Header.Get("Authorization") == ""
}
