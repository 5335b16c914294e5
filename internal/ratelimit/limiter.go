// Package ratelimit implements per-client token buckets keyed by IP address
// and route identifier.
package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/calculator-hub/internal/config"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"go.uber.org/zap"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 1 * time.Hour
)

// ErrLimitExceeded is returned when a bucket has no tokens left.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Rule allows Limit requests per Interval.
type Rule struct {
	Limit    int
	Interval time.Duration
}

// Info describes the bucket state after a check.
type Info struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

type ipWindow struct {
	count     int
	resetTime time.Time
}

// Limiter holds token buckets for every ip:identifier pair seen.
type Limiter struct {
	mu          sync.Mutex
	logger      *zap.Logger
	rules       map[string]Rule
	fallback    Rule
	buckets     map[string]*bucket
	ipRequests  map[string]*ipWindow
	uniquePerIP int
	now         func() time.Time
	noCleanup   bool
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithRule sets the rule for one identifier.
func WithRule(identifier string, rule Rule) Option {
	return func(l *Limiter) {
		l.rules[identifier] = rule
	}
}

// WithUniqueTokenPerInterval sets the per-IP ceiling used by IsRateLimited.
func WithUniqueTokenPerInterval(n int) Option {
	return func(l *Limiter) {
		l.uniquePerIP = n
	}
}

// WithoutCleanup disables the background cleanup goroutine.
func WithoutCleanup() Option {
	return func(l *Limiter) {
		l.noCleanup = true
	}
}

// New creates a Limiter and starts its cleanup loop. Call Stop to end it.
func New(logger *zap.Logger, opts ...Option) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Limiter{
		logger:      logger,
		rules:       make(map[string]Rule),
		fallback:    Rule{Limit: 60, Interval: time.Minute},
		buckets:     make(map[string]*bucket),
		ipRequests:  make(map[string]*ipWindow),
		uniquePerIP: constants.DefaultRateLimitPerIP,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if !l.noCleanup {
		go l.cleanupLoop()
	}
	return l
}

// Rule returns the rule applied to identifier.
func (l *Limiter) Rule(identifier string) Rule {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ruleLocked(identifier)
}

func (l *Limiter) ruleLocked(identifier string) Rule {
	if rule, ok := l.rules[identifier]; ok && rule.Limit > 0 && rule.Interval > 0 {
		return rule
	}
	return l.fallback
}

// Allow consumes one token from the ip:identifier bucket. When the bucket is
// empty it returns ErrLimitExceeded together with the current Info.
func (l *Limiter) Allow(ip, identifier string) (Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule := l.ruleLocked(identifier)
	now := l.now()
	key := ip + ":" + identifier

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rule.Limit, lastRefill: now}
		l.buckets[key] = b
	}

	// Refill whole tokens only and keep the remainder of the elapsed time.
	perToken := rule.Interval / time.Duration(rule.Limit)
	if perToken <= 0 {
		perToken = time.Nanosecond
	}
	if elapsed := now.Sub(b.lastRefill); elapsed >= perToken {
		add := int(elapsed / perToken)
		b.tokens += add
		if b.tokens >= rule.Limit {
			b.tokens = rule.Limit
			b.lastRefill = now
		} else {
			b.lastRefill = b.lastRefill.Add(time.Duration(add) * perToken)
		}
	}

	info := Info{Limit: rule.Limit, Reset: b.lastRefill.Add(rule.Interval)}
	if b.tokens < 1 {
		info.Remaining = 0
		l.logger.Debug("rate limit exceeded",
			zap.String("op", "ratelimit.Allow"),
			zap.String("ip", ip),
			zap.String("identifier", identifier),
		)
		return info, ErrLimitExceeded
	}

	b.tokens--
	info.Remaining = b.tokens

	w, ok := l.ipRequests[ip]
	if !ok || now.After(w.resetTime) {
		w = &ipWindow{resetTime: now.Add(rule.Interval)}
		l.ipRequests[ip] = w
	}
	w.count++

	return info, nil
}

// IsRateLimited reports whether ip has exhausted its cross-identifier allowance
// for the current window.
func (l *Limiter) IsRateLimited(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.ipRequests[ip]
	if !ok {
		return false
	}
	if l.now().After(w.resetTime) {
		delete(l.ipRequests, ip)
		return false
	}
	return w.count >= l.uniquePerIP
}

// ipInfo describes ip's cross-identifier window.
func (l *Limiter) ipInfo(ip string) Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	info := Info{Limit: l.uniquePerIP, Remaining: l.uniquePerIP, Reset: now}
	w, ok := l.ipRequests[ip]
	if !ok || now.After(w.resetTime) {
		return info
	}
	info.Remaining = max(0, l.uniquePerIP-w.count)
	info.Reset = w.resetTime
	return info
}

// Reset forgets every bucket and counter for ip.
func (l *Limiter) Reset(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.ipRequests, ip)
	removed := 0
	prefix := ip + ":"
	for key := range l.buckets {
		if strings.HasPrefix(key, prefix) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCleanup)
	})
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > bucketCleanupThreshold {
			delete(l.buckets, key)
		}
	}
	for ip, w := range l.ipRequests {
		if now.After(w.resetTime) {
			delete(l.ipRequests, ip)
		}
	}
}

// RulesFromConfig converts the configured rate limits into limiter options.
func RulesFromConfig(cfg *config.Configuration) []Option {
	if cfg == nil {
		return nil
	}
	rules := cfg.RateLimitRules()
	opts := make([]Option, 0, len(rules)+1)
	for id, rule := range rules {
		opts = append(opts, WithRule(id, Rule{Limit: rule.Limit, Interval: rule.Interval}))
	}
	if cfg.RateLimitPerIP > 0 {
		opts = append(opts, WithUniqueTokenPerInterval(cfg.RateLimitPerIP))
	}
	return opts
}
