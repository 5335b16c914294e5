package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/constants"
)

type memoryItem struct {
	key        string
	value      []byte
	freshUntil time.Time
	staleUntil time.Time
	element    *list.Element
}

// Memory is an in-process cache that evicts the oldest inserted key once
// maxItems is reached.
type Memory struct {
	mu       sync.Mutex
	items    map[string]*memoryItem
	order    *list.List
	maxItems int
	defaults Options
	now      func() time.Time
}

// NewMemory creates a memory cache. Zero values fall back to the package defaults.
func NewMemory(maxItems int, defaults Options) *Memory {
	if maxItems <= 0 {
		maxItems = constants.DefaultCacheMaxItems
	}
	return &Memory{
		items:    make(map[string]*memoryItem),
		order:    list.New(),
		maxItems: maxItems,
		defaults: withDefaults(defaults, Options{}),
		now:      time.Now,
	}
}

func withDefaults(opts, fallback Options) Options {
	if opts.MaxAge <= 0 {
		opts.MaxAge = fallback.MaxAge
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = constants.DefaultCacheMaxAge
	}
	if opts.StaleWhileRevalidate <= 0 {
		opts.StaleWhileRevalidate = fallback.StaleWhileRevalidate
	}
	if opts.StaleWhileRevalidate <= 0 {
		opts.StaleWhileRevalidate = constants.DefaultCacheStaleWhileRevalidate
	}
	return opts
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ping(context.Context) error { return nil }

// Get returns the value for key. Items past their stale window are removed.
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return Entry{}, false, nil
	}

	now := m.now()
	switch {
	case now.Before(item.freshUntil):
		return Entry{Value: item.value, State: Fresh}, true, nil
	case now.Before(item.staleUntil):
		return Entry{Value: item.value, State: Stale}, true, nil
	default:
		m.removeLocked(item)
		return Entry{}, false, nil
	}
}

// Set stores value under key, replacing any previous value.
func (m *Memory) Set(_ context.Context, key string, value []byte, opts Options) error {
	opts = withDefaults(opts, m.defaults)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.items[key]; ok {
		m.removeLocked(existing)
	}
	for len(m.items) >= m.maxItems {
		oldest := m.order.Front()
		if oldest == nil {
			break
		}
		m.removeLocked(oldest.Value.(*memoryItem))
	}

	now := m.now()
	item := &memoryItem{
		key:        key,
		value:      append([]byte(nil), value...),
		freshUntil: now.Add(opts.MaxAge),
		staleUntil: now.Add(opts.MaxAge + opts.StaleWhileRevalidate),
	}
	item.element = m.order.PushBack(item)
	m.items[key] = item
	return nil
}

// Clear removes matching keys.
func (m *Memory) Clear(_ context.Context, tags ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tags) == 0 {
		n := len(m.items)
		m.items = make(map[string]*memoryItem)
		m.order.Init()
		return n, nil
	}

	removed := 0
	for key, item := range m.items {
		if containsAny(key, tags) {
			m.removeLocked(item)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored items, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) removeLocked(item *memoryItem) {
	m.order.Remove(item.element)
	delete(m.items, item.key)
}

func containsAny(key string, tags []string) bool {
	for _, tag := range tags {
		if tag != "" && strings.Contains(key, tag) {
			return true
		}
	}
	return false
}
