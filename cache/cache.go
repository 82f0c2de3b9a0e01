// Package cache memoizes expensive derived values with a time-based
// validity window.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	stamped  time.Time
	validity time.Duration
}

// Memo caches computed values per key until their validity window lapses or
// the key is invalidated.
type Memo[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     func() time.Time
}

// New creates an empty Memo.
func New[V any]() *Memo[V] {
	return &Memo[V]{entries: make(map[string]entry[V]), now: time.Now}
}

// GetOrCompute returns the cached value when its age is below ttl, otherwise
// runs compute and re-stamps the entry. Errors from compute are returned
// without caching.
func (m *Memo[V]) GetOrCompute(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && m.now().Sub(e.stamped) < e.validity {
		return e.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	m.entries[key] = entry[V]{value: v, stamped: m.now(), validity: ttl}
	return v, nil
}

// Invalidate clears the memo for a key unconditionally.
func (m *Memo[V]) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// SetClock overrides the time source. Intended for tests.
func (m *Memo[V]) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}
