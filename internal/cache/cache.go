// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package cache implements bounded, TTL-based caches scoped to a single
// tracer instance. Caches are never shared across instances; a Manager
// owns its named caches and its background sweep goroutine exclusively.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Named caches used by the rest of the tracer. Kept here so every
// caller references the same string instead of re-typing it.
const (
	AttributeNormalization = "attribute_normalization"
	ResourceDetection      = "resource_detection"
	ConfigResolution       = "config_resolution"
)

// Config controls a Manager's bounded caches.
type Config struct {
	Enabled bool
	// MaxSize bounds the attribute_normalization cache (zero or less
	// selects 1000); resource_detection and config_resolution are
	// always bounded at 100 entries.
	MaxSize int
	// SweepInterval is how often expired entries are pruned in the
	// background. Zero selects the default of 60s.
	SweepInterval time.Duration
}

type entry struct {
	key    string
	value  any
	expiry time.Time
	elem   *list.Element
}

// TTLCache is a bounded, TTL-expiring cache with least-recently-inserted
// eviction. All methods are safe for concurrent use. A TTLCache never
// propagates an internal error: callers always see either a value or a
// miss.
type TTLCache struct {
	mu      sync.Mutex
	items   map[string]*entry
	order   *list.List // front = oldest insertion
	maxSize int
	ttl     time.Duration
}

func newTTLCache(maxSize int, ttl time.Duration) *TTLCache {
	return &TTLCache{
		items:   make(map[string]*entry),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key, or ok=false on a miss or
// expired entry. Expired entries are pruned lazily here.
func (c *TTLCache) Get(key string) (value any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.items[key]
	if !found {
		return nil, false
	}
	if time.Now().After(e.expiry) {
		c.removeLocked(e)
		return nil, false
	}
	return e.value, true
}

// Put inserts or overwrites key with value, resetting its TTL. If the
// cache is at capacity, the least-recently-inserted entry is evicted.
func (c *TTLCache) Put(key string, value any) {
	if c.maxSize == 0 {
		// Zero-capacity cache (the disabled stand-in): never retains
		// anything, so every subsequent Get is a guaranteed miss.
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.items[key]; found {
		c.removeLocked(existing)
	}

	for c.maxSize > 0 && len(c.items) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
	}

	e := &entry{key: key, value: value, expiry: time.Now().Add(c.ttl)}
	e.elem = c.order.PushBack(e)
	c.items[key] = e
}

// removeLocked removes e from both the map and the order list. Callers
// must hold c.mu.
func (c *TTLCache) removeLocked(e *entry) {
	delete(c.items, e.key)
	c.order.Remove(e.elem)
}

// pruneExpired drops every entry whose TTL has elapsed. Invoked by the
// Manager's background sweep.
func (c *TTLCache) pruneExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		e := el.Value.(*entry)
		if now.After(e.expiry) {
			c.removeLocked(e)
		}
	}
}

// Len reports the number of live entries, including not-yet-pruned
// expired ones.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// spec for a named cache: its size bound and TTL.
type cacheSpec struct {
	maxSize int
	ttl     time.Duration
}

// defaultSpecs mirrors spec.md §4.3's named caches.
func defaultSpecs(maxSize int) map[string]cacheSpec {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return map[string]cacheSpec{
		AttributeNormalization: {maxSize: maxSize, ttl: 5 * time.Minute},
		ResourceDetection:      {maxSize: 100, ttl: time.Hour},
		ConfigResolution:       {maxSize: 100, ttl: 15 * time.Minute},
	}
}

// Manager owns a fixed set of named TTLCaches for exactly one tracer
// instance, plus the background sweep goroutine that prunes them.
type Manager struct {
	enabled bool
	caches  map[string]*TTLCache
	mu      sync.RWMutex

	stop chan struct{}
	once sync.Once
}

// NewManager constructs a Manager with the standard named caches. When
// cfg.Enabled is false, every Cache() lookup behaves as a permanent
// miss and Put is a no-op — callers must still go through Cache() so
// the escape hatch lives in one place (spec.md §4.3 "Conditional use").
func NewManager(cfg Config) *Manager {
	m := &Manager{
		enabled: cfg.Enabled,
		caches:  make(map[string]*TTLCache),
		stop:    make(chan struct{}),
	}
	for name, spec := range defaultSpecs(cfg.MaxSize) {
		m.caches[name] = newTTLCache(spec.maxSize, spec.ttl)
	}

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if m.enabled {
		go m.sweepLoop(interval)
	}
	return m
}

func (m *Manager) sweepLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			now := time.Now()
			m.mu.RLock()
			for _, c := range m.caches {
				c.pruneExpired(now)
			}
			m.mu.RUnlock()
		case <-m.stop:
			return
		}
	}
}

// Cache returns the named cache, or a disabled stand-in when caching is
// turned off for this instance. Unknown names get a fresh cache lazily,
// bounded at 1000 entries with a 5-minute TTL (defensive; callers
// should only use the exported constants).
func (m *Manager) Cache(name string) *TTLCache {
	if !m.enabled {
		return disabledCache
	}
	m.mu.RLock()
	c, ok := m.caches[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.caches[name]; ok {
		return c
	}
	c = newTTLCache(1000, 5*time.Minute)
	m.caches[name] = c
	return c
}

// Enabled reports whether this manager's caches are active. This check
// is a plain field read — it must never itself consult a cache, or
// config resolution (which calls it) would recurse (spec.md §9).
func (m *Manager) Enabled() bool { return m.enabled }

// Close stops the background sweep. Idempotent.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

// disabledCache is a shared TTLCache with zero capacity: every Put is
// immediately evicted and every Get misses, giving callers the same
// code path whether or not caching is enabled.
var disabledCache = newTTLCache(0, 0)
