/*
Copyright 2025 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache implements the engine's second-tier result cache: a small
// Cache interface realized by a fixed stack of decorators layered over a
// pluggable base store, built by New.
//
// The stack, outermost first, is: synchronized, logging, size-limited,
// eviction-policy, scheduled-clear (only when WithClearInterval is above
// zero), base store; WithBlocking adds a BlockingCache around all of it.
// The synchronized and logging layers are always present, so a Cache
// returned by New is always safe for concurrent use and always logs its
// get/put/remove/clear traffic, regardless of which base store or eviction
// policy the caller picked. Evictions made by the policy layer are not
// logged.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is the second-tier result cache an Executor stages writes through.
type Cache interface {
	// ID identifies the cache, typically the owning mapper's namespace.
	ID() string

	// Get returns the value stored under key, and whether it was present.
	Get(key any) (any, bool)

	// Put stores value under key, replacing whatever was there.
	Put(key, value any)

	// Remove deletes the entry stored under key, if any.
	Remove(key any)

	// Clear removes every entry.
	Clear()
}

// EvictionPolicy selects which decorator enforces the capacity ceiling a
// size-limited cache delegates eviction to.
type EvictionPolicy int

const (
	// LRU evicts the least recently used entry, backed by
	// github.com/hashicorp/golang-lru/v2.
	LRU EvictionPolicy = iota
	// FIFO evicts the oldest inserted entry, backed by a container/ring
	// buffer in the teacher's style.
	FIFO
)

// config collects the options New applies while assembling the decorator
// stack.
type config struct {
	id            string
	capacity      int
	policy        EvictionPolicy
	store         Cache
	logger        *logrus.Logger
	clearInterval time.Duration
	blocking      bool
}

// Option configures New.
type Option func(*config)

// WithCapacity sets the maximum number of entries the eviction-policy
// decorator admits before evicting. The default is 1000.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithEvictionPolicy selects which policy the eviction-policy decorator
// enforces. The default is LRU.
func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithStore overrides the base store. The default is an in-memory
// github.com/patrickmn/go-cache store; github.com/karlseguin/ccache/v3 is
// selectable via NewCCacheStore.
func WithStore(store Cache) Option {
	return func(c *config) { c.store = store }
}

// WithLogger overrides the logger the logging decorator writes hit/miss/put
// events to. The default is logrus.StandardLogger().
func WithLogger(logger *logrus.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithClearInterval sets how often the scheduled-clear decorator wipes the
// cache entirely. Zero disables scheduled clearing.
func WithClearInterval(d time.Duration) Option {
	return func(c *config) { c.clearInterval = d }
}

// WithBlocking composes a BlockingCache (singleflight-backed) outermost,
// around the synchronized layer, so concurrent misses for the same key
// collapse into a single load.
func WithBlocking() Option {
	return func(c *config) { c.blocking = true }
}

// New builds a Cache for the given namespace id, applying opts over the
// defaults described on each Option.
func New(id string, opts ...Option) Cache {
	cfg := config{
		id:       id,
		capacity: 1000,
		policy:   LRU,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = NewGoCacheStore(id, 0)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.StandardLogger()
	}

	var c Cache = cfg.store

	if cfg.clearInterval > 0 {
		c = newScheduledClearCache(c, cfg.clearInterval)
	}

	switch cfg.policy {
	case FIFO:
		c = newFIFOCache(c, cfg.capacity)
	default:
		c = newLRUCache(c, cfg.capacity)
	}

	c = newSizeLimitedCache(c, cfg.capacity)
	c = newLoggingCache(c, cfg.logger)
	c = newSynchronizedCache(c)

	if cfg.blocking {
		c = NewBlockingCache(c)
	}

	return c
}

// synchronizedCache serializes access to an inner Cache with a RWMutex,
// the outermost decorator in every stack so no base store or policy
// decorator needs to be concurrency-safe on its own.
type synchronizedCache struct {
	mu    sync.RWMutex
	inner Cache
}

func newSynchronizedCache(inner Cache) *synchronizedCache {
	return &synchronizedCache{inner: inner}
}

func (c *synchronizedCache) ID() string { return c.inner.ID() }

func (c *synchronizedCache) Get(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Get(key)
}

func (c *synchronizedCache) Put(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Put(key, value)
}

func (c *synchronizedCache) Remove(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

func (c *synchronizedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Clear()
}

// loggingCache reports hit/miss/put/remove/clear events at debug level,
// tagged with the cache's id so multiple mapper caches can be told apart
// in a shared log stream.
type loggingCache struct {
	inner  Cache
	logger *logrus.Logger
}

func newLoggingCache(inner Cache, logger *logrus.Logger) *loggingCache {
	return &loggingCache{inner: inner, logger: logger}
}

func (c *loggingCache) ID() string { return c.inner.ID() }

func (c *loggingCache) Get(key any) (any, bool) {
	v, ok := c.inner.Get(key)
	c.logger.WithFields(logrus.Fields{
		"cache_tier": c.inner.ID(),
		"key":        fmt.Sprint(key),
		"hit":        ok,
	}).Debug("cache get")
	return v, ok
}

func (c *loggingCache) Put(key, value any) {
	c.inner.Put(key, value)
	c.logger.WithFields(logrus.Fields{
		"cache_tier": c.inner.ID(),
		"key":        fmt.Sprint(key),
	}).Debug("cache put")
}

func (c *loggingCache) Remove(key any) {
	c.inner.Remove(key)
	c.logger.WithFields(logrus.Fields{
		"cache_tier": c.inner.ID(),
		"key":        fmt.Sprint(key),
	}).Debug("cache remove")
}

func (c *loggingCache) Clear() {
	c.inner.Clear()
	c.logger.WithField("cache_tier", c.inner.ID()).Debug("cache clear")
}

// sizeLimitedCache passes every call straight through to the inner cache:
// it neither refuses new keys nor evicts, and its capacity field is not
// consulted. Capacity enforcement is delegated entirely to the
// eviction-policy decorator beneath it, which tracks its own size and
// evicts on Put. This decorator exists as the named seam a caller can
// intercept (via a custom Cache passed to WithStore further down the
// stack) to observe or reject admission before the policy layer ever sees
// the key.
type sizeLimitedCache struct {
	inner    Cache
	capacity int
}

func newSizeLimitedCache(inner Cache, capacity int) *sizeLimitedCache {
	return &sizeLimitedCache{inner: inner, capacity: capacity}
}

func (c *sizeLimitedCache) ID() string                { return c.inner.ID() }
func (c *sizeLimitedCache) Get(key any) (any, bool)    { return c.inner.Get(key) }
func (c *sizeLimitedCache) Put(key, value any)         { c.inner.Put(key, value) }
func (c *sizeLimitedCache) Remove(key any)             { c.inner.Remove(key) }
func (c *sizeLimitedCache) Clear()                     { c.inner.Clear() }

// scheduledClearCache wipes the inner cache on a fixed interval using a
// background ticker, the coarse-grained counterpart to the base store's
// own per-entry TTL.
type scheduledClearCache struct {
	inner Cache
}

func newScheduledClearCache(inner Cache, interval time.Duration) *scheduledClearCache {
	c := &scheduledClearCache{inner: inner}
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			c.inner.Clear()
		}
	}()
	return c
}

func (c *scheduledClearCache) ID() string             { return c.inner.ID() }
func (c *scheduledClearCache) Get(key any) (any, bool) { return c.inner.Get(key) }
func (c *scheduledClearCache) Put(key, value any)      { c.inner.Put(key, value) }
func (c *scheduledClearCache) Remove(key any)          { c.inner.Remove(key) }
func (c *scheduledClearCache) Clear()                  { c.inner.Clear() }
