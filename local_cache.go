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

package loom

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrCircularNestedQuery is returned when resolving a NestedQueryId
// association re-enters the very same statement/param/environment that is
// still being resolved further up the call stack.
var ErrCircularNestedQuery = errors.New("loom: circular nested query reference")

// localCachePlaceholder occupies a CacheKey's slot in the first-tier cache
// for the duration of the QueryContext call that is resolving it. A second,
// nested call that lands on the same key while the placeholder is still
// there is a circular reference (a nested query whose own parameters route
// back to a statement already in flight), not a legitimate cache hit.
type localCachePlaceholder struct{}

// localCache is loom's first-tier cache: the cache an Engine (or a single
// transaction) keeps across every statement call made through it, mirroring
// MyBatis's per-SqlSession local cache. Unlike the second-tier cache.Cache,
// it is never shared across Engines and never persists past the owning
// Engine/transaction.
type localCache struct {
	mu      sync.Mutex
	scope   LocalCacheScope
	entries map[CacheKey]any
	// depth counts QueryContext calls currently in flight, including
	// nested ones triggered while resolving a NestedQueryId association.
	// It only reaches 0 again once the outermost call returns, which is
	// when a LocalCacheScopeStatement cache is cleared.
	depth int
}

func newLocalCache(scope LocalCacheScope) *localCache {
	return &localCache{scope: scope, entries: make(map[CacheKey]any)}
}

// enter records the start of a QueryContext call, returning a func to
// call when it returns (successfully or not).
func (c *localCache) enter() func() {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.depth--
		if c.depth == 0 && c.scope == LocalCacheScopeStatement {
			clear(c.entries)
		}
		c.mu.Unlock()
	}
}

// state reports what occupies key: a cached value, the in-flight
// placeholder, or nothing.
func (c *localCache) state(key CacheKey) (value any, placeholder, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	if _, isPlaceholder := v.(localCachePlaceholder); isPlaceholder {
		return nil, true, true
	}
	return v, false, true
}

func (c *localCache) markInFlight(key CacheKey) {
	c.mu.Lock()
	c.entries[key] = localCachePlaceholder{}
	c.mu.Unlock()
}

func (c *localCache) put(key CacheKey, value any) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *localCache) remove(key CacheKey) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// clearAll drops every entry, used by ClearCache and by any write that runs
// through this cache's owning Engine/transaction.
func (c *localCache) clearAll() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// LocalCacheExecutor wraps an Executor with loom's first-tier cache. It is
// layered under CachingExecutor (closer to the statement handler) when both
// are used, so the second-tier store is consulted first and only its misses
// reach the first-tier cache, matching MyBatis's cache ordering.
type LocalCacheExecutor[T any] struct {
	Executor[T]
	cache *localCache
	envID string
}

// NewLocalCacheExecutor wraps inner with cache, scoped to the Engine or
// transaction identified by envID.
func NewLocalCacheExecutor[T any](inner Executor[T], cache *localCache, envID string) *LocalCacheExecutor[T] {
	return &LocalCacheExecutor[T]{Executor: inner, cache: cache, envID: envID}
}

// QueryContext returns the first-tier cached result for this statement/
// param pair when present, detects circular nested-query references, and
// otherwise delegates to the wrapped Executor, caching its result before
// returning it.
func (e *LocalCacheExecutor[T]) QueryContext(ctx context.Context, p Param) (result T, err error) {
	leave := e.cache.enter()
	defer leave()

	key := newCacheKey(e.Statement(), e.Driver(), e.envID, p)

	value, placeholder, found := e.cache.state(key)
	if placeholder {
		return result, ErrCircularNestedQuery
	}
	if found {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}

	e.cache.markInFlight(key)
	result, err = e.Executor.QueryContext(ctx, p)
	if err != nil {
		e.cache.remove(key)
		return result, err
	}
	e.cache.put(key, result)
	return result, nil
}

// ExecContext runs the write through the wrapped Executor, then drops every
// first-tier entry: a write may have changed rows any cached read touched,
// and the first-tier cache (like the second-tier one) has no finer
// invalidation than clearing everything staged under this Engine/
// transaction.
func (e *LocalCacheExecutor[T]) ExecContext(ctx context.Context, p Param) (sql.Result, error) {
	result, err := e.Executor.ExecContext(ctx, p)
	e.cache.clearAll()
	return result, err
}

// ensure LocalCacheExecutor implements Executor.
var _ Executor[any] = (*LocalCacheExecutor[any])(nil)
