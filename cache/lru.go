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

package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// lruCache is the eviction-policy decorator for EvictionPolicy LRU. It
// keeps its own bounded index of keys and evicts the least recently used
// one on overflow, mirroring the put into the wrapped store so both stay
// in sync.
type lruCache struct {
	inner Cache
	index *lru.Cache[any, struct{}]
}

func newLRUCache(inner Cache, capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 1000
	}
	c := &lruCache{inner: inner}
	index, _ := lru.NewWithEvict[any, struct{}](capacity, func(key any, _ struct{}) {
		c.inner.Remove(key)
	})
	c.index = index
	return c
}

func (c *lruCache) ID() string { return c.inner.ID() }

func (c *lruCache) Get(key any) (any, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.index.Get(key) // touch to mark recently used
	}
	return v, ok
}

func (c *lruCache) Put(key, value any) {
	c.inner.Put(key, value)
	c.index.Add(key, struct{}{})
}

func (c *lruCache) Remove(key any) {
	c.inner.Remove(key)
	c.index.Remove(key)
}

func (c *lruCache) Clear() {
	c.inner.Clear()
	c.index.Purge()
}
