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

import "container/ring"

// fifoCache is the eviction-policy decorator for EvictionPolicy FIFO. It
// tracks insertion order in a fixed-size container/ring buffer and evicts
// whatever key the ring's current slot last held before being overwritten,
// giving pure insertion-order eviction with no notion of recency.
type fifoCache struct {
	inner    Cache
	capacity int
	size     int
	cursor   *ring.Ring
}

func newFIFOCache(inner Cache, capacity int) *fifoCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &fifoCache{
		inner:    inner,
		capacity: capacity,
		cursor:   ring.New(capacity),
	}
}

func (c *fifoCache) ID() string { return c.inner.ID() }

func (c *fifoCache) Get(key any) (any, bool) {
	return c.inner.Get(key)
}

func (c *fifoCache) Put(key, value any) {
	if c.size >= c.capacity {
		if evicted := c.cursor.Value; evicted != nil {
			c.inner.Remove(evicted)
		}
	} else {
		c.size++
	}
	c.cursor.Value = key
	c.cursor = c.cursor.Next()
	c.inner.Put(key, value)
}

func (c *fifoCache) Remove(key any) {
	c.inner.Remove(key)
}

func (c *fifoCache) Clear() {
	c.inner.Clear()
	c.cursor = ring.New(c.capacity)
	c.size = 0
}
