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
	"fmt"

	"golang.org/x/sync/singleflight"
)

// BlockingCache wraps a Cache so that concurrent GetOrLoad calls for the
// same key, arriving after a miss and before the resulting Put, collapse
// into a single load: the loser callers block on the winner's singleflight
// call instead of each issuing their own query.
type BlockingCache struct {
	inner Cache
	group singleflight.Group
}

// NewBlockingCache wraps inner with per-key load suppression.
func NewBlockingCache(inner Cache) *BlockingCache {
	return &BlockingCache{inner: inner}
}

func (c *BlockingCache) ID() string { return c.inner.ID() }

func (c *BlockingCache) Get(key any) (any, bool) { return c.inner.Get(key) }

func (c *BlockingCache) Put(key, value any) { c.inner.Put(key, value) }

func (c *BlockingCache) Remove(key any) { c.inner.Remove(key) }

func (c *BlockingCache) Clear() { c.inner.Clear() }

// GetOrLoad returns the cached value for key if present; otherwise it calls
// load exactly once per outstanding miss on that key, stores the result,
// and returns it to every caller waiting on that key.
func (c *BlockingCache) GetOrLoad(key any, load func() (any, error)) (any, error) {
	if v, ok := c.inner.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.inner.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.inner.Put(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
