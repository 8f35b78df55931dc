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
	"time"

	"github.com/karlseguin/ccache/v3"
)

// ccacheStore is an alternate base store backed by
// github.com/karlseguin/ccache/v3, selectable via WithStore for deployments
// that want ccache's pruning and access-count tracking instead of
// go-cache's simpler janitor.
type ccacheStore struct {
	id  string
	c   *ccache.Cache[any]
	ttl time.Duration
}

// NewCCacheStore returns a base store backed by ccache, capped at maxItems
// entries and expiring each entry after ttl (zero or negative means entries
// never expire and are only pruned for space).
func NewCCacheStore(id string, maxItems int64, ttl time.Duration) Cache {
	return &ccacheStore{
		id:  id,
		c:   ccache.New(ccache.Configure[any]().MaxSize(maxItems)),
		ttl: ttl,
	}
}

func (s *ccacheStore) ID() string { return s.id }

func (s *ccacheStore) Get(key any) (any, bool) {
	item := s.c.Get(fmt.Sprint(key))
	if item == nil || item.Expired() {
		return nil, false
	}
	return item.Value(), true
}

func (s *ccacheStore) Put(key, value any) {
	ttl := s.ttl
	if ttl <= 0 {
		// ccache expires an entry at now+ttl, so a zero ttl would expire it at once.
		ttl = 100 * 365 * 24 * time.Hour
	}
	s.c.Set(fmt.Sprint(key), value, ttl)
}

func (s *ccacheStore) Remove(key any) {
	s.c.Delete(fmt.Sprint(key))
}

func (s *ccacheStore) Clear() {
	s.c.Clear()
}
