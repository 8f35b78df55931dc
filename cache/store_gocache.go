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

	gocache "github.com/patrickmn/go-cache"
)

// goCacheStore is the default base store, an in-memory map with per-entry
// TTL backed by github.com/patrickmn/go-cache. Keys are stringified with
// fmt.Sprint since go-cache is keyed by string.
type goCacheStore struct {
	id string
	c  *gocache.Cache
}

// NewGoCacheStore returns a base store backed by go-cache. expiration is
// the per-entry TTL; zero means entries never expire on their own (the
// scheduled-clear decorator, if configured, is still in effect).
func NewGoCacheStore(id string, expiration time.Duration) Cache {
	return &goCacheStore{
		id: id,
		c:  gocache.New(expiration, expiration),
	}
}

func (s *goCacheStore) ID() string { return s.id }

func (s *goCacheStore) Get(key any) (any, bool) {
	return s.c.Get(fmt.Sprint(key))
}

func (s *goCacheStore) Put(key, value any) {
	s.c.SetDefault(fmt.Sprint(key), value)
}

func (s *goCacheStore) Remove(key any) {
	s.c.Delete(fmt.Sprint(key))
}

func (s *goCacheStore) Clear() {
	s.c.Flush()
}
