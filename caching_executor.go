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

	"github.com/loom-sql/loom/cache"
)

// CachingExecutor wraps an Executor with a second-tier cache.Cache.
// QueryContext results are staged through a cache.TransactionalManager and
// only become visible to other readers on Commit; ExecContext invalidates
// the entire stage, since this executor doesn't track which statements a
// write actually affects.
type CachingExecutor[T any] struct {
	Executor[T]
	cache cache.TransactionalManager
	envID string
}

// NewCachingExecutor wraps inner with a cache.TransactionalManager built
// over store. Passing the same store across executors sharing a mapper
// namespace lets them share cached results. envID identifies the database
// environment inner runs against (Engine.EnvID), so the same statement run
// against two different environments that happen to share store never
// collides on the same key.
func NewCachingExecutor[T any](inner Executor[T], store cache.Cache, envID string) *CachingExecutor[T] {
	return &CachingExecutor[T]{
		Executor: inner,
		cache:    cache.NewTransactionalManager(store),
		envID:    envID,
	}
}

// QueryContext returns the cached result for this statement/param pair if
// present, otherwise delegates to the wrapped Executor and stages the
// result for future hits.
func (e *CachingExecutor[T]) QueryContext(ctx context.Context, p Param) (result T, err error) {
	key := newCacheKey(e.Statement(), e.Driver(), e.envID, p)
	if v, ok := e.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	result, err = e.Executor.QueryContext(ctx, p)
	if err != nil {
		return result, err
	}
	e.cache.Put(key, result)
	return result, nil
}

// ExecContext runs the write through the wrapped Executor, then clears the
// stage: a write statement may have changed rows any cached read touched,
// and this executor has no finer-grained invalidation than "forget
// everything cached under this namespace".
func (e *CachingExecutor[T]) ExecContext(ctx context.Context, p Param) (sql.Result, error) {
	result, err := e.Executor.ExecContext(ctx, p)
	if err != nil {
		return nil, err
	}
	e.cache.Clear()
	return result, nil
}

// Commit applies every staged cache write, making them visible to other
// readers of the shared store.
func (e *CachingExecutor[T]) Commit() error { return e.cache.Commit() }

// Rollback discards every staged cache write without touching the shared
// store.
func (e *CachingExecutor[T]) Rollback() error { return e.cache.Rollback() }

// ensure CachingExecutor implements Executor.
var _ Executor[any] = (*CachingExecutor[any])(nil)
