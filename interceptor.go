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
	"sort"
	"sync"

	sqllib "github.com/loom-sql/loom/sql"
)

// InterceptTarget names one of the construction sites an Interceptor can
// target: the four places loom builds an object that touches a statement on
// its way from call to result.
type InterceptTarget string

const (
	// TargetExecutor intercepts Executor.QueryContext/ExecContext, the
	// outermost site: everything the caller asked for, cache lookups and
	// parameter/result handling included, has already happened by the time
	// an Executor-targeted Invocation proceeds.
	TargetExecutor InterceptTarget = "Executor"

	// TargetStatementHandler intercepts StatementHandler.QueryContext/
	// ExecContext, the site that turns a Statement and its bound Param into
	// a SQL string and runs it against a session.Session.
	TargetStatementHandler InterceptTarget = "StatementHandler"

	// TargetParameterHandler intercepts the construction of the
	// eval.Parameter passed to Statement.Build, before the statement's
	// dynamic SQL and placeholders are resolved against it.
	TargetParameterHandler InterceptTarget = "ParameterHandler"

	// TargetResultSetHandler intercepts the raw *sql.Rows a query produced,
	// before it is returned to the caller for binding.
	TargetResultSetHandler InterceptTarget = "ResultSetHandler"
)

// Signature names one method on one construction site an Interceptor wants
// to observe. An Interceptor only sees Invocations matching one of its own
// Signatures; every other call proceeds untouched.
type Signature struct {
	Target InterceptTarget
	Method string
}

// Invocation carries one intercepted call through an Interceptor. Proceed
// continues the call - either to the next matching Interceptor in the
// chain, or, once the chain is exhausted, to the real construction site -
// and returns whatever that site returned.
type Invocation struct {
	Target  InterceptTarget
	Method  string
	Args    []any
	Context context.Context
	proceed func(ctx context.Context) (any, error)
}

// Proceed continues the intercepted call.
func (inv *Invocation) Proceed() (any, error) {
	return inv.proceed(inv.Context)
}

// Interceptor observes or replaces calls at the construction sites named by
// its Signatures. Unlike a Middleware, which always wraps QueryContext and
// ExecContext, an Interceptor is registered once against an InterceptorChain
// and only fires for the specific (target, method) pairs it declares.
type Interceptor interface {
	// Signatures lists the (target, method) pairs this Interceptor wants to
	// see. A call that matches none of them never reaches Intercept.
	Signatures() []Signature

	// Intercept handles one matching Invocation. Most implementations call
	// invocation.Proceed and inspect or adapt its result; an Interceptor
	// that never calls Proceed replaces the construction site outright.
	Intercept(invocation *Invocation) (any, error)

	// Order ranks this Interceptor relative to others matching the same
	// signature. Lower values run closer to the real construction site.
	Order() int
}

// InterceptorChain holds every Interceptor registered against an Engine and
// dispatches matching Invocations to them in Order.
type InterceptorChain struct {
	mu           sync.RWMutex
	interceptors []Interceptor
}

// NewInterceptorChain returns an empty InterceptorChain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// Add registers interceptor, re-sorting the chain by Order.
func (c *InterceptorChain) Add(interceptor Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, interceptor)
	sort.SliceStable(c.interceptors, func(i, j int) bool {
		return c.interceptors[i].Order() < c.interceptors[j].Order()
	})
}

func (c *InterceptorChain) matching(target InterceptTarget, method string) []Interceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var matched []Interceptor
	for _, interceptor := range c.interceptors {
		for _, signature := range interceptor.Signatures() {
			if signature.Target == target && signature.Method == method {
				matched = append(matched, interceptor)
				break
			}
		}
	}
	return matched
}

// Run calls proceed, wrapped by every registered Interceptor whose
// Signatures name (target, method), lowest Order closest to proceed. If
// chain is nil or nothing matches, it calls proceed directly.
func (c *InterceptorChain) Run(ctx context.Context, target InterceptTarget, method string, args []any, proceed func(ctx context.Context) (any, error)) (any, error) {
	if c == nil {
		return proceed(ctx)
	}
	matched := c.matching(target, method)
	if len(matched) == 0 {
		return proceed(ctx)
	}
	call := proceed
	for i := 0; i < len(matched); i++ {
		interceptor := matched[i]
		next := call
		call = func(ctx context.Context) (any, error) {
			return interceptor.Intercept(&Invocation{
				Target:  target,
				Method:  method,
				Args:    args,
				Context: ctx,
				proceed: next,
			})
		}
	}
	return call(ctx)
}

// interceptingExecutor wraps an Executor[T] with TargetExecutor, the
// outermost construction site.
type interceptingExecutor[T any] struct {
	Executor[T]
	chain *InterceptorChain
}

// NewInterceptingExecutor wraps inner so chain's TargetExecutor interceptors
// see its QueryContext and ExecContext calls.
func NewInterceptingExecutor[T any](inner Executor[T], chain *InterceptorChain) *interceptingExecutor[T] {
	return &interceptingExecutor[T]{Executor: inner, chain: chain}
}

func (e *interceptingExecutor[T]) QueryContext(ctx context.Context, p Param) (T, error) {
	result, err := e.chain.Run(ctx, TargetExecutor, "QueryContext", []any{p}, func(ctx context.Context) (any, error) {
		return e.Executor.QueryContext(ctx, p)
	})
	typed, _ := result.(T)
	return typed, err
}

func (e *interceptingExecutor[T]) ExecContext(ctx context.Context, p Param) (sql.Result, error) {
	result, err := e.chain.Run(ctx, TargetExecutor, "ExecContext", []any{p}, func(ctx context.Context) (any, error) {
		return e.Executor.ExecContext(ctx, p)
	})
	res, _ := result.(sql.Result)
	return res, err
}

var _ Executor[any] = (*interceptingExecutor[any])(nil)

// interceptingStatementHandler wraps a StatementHandler with
// TargetStatementHandler, the site that turns a Statement and a bound Param
// into SQL run against a session.
type interceptingStatementHandler struct {
	next  StatementHandler
	chain *InterceptorChain
}

// newInterceptingStatementHandler wraps next so chain's
// TargetStatementHandler interceptors see its QueryContext and ExecContext
// calls.
func newInterceptingStatementHandler(next StatementHandler, chain *InterceptorChain) StatementHandler {
	if chain == nil {
		return next
	}
	return &interceptingStatementHandler{next: next, chain: chain}
}

func (h *interceptingStatementHandler) QueryContext(ctx context.Context, statement Statement, param Param) (sqllib.Rows, error) {
	result, err := h.chain.Run(ctx, TargetStatementHandler, "QueryContext", []any{statement, param}, func(ctx context.Context) (any, error) {
		return h.next.QueryContext(ctx, statement, param)
	})
	rows, _ := result.(sqllib.Rows)
	return rows, err
}

func (h *interceptingStatementHandler) ExecContext(ctx context.Context, statement Statement, param Param) (sqllib.Result, error) {
	result, err := h.chain.Run(ctx, TargetStatementHandler, "ExecContext", []any{statement, param}, func(ctx context.Context) (any, error) {
		return h.next.ExecContext(ctx, statement, param)
	})
	res, _ := result.(sqllib.Result)
	return res, err
}

var _ StatementHandler = (*interceptingStatementHandler)(nil)
