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

// Package ctxreducer chains small context-mutating steps into a single
// value that statement handlers can apply once before dispatching a query,
// instead of threading session and parameter values through every call.
package ctxreducer

import (
	"context"

	"github.com/loom-sql/loom/eval"
	"github.com/loom-sql/loom/session"
)

// ContextReducer mutates a context, typically by attaching a value to it.
type ContextReducer interface {
	Reduce(ctx context.Context) context.Context
}

// ContextReducerFunc adapts a plain function to the ContextReducer interface.
type ContextReducerFunc func(ctx context.Context) context.Context

// Reduce implements ContextReducer.
func (f ContextReducerFunc) Reduce(ctx context.Context) context.Context {
	return f(ctx)
}

// ContextReducerGroup applies a sequence of reducers in order, each seeing
// the context produced by the one before it.
type ContextReducerGroup []ContextReducer

// Reduce implements ContextReducer.
func (g ContextReducerGroup) Reduce(ctx context.Context) context.Context {
	for _, reducer := range g {
		ctx = reducer.Reduce(ctx)
	}
	return ctx
}

// G is a short alias for ContextReducerGroup, for call sites that build one inline.
type G = ContextReducerGroup

// NewParamContextReducer returns a ContextReducer that attaches param to the
// context, retrievable with eval.ParamFromContext.
func NewParamContextReducer(param eval.Param) ContextReducer {
	return ContextReducerFunc(func(ctx context.Context) context.Context {
		return eval.CtxWithParam(ctx, param)
	})
}

// NewSessionContextReducer returns a ContextReducer that attaches sess to
// the context, retrievable with session.FromContext.
func NewSessionContextReducer(sess session.Session) ContextReducer {
	return ContextReducerFunc(func(ctx context.Context) context.Context {
		return session.WithContext(ctx, sess)
	})
}
