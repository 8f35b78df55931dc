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
	"fmt"
	"reflect"

	sqllib "github.com/loom-sql/loom/sql"
)

var lazyPtrType = reflect.TypeOf((*sqllib.Lazy)(nil))

// nestedQueryResolver implements sqllib.NestedQueryResolver by running the
// nested statement named by a ResultMapping.NestedQueryId through the same
// Manager that produced the owning row, mirroring how MyBatis resolves a
// <association>/<collection select="..."> against the session that loaded
// the parent.
type nestedQueryResolver struct {
	ctx     context.Context
	manager Manager
}

var _ sqllib.NestedQueryResolver = (*nestedQueryResolver)(nil)

// ResolveNestedQuery implements sqllib.NestedQueryResolver. When the
// destination field is declared as *sql.Lazy, the nested statement is
// always deferred behind it regardless of lazy, since that declaration is
// itself the opt-in to deferred loading; there is no reflection-based way
// to defer population of an ordinarily-typed field without a generated
// proxy, so any other field type is always resolved eagerly.
func (n *nestedQueryResolver) ResolveNestedQuery(field reflect.Value, nestedQueryID string, columnValue any, lazy bool) error {
	if field.Type() == lazyPtrType {
		field.Set(reflect.ValueOf(sqllib.NewLazy(func() (any, error) {
			v, err := n.run(nestedQueryID, columnValue, n.nestedType(nestedQueryID))
			if err != nil {
				return nil, err
			}
			if !v.IsValid() {
				return nil, nil
			}
			return v.Interface(), nil
		})))
		return nil
	}

	value, err := n.run(nestedQueryID, columnValue, field.Type())
	if err != nil {
		return err
	}
	if value.IsValid() {
		field.Set(value)
	}
	return nil
}

// nestedType reports the Go type a nested statement's own result map binds
// into, falling back to map[string]any when the statement declares no
// explicit result map (the shape a *sql.Lazy field settles for absent a
// concrete type to bind).
func (n *nestedQueryResolver) nestedType(nestedQueryID string) reflect.Type {
	exe := n.manager.Object(nestedQueryID)
	if exe == nil {
		return reflect.TypeOf(map[string]any{})
	}
	statement := exe.Statement()
	if statement == nil {
		return reflect.TypeOf(map[string]any{})
	}
	resultMap, err := statement.ResultMap()
	if err != nil {
		return reflect.TypeOf(map[string]any{})
	}
	nested, ok := resultMap.(*sqllib.NestedResultMap)
	if !ok {
		return reflect.TypeOf(map[string]any{})
	}
	return nested.Type
}

// run executes nestedQueryID with columnValue as its sole parameter and
// binds the resulting rows into targetType via sqllib.BindType.
func (n *nestedQueryResolver) run(nestedQueryID string, columnValue any, targetType reflect.Type) (reflect.Value, error) {
	exe := n.manager.Object(nestedQueryID)
	if exe == nil {
		return reflect.Value{}, fmt.Errorf("loom: nested query %q not found", nestedQueryID)
	}
	rows, err := exe.QueryContext(n.ctx, columnValue)
	if err != nil {
		return reflect.Value{}, err
	}
	defer func() { _ = rows.Close() }()
	return sqllib.BindType(targetType, rows)
}
