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

package sql

import "reflect"

// bindWithResultMap scans rows into a freshly allocated *T using the given
// ResultMap and returns the pointer as a reflect.Value, ready for the caller
// to dereference or keep as-is depending on whether T itself is a pointer.
func bindWithResultMap(t reflect.Type, rows Rows, resultMap ResultMap) (reflect.Value, error) {
	isPtr := t.Kind() == reflect.Ptr

	allocType := t
	if isPtr {
		allocType = t.Elem()
	}

	ptr := reflect.New(allocType)

	if scanner, ok := ptr.Interface().(RowScanner); ok {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return reflect.Value{}, err
			}
			return reflect.Value{}, ErrNilRows
		}
		if err := scanner.ScanRows(rows); err != nil {
			return reflect.Value{}, err
		}
	} else if err := resultMap.MapTo(ptr, rows); err != nil {
		return reflect.Value{}, err
	}

	if isPtr {
		return ptr, nil
	}
	return ptr.Elem(), nil
}

// BindWithResultMap binds the rows of a query to a value of type T using the
// given ResultMap. T may be a struct, a pointer to a struct, a slice of
// either, or a basic type, mirroring the shapes that Bind supports.
func BindWithResultMap[T any](rows Rows, resultMap ResultMap) (result T, err error) {
	t := reflect.TypeFor[T]()

	if t.Kind() == reflect.Slice {
		ptr := reflect.New(t)
		if err = resultMap.MapTo(ptr, rows); err != nil {
			return result, err
		}
		result, _ = ptr.Elem().Interface().(T)
		return result, nil
	}

	v, err := bindWithResultMap(t, rows, resultMap)
	if err != nil {
		return result, err
	}
	result, _ = v.Interface().(T)
	return result, nil
}

// BindType binds rows into a freshly allocated value of t (a struct, a
// pointer to a struct, or a slice of either) using the default, struct-tag
// based mapping strategy, the same shapes BindWithResultMap[T] supports but
// without requiring the caller to know t at compile time. NestedResultMap
// uses it to bind a NestedQueryId association's result into whatever Go
// type the destination field declares.
func BindType(t reflect.Type, rows Rows) (reflect.Value, error) {
	if t.Kind() == reflect.Slice {
		ptr := reflect.New(t)
		if err := (MultiRowsResultMap{}).MapTo(ptr, rows); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	resultMap := ResultMap(SingleRowResultMap{})
	return bindWithResultMap(t, rows, resultMap)
}

// defaultResultMap picks the struct-tag based ResultMap appropriate for T:
// MultiRowsResultMap for slice types, SingleRowResultMap otherwise.
func defaultResultMap[T any]() ResultMap {
	if reflect.TypeFor[T]().Kind() == reflect.Slice {
		return MultiRowsResultMap{}
	}
	return SingleRowResultMap{}
}

// Bind converts the rows of a query to a value of type T using the default,
// struct-tag-based mapping strategy. T may be a struct, a pointer to a
// struct, a slice of either, or a basic type.
func Bind[T any](rows Rows) (result T, err error) {
	return BindWithResultMap[T](rows, defaultResultMap[T]())
}

// List converts the rows of a query to a slice of values of type T. Unlike
// Bind, List always returns a slice, even for a single logical row, and
// never requires the caller to pick a slice type parameter.
func List[T any](rows Rows) (result []T, err error) {
	return Bind[[]T](rows)
}

// List2 converts the rows of a query to a slice of pointers to values of
// type T, avoiding a copy of each element relative to List.
func List2[T any](rows Rows) ([]*T, error) {
	return Bind[[]*T](rows)
}
