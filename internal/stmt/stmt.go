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

// Package stmt reaches into the unexported query string a *sql.Stmt was
// prepared with, so a statement handler that caches a single prepared
// statement can tell whether it still matches the query about to run
// without keeping a parallel copy of that string itself.
package stmt

import (
	"database/sql"
	"reflect"
	"unsafe"
)

// Query returns the query string s was prepared with. It returns the empty
// string for a nil s.
func Query(s *sql.Stmt) string {
	if s == nil {
		return ""
	}
	v := reflect.ValueOf(s).Elem().FieldByName("query")
	if !v.IsValid() || v.Kind() != reflect.String {
		return ""
	}
	v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	return v.String()
}
