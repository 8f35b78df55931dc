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

// Package typehandler converts between a database/sql driver value and a
// Go field value for the column/field pairs the built-in reflective
// conversion in assignScalar cannot handle on its own, such as uuid.UUID
// columns or timestamps a driver hands back as a loosely formatted string.
//
// Registry.Lookup chooses a handler by the Go field type it produces and,
// optionally, a column type name. Handlers registered without a column type
// act as the fallback for that Go type regardless of the column type. The
// result mapper looks handlers up with no column type, so only those
// fallback registrations take part in row mapping.
package typehandler

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// TypeHandler converts a Go value to a driver-bound value on the way out,
// and a raw scanned value back to a Go value of the handled type on the
// way in.
type TypeHandler interface {
	// Set converts v, a value of the handled Go type, into a value
	// database/sql can bind as a query argument.
	Set(v reflect.Value) (driver.Value, error)

	// Get converts src, a value database/sql produced when scanning a
	// column, into a reflect.Value of the handled Go type.
	Get(src any) (reflect.Value, error)
}

type key struct {
	typ        reflect.Type
	columnType string
}

// Registry looks up a TypeHandler by the Go type it produces and,
// optionally, the driver-reported column type.
type Registry struct {
	handlers map[key]TypeHandler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[key]TypeHandler)}
}

// Register associates h with t and, if columnType is non-empty, narrows
// that association to columns the driver reports under that type name.
// Registering again with the same (t, columnType) replaces the handler.
func (r *Registry) Register(t reflect.Type, columnType string, h TypeHandler) {
	r.handlers[key{typ: t, columnType: columnType}] = h
}

// Lookup returns the handler for t, preferring one registered for
// columnType exactly and falling back to the wildcard (empty columnType)
// registration.
func (r *Registry) Lookup(t reflect.Type, columnType string) (TypeHandler, bool) {
	if columnType != "" {
		if h, ok := r.handlers[key{typ: t, columnType: columnType}]; ok {
			return h, true
		}
	}
	h, ok := r.handlers[key{typ: t}]
	return h, ok
}

// Default is the package-level registry consulted by the result mapper.
// User types registered with RegisterTypeHandler take priority over the
// builtins registered in init, since Register overwrites by key.
var Default = NewRegistry()

// RegisterTypeHandler registers h for t on the Default registry, to be used
// for every column mapped into a field of type t regardless of the
// driver-reported column type.
func RegisterTypeHandler(t reflect.Type, h TypeHandler) {
	Default.Register(t, "", h)
}

func init() {
	Default.Register(reflect.TypeOf(uuid.UUID{}), "", uuidTypeHandler{})
	Default.Register(reflect.TypeOf(time.Time{}), "", flexibleTimeTypeHandler{})
}

// uuidTypeHandler binds and scans uuid.UUID columns, stored as their
// canonical 36-character string form.
type uuidTypeHandler struct{}

func (uuidTypeHandler) Set(v reflect.Value) (driver.Value, error) {
	id, ok := v.Interface().(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("typehandler: expected uuid.UUID, got %s", v.Type())
	}
	return id.String(), nil
}

func (uuidTypeHandler) Get(src any) (reflect.Value, error) {
	switch s := src.(type) {
	case string:
		id, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("typehandler: %w", err)
		}
		return reflect.ValueOf(id), nil
	case []byte:
		id, err := uuid.ParseBytes(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("typehandler: %w", err)
		}
		return reflect.ValueOf(id), nil
	case uuid.UUID:
		return reflect.ValueOf(s), nil
	default:
		return reflect.Value{}, fmt.Errorf("typehandler: cannot convert %T to uuid.UUID", src)
	}
}

// flexibleTimeTypeHandler scans time.Time columns using a lenient parser,
// for drivers (commonly SQLite with a TEXT-typed date column) that hand
// back timestamps in a format database/sql's own conversions reject.
type flexibleTimeTypeHandler struct{}

func (flexibleTimeTypeHandler) Set(v reflect.Value) (driver.Value, error) {
	t, ok := v.Interface().(time.Time)
	if !ok {
		return nil, fmt.Errorf("typehandler: expected time.Time, got %s", v.Type())
	}
	return t, nil
}

func (flexibleTimeTypeHandler) Get(src any) (reflect.Value, error) {
	switch s := src.(type) {
	case time.Time:
		return reflect.ValueOf(s), nil
	case string:
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("typehandler: %w", err)
		}
		return reflect.ValueOf(t), nil
	case []byte:
		t, err := dateparse.ParseAny(string(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("typehandler: %w", err)
		}
		return reflect.ValueOf(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("typehandler: cannot convert %T to time.Time", src)
	}
}
