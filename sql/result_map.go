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

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sync"

	"github.com/loom-sql/loom/internal/reflectlite"
	"github.com/loom-sql/loom/typehandler"
)

var (
	// ErrTooManyRows is returned when the result set has too many rows but only one was expected.
	ErrTooManyRows = errors.New("sql: too many rows in result set")
)

// RowScanner lets a destination type take over scanning a row (or a whole
// result set) from the driver itself, bypassing struct-tag based mapping.
type RowScanner interface {
	ScanRows(rows Rows) error
}

// ResultMap maps the rows of a query to a Go value. It is the strategy used
// by the binder once a RowScanner has been ruled out.
type ResultMap interface {
	MapTo(rv reflect.Value, rows Rows) error
}

// SingleRowResultMap is a ResultMap that maps exactly one row to a non-slice destination.
type SingleRowResultMap struct{}

// MapTo implements ResultMap.
func (SingleRowResultMap) MapTo(rv reflect.Value, rows Rows) error {
	if rv.Kind() != reflect.Ptr {
		return ErrPointerRequired
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error occurred while fetching row: %w", err)
		}
		return sql.ErrNoRows
	}

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	}

	columnDest := &rowDestination{}

	dest, err := columnDest.Destination(rv, columns)
	if err != nil {
		return fmt.Errorf("failed to create destination mapping: %w", err)
	}

	if err = rows.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error occurred during row scanning: %w", err)
	}

	if rows.Next() {
		return ErrTooManyRows
	}

	return nil
}

// resultMapPreserveNilSlice controls whether an empty result set leaves the
// destination slice nil instead of replacing it with an empty, non-nil slice.
var resultMapPreserveNilSlice = os.Getenv("LOOM_RESULT_MAP_PRESERVE_NIL_SLICE") == "true"

// MultiRowsResultMap is a ResultMap that maps every row in the result set to
// a new element appended to a slice destination.
type MultiRowsResultMap struct {
	New func() reflect.Value
}

// MapTo implements ResultMap.
func (m MultiRowsResultMap) MapTo(rv reflect.Value, rows Rows) error {
	if err := m.validateInput(rv); err != nil {
		return err
	}

	target := rv.Elem()

	elementType := target.Type().Elem()
	isPointer, isElementImplementsScanner := m.resolveTypes(elementType)

	if m.New == nil {
		targetElementType := elementType
		if isPointer {
			targetElementType = targetElementType.Elem()
		}
		m.New = func() reflect.Value { return reflect.New(targetElementType) }
	}

	values, err := m.mapRows(rows, isPointer, isElementImplementsScanner)
	if err != nil {
		return err
	}

	if len(values) > 0 {
		target.Grow(len(values))
		target.Set(reflect.Append(target, values...))
	} else if !resultMapPreserveNilSlice {
		target.Set(reflect.MakeSlice(target.Type(), 0, 0))
	}
	return nil
}

func (m MultiRowsResultMap) validateInput(rv reflect.Value) error {
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("%w: expected pointer to slice", ErrPointerRequired)
	}
	if rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("expected pointer to slice, got pointer to %v", rv.Elem().Kind())
	}
	return nil
}

func (m MultiRowsResultMap) resolveTypes(elementType reflect.Type) (bool, bool) {
	isPointer := elementType.Kind() == reflect.Ptr
	pointerType := elementType
	if !isPointer {
		pointerType = reflect.PointerTo(elementType)
	}
	return isPointer, isImplementsRowScanner(pointerType)
}

func (m MultiRowsResultMap) mapRows(rows Rows, isPointer bool, useScanner bool) ([]reflect.Value, error) {
	if useScanner {
		return m.mapWithRowScanner(rows, isPointer)
	}
	return m.mapWithColumnDestination(rows, isPointer)
}

func (m MultiRowsResultMap) mapWithRowScanner(rows Rows, isPointer bool) ([]reflect.Value, error) {
	values := make([]reflect.Value, 0, 8)

	for rows.Next() {
		newValue := m.New()
		if err := newValue.Interface().(RowScanner).ScanRows(rows); err != nil {
			return nil, fmt.Errorf("failed to scan row using RowScanner: %w", err)
		}
		if isPointer {
			values = append(values, newValue)
		} else {
			values = append(values, newValue.Elem())
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred while iterating rows: %w", err)
	}

	return values, nil
}

func (m MultiRowsResultMap) mapWithColumnDestination(rows Rows, isPointer bool) ([]reflect.Value, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnDest := &rowDestination{}
	values := make([]reflect.Value, 0, 8)

	for rows.Next() {
		newValue := m.New()

		dest, err := columnDest.Destination(newValue, columns)
		if err != nil {
			return nil, fmt.Errorf("failed to get destination: %w", err)
		}

		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if isPointer {
			values = append(values, newValue)
		} else {
			values = append(values, newValue.Elem())
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred while iterating rows: %w", err)
	}

	return values, nil
}

// isImplementsRowScanner reports whether t (a pointer type) implements RowScanner.
func isImplementsRowScanner(t reflect.Type) bool {
	return t.Implements(reflect.TypeOf((*RowScanner)(nil)).Elem())
}

// ColumnDestination returns scan destinations for a row given its columns.
type ColumnDestination interface {
	Destination(rv reflect.Value, column []string) ([]any, error)
}

// sink discards columns that have no matching struct field.
var sink any

// columnTagName is the struct tag used to map database columns to struct fields.
var columnTagName = cmp.Or(os.Getenv("LOOM_COLUMN_TAG_NAME"), "column")

// SetColumnTagName overrides the struct tag used for column-to-field mapping.
func SetColumnTagName(tagName string) {
	if tagName == "" {
		panic("column tag name cannot be empty")
	}
	columnTagName = tagName
}

// rowDestination maps database columns to struct fields by caching the
// field-index path for every column position.
type rowDestination struct {
	indexes [][]int
	checked bool
	dest    []any
}

// Destination implements ColumnDestination.
func (s *rowDestination) Destination(rv reflect.Value, columns []string) ([]any, error) {
	dest, err := s.destination(rv, columns)
	if err != nil {
		return nil, err
	}
	if !s.checked {
		if err = checkDestination(dest); err != nil {
			return nil, err
		}
		s.checked = true
	}
	return dest, nil
}

func (s *rowDestination) destinationForOneColumn(rv reflect.Value, columns []string) ([]any, error) {
	if rv.Elem().Type() == timeType || rv.Type().Implements(scannerType) {
		return []any{rv.Interface()}, nil
	}
	if reflect.Indirect(rv).Kind() == reflect.Struct {
		return s.destinationForStruct(rv, columns)
	}
	return []any{rv.Interface()}, nil
}

func (s *rowDestination) destination(rv reflect.Value, columns []string) ([]any, error) {
	if len(columns) == 1 {
		return s.destinationForOneColumn(rv, columns)
	}
	kind := reflect.Indirect(rv).Kind()
	if kind == reflect.Struct {
		return s.destinationForStruct(rv, columns)
	}
	return nil, fmt.Errorf("expected struct, but got %s", kind)
}

func (s *rowDestination) destinationForStruct(rv reflect.Value, columns []string) ([]any, error) {
	rv = reflect.Indirect(rv)
	if len(s.indexes) == 0 {
		s.setIndexes(rv, columns)
	}
	if s.dest == nil {
		s.dest = make([]any, len(columns))
	} else {
		clear(s.dest)
	}
	for i, indexes := range s.indexes {
		if len(indexes) == 0 {
			s.dest[i] = &sink
		} else {
			s.dest[i] = rv.FieldByIndex(indexes).Addr().Interface()
		}
	}
	return s.dest, nil
}

func (s *rowDestination) setIndexes(rv reflect.Value, columns []string) {
	tp := rv.Type()
	s.indexes = make([][]int, len(columns))

	columnIndex := make(map[string]int, len(columns))
	for i, column := range columns {
		columnIndex[column] = i
	}

	s.findFromStruct(tp, columnIndex, nil)
}

func (s *rowDestination) findFromStruct(tp reflect.Type, columnIndex map[string]int, walk []int) {
	finished := func() bool {
		return slices.IndexFunc(s.indexes, func(v []int) bool { return len(v) == 0 }) == -1
	}

	for i := 0; i < tp.NumField(); i++ {
		if finished() {
			break
		}
		field := tp.Field(i)
		tag := field.Tag.Get(columnTagName)
		if skip := tag == "" && !field.Anonymous || tag == "-"; skip {
			continue
		}
		if deepScan := field.Anonymous && field.Type.Kind() == reflect.Struct && len(tag) == 0; deepScan {
			s.findFromStruct(field.Type, columnIndex, append(append([]int(nil), walk...), i))
			continue
		}
		index, ok := columnIndex[tag]
		if !ok {
			continue
		}
		s.indexes[index] = append(walk, field.Index...)
	}
}

var errRawBytesScan = errors.New("sql: RawBytes isn't allowed on scan")

func checkDestination(dest []any) error {
	for _, dp := range dest {
		if _, ok := dp.(*sql.RawBytes); ok {
			return errRawBytesScan
		}
	}
	return nil
}

// --- Declarative result maps -------------------------------------------------
//
// NestedResultMap is the declarative counterpart to ResultMap, shaped after a
// MyBatis <resultMap> element. Unlike ResultMap (which scans a
// single flat row into a single destination), a NestedResultMap knows how to group
// repeated rows belonging to the same logical entity (via an id column),
// populate nested associations and collections from the very same row, and
// pick between alternative ResultMaps using a discriminator column. The
// executor uses it when a Statement's ResultMap returns one; the XML parser
// builds none (it does not read <resultMap> elements), so XML and raw
// statements keep using the plain struct-tag-based ResultMap above.

// ResultMapping describes how a single column (or a nested property path)
// is populated on the destination struct.
type ResultMapping struct {
	// Column is the result-set column that feeds this mapping.
	Column string
	// Property is the destination struct field, addressed with the same
	// dotted-path syntax used by parameter binding (e.g. "address.city").
	Property string
	// ID marks this mapping as (part of) the row's identity. ID columns are
	// used to decide whether two rows belong to the same logical entity when
	// collapsing repeated joined rows into nested collections.
	ID bool
	// Nested is set when this mapping is itself an association (single
	// nested object) or a collection (repeated nested objects) produced by
	// a join; it is nil for plain scalar columns.
	Nested *NestedResultMap
	// Collection marks Nested as a slice-valued property rather than a
	// single embedded struct.
	Collection bool
	// NestedQueryId names another mapped statement that populates this
	// property, mirroring MyBatis's <association>/<collection select="...">:
	// unlike Nested, which joins columns already present in this row,
	// NestedQueryId triggers a second statement keyed off NestedQueryColumn.
	// Mutually exclusive with Nested.
	NestedQueryId string
	// NestedQueryColumn is the column of the current row passed as the
	// nested statement's parameter. Only meaningful when NestedQueryId is set.
	NestedQueryColumn string
	// ResultSetName marks Nested as a collection populated from a later
	// result set of the same query (database/sql's Rows.NextResultSet)
	// rather than columns joined into this row, mirroring MyBatis's
	// <collection resultSet="...">. Requires Collection and Nested; Column
	// names this row's join key and ForeignColumn names the matching column
	// in the secondary result set.
	ResultSetName string
	// ForeignColumn is the column in the ResultSetName result set that
	// correlates back to this mapping's Column on the owning row.
	ForeignColumn string
}

// Discriminator picks one of several candidate ResultMaps based on the
// value of a column, mirroring MyBatis's <discriminator>/<case> construct.
type Discriminator struct {
	// Column is the column whose string value drives the choice.
	Column string
	// Cases maps a column value to the NestedResultMap that should be used for
	// rows carrying that value.
	Cases map[string]*NestedResultMap
	// Default is used when the column's value has no entry in Cases.
	Default *NestedResultMap
}

// NestedResultMap is a declarative result map: the Go type it produces, the
// column-to-property mappings that
// populate it, and an optional discriminator for polymorphic row shapes.
type NestedResultMap struct {
	// ID is the resultMap's own id, unique within its mapper namespace.
	ID string
	// Type is the Go type a single logical row maps to.
	Type reflect.Type
	// Mappings lists every column-to-property mapping, including nested
	// associations/collections.
	Mappings []ResultMapping
	// Discriminator, if set, is evaluated before Mappings to select an
	// alternative NestedResultMap for the current row.
	Discriminator *Discriminator
	// Resolver runs a NestedQueryId mapping's statement. It is nil until
	// whatever builds this NestedResultMap from a live Configuration (rather
	// than a bare literal, as in tests) attaches one; a NestedQueryId
	// mapping with no Resolver fails with ErrNestedQueryResolverNotSet.
	Resolver NestedQueryResolver
	// LazyLoading controls whether NestedQueryId mappings defer their
	// statement until the property is first read (via Lazy.Get) or run it
	// immediately while mapping the owning row.
	LazyLoading bool
}

// ErrNestedQueryResolverNotSet is returned when a NestedResultMap mapping
// names a NestedQueryId but no NestedQueryResolver has been attached to
// resolve it.
var ErrNestedQueryResolverNotSet = errors.New("sql: nested query resolver not set")

// NestedQueryResolver runs the mapped statement named nestedQueryID with
// columnValue as its parameter and sets field to the result, directly when
// lazy is false, or to a *Lazy loader when lazy is true. It lets
// NestedResultMap trigger a second statement without this package depending
// on loom's Statement/Manager types.
type NestedQueryResolver interface {
	ResolveNestedQuery(field reflect.Value, nestedQueryID string, columnValue any, lazy bool) error
}

// Lazy is a deferred single-value load: Get runs fn on its first call and
// caches the result (or error) for every call after, so two reads of the
// same lazy association return the identical value rather than re-running
// its statement.
type Lazy struct {
	once sync.Once
	fn   func() (any, error)
	val  any
	err  error
}

// NewLazy returns a Lazy that runs fn on its first Get.
func NewLazy(fn func() (any, error)) *Lazy {
	return &Lazy{fn: fn}
}

// Get returns the loaded value, running fn at most once.
func (l *Lazy) Get() (any, error) {
	l.once.Do(func() {
		l.val, l.err = l.fn()
	})
	return l.val, l.err
}

// LazyAs runs l.Get and asserts the result to T, the ergonomic counterpart
// to a struct field typed *sql.Lazy for callers that know the concrete type
// they expect back.
func LazyAs[T any](l *Lazy) (T, error) {
	var zero T
	v, err := l.Get()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("sql: lazy value is %T, not %T", v, zero)
	}
	return t, nil
}

// resolve returns the NestedResultMap that actually applies to a row, following
// the discriminator chain (a discriminated NestedResultMap may itself discriminate
// further, so this walks until a map with no discriminator is reached or the
// column value is absent from the row).
func (r *NestedResultMap) resolve(row map[string]any) *NestedResultMap {
	current := r
	for current.Discriminator != nil {
		v, ok := row[current.Discriminator.Column]
		if !ok {
			break
		}
		key := fmt.Sprintf("%v", v)
		next, ok := current.Discriminator.Cases[key]
		if !ok {
			next = current.Discriminator.Default
		}
		if next == nil {
			break
		}
		current = next
	}
	return current
}

// identity computes the row's identity key from the ID-flagged mappings of
// the resolved NestedResultMap. Two rows with the same identity are folded into
// the same logical entity when populating a collection.
func (r *NestedResultMap) identity(row map[string]any) (string, bool) {
	var found bool
	var id string
	for _, m := range r.Mappings {
		if !m.ID {
			continue
		}
		v, ok := row[m.Column]
		if !ok {
			continue
		}
		found = true
		id += fmt.Sprintf("%v\x00", v)
	}
	return id, found
}

// MapRow populates dest (a non-pointer struct value, addressable) from a
// single result-set row represented as a column-name-to-value map, following
// this NestedResultMap's discriminator and mappings.
func (r *NestedResultMap) MapRow(dest reflect.Value, row map[string]any) error {
	resolved := r.resolve(row)
	for _, mapping := range resolved.Mappings {
		if err := resolved.applyMapping(dest, mapping, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *NestedResultMap) applyMapping(dest reflect.Value, mapping ResultMapping, row map[string]any) error {
	if mapping.NestedQueryId != "" {
		return r.applyNestedQueryMapping(dest, mapping, row)
	}
	if mapping.Nested != nil {
		return r.applyNestedMapping(dest, mapping, row)
	}
	v, ok := row[mapping.Column]
	if !ok || v == nil {
		return nil
	}
	field, err := fieldByPath(dest, mapping.Property)
	if err != nil {
		return err
	}
	return assignScalar(field, v)
}

func (r *NestedResultMap) applyNestedMapping(dest reflect.Value, mapping ResultMapping, row map[string]any) error {
	field, err := fieldByPath(dest, mapping.Property)
	if err != nil {
		return err
	}
	if mapping.Collection {
		elemType := field.Type().Elem()
		elem := reflect.New(elemType).Elem()
		if err := mapping.Nested.MapRow(elem, row); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return mapping.Nested.MapRow(field.Elem(), row)
	}
	return mapping.Nested.MapRow(field, row)
}

// applyNestedQueryMapping resolves a NestedQueryId mapping through the
// NestedResultMap's Resolver, deferring the nested statement behind a Lazy
// when LazyLoading is set.
func (r *NestedResultMap) applyNestedQueryMapping(dest reflect.Value, mapping ResultMapping, row map[string]any) error {
	if r.Resolver == nil {
		return fmt.Errorf("%w: %s", ErrNestedQueryResolverNotSet, mapping.NestedQueryId)
	}
	field, err := fieldByPath(dest, mapping.Property)
	if err != nil {
		return err
	}
	columnValue, ok := row[mapping.NestedQueryColumn]
	if !ok || columnValue == nil {
		return nil
	}
	return r.Resolver.ResolveNestedQuery(field, mapping.NestedQueryId, columnValue, r.LazyLoading)
}

// fieldByPath resolves a dotted property path against a struct value,
// allocating intermediate pointer fields as needed.
func fieldByPath(v reflect.Value, path string) (reflect.Value, error) {
	indexes, ok := reflectlite.TypeFrom(v.Type()).GetFieldIndexesFromTag(columnTagName, path)
	if ok {
		return v.FieldByIndex(indexes), nil
	}
	field := v.FieldByName(path)
	if !field.IsValid() {
		return reflect.Value{}, fmt.Errorf("sql: no field for property %q on %s", path, v.Type())
	}
	return field, nil
}

func assignScalar(field reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	if h, ok := typehandler.Default.Lookup(field.Type(), ""); ok {
		converted, err := h.Get(v)
		if err != nil {
			return fmt.Errorf("sql: %w", err)
		}
		field.Set(converted)
		return nil
	}
	return fmt.Errorf("sql: cannot assign %s to field of type %s", rv.Type(), field.Type())
}

// RowsToMaps converts remaining rows in the result set into column-name
// keyed maps, which is the representation MapRow consumes. It is the bridge
// between the database/sql scanning model and the declarative NestedResultMap.
func RowsToMaps(rows Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MapRows maps every row in rows into a slice of the NestedResultMap's Type,
// collapsing rows that share the same identity into a single logical
// element with its nested collections populated from every contributing
// row, in the MyBatis nested-resultMap tradition.
func (r *NestedResultMap) MapRows(rows Rows) ([]reflect.Value, error) {
	values, _, err := r.mapRowsWithKeys(rows)
	return values, err
}

// mapRowsWithKeys does what MapRows does, additionally returning the row
// that established each folded element's identity (the first row that
// matched it), keyed in the same order as values. That row is what
// resultSetMappings joins subsequent result sets against, since the row's
// join-key column may not be one the struct itself exposes.
func (r *NestedResultMap) mapRowsWithKeys(rows Rows) ([]reflect.Value, []map[string]any, error) {
	maps, err := RowsToMaps(rows)
	if err != nil {
		return nil, nil, err
	}

	var (
		order   []string
		byID    = make(map[string]reflect.Value)
		keyRow  = make(map[string]map[string]any)
		noID    []reflect.Value
		noIDRow []map[string]any
	)

	for _, row := range maps {
		resolved := r.resolve(row)
		id, hasID := resolved.identity(row)
		if !hasID {
			dest := reflect.New(resolved.Type).Elem()
			if err := resolved.MapRow(dest, row); err != nil {
				return nil, nil, err
			}
			noID = append(noID, dest)
			noIDRow = append(noIDRow, row)
			continue
		}
		existing, ok := byID[id]
		if !ok {
			existing = reflect.New(resolved.Type).Elem()
			byID[id] = existing
			keyRow[id] = row
			order = append(order, id)
		}
		if err := resolved.MapRow(existing, row); err != nil {
			return nil, nil, err
		}
	}

	values := make([]reflect.Value, 0, len(order)+len(noID))
	rows2 := make([]map[string]any, 0, len(order)+len(noID))
	for _, id := range order {
		values = append(values, byID[id])
		rows2 = append(rows2, keyRow[id])
	}
	values = append(values, noID...)
	rows2 = append(rows2, noIDRow...)
	return values, rows2, nil
}

// resultSetMappings returns this NestedResultMap's own mappings (not those
// of a discriminated variant) that join a collection against a later result
// set rather than columns already present in this one.
func (r *NestedResultMap) resultSetMappings() []ResultMapping {
	var out []ResultMapping
	for _, m := range r.Mappings {
		if m.ResultSetName != "" {
			out = append(out, m)
		}
	}
	return out
}

// joinResultSets advances rows past the primary result set and, for every
// mapping naming a ResultSetName, folds the next result set's rows into the
// matching element of values by comparing ForeignColumn against the keyRow
// captured for that element, mirroring MyBatis's multi-<resultSet> joins.
func (r *NestedResultMap) joinResultSets(rows Rows, values []reflect.Value, keyRows []map[string]any) error {
	mappings := r.resultSetMappings()
	for _, mapping := range mappings {
		if !rows.NextResultSet() {
			continue
		}
		secondaryMaps, err := RowsToMaps(rows)
		if err != nil {
			return err
		}
		for i, dest := range values {
			keyRow := keyRows[i]
			if keyRow == nil {
				continue
			}
			joinValue, ok := keyRow[mapping.Column]
			if !ok {
				continue
			}
			field, err := fieldByPath(dest, mapping.Property)
			if err != nil {
				return err
			}
			elemType := field.Type().Elem()
			for _, secondaryRow := range secondaryMaps {
				if fmt.Sprintf("%v", secondaryRow[mapping.ForeignColumn]) != fmt.Sprintf("%v", joinValue) {
					continue
				}
				elem := reflect.New(elemType).Elem()
				if err := mapping.Nested.MapRow(elem, secondaryRow); err != nil {
					return err
				}
				field.Set(reflect.Append(field, elem))
			}
		}
	}
	return nil
}

// MapTo implements ResultMap, letting a NestedResultMap stand in wherever a
// plain struct-tag-based ResultMap is expected. rv must be a pointer to
// either the NestedResultMap's Type (for a single logical row) or a slice of
// it (for every logical row, after identity folding).
func (r *NestedResultMap) MapTo(rv reflect.Value, rows Rows) error {
	if rv.Kind() != reflect.Ptr {
		return ErrPointerRequired
	}

	target := rv.Elem()
	hasResultSets := len(r.resultSetMappings()) > 0

	if target.Kind() == reflect.Slice {
		values, keyRows, err := r.mapRowsWithKeys(rows)
		if err != nil {
			return err
		}
		if hasResultSets {
			if err := r.joinResultSets(rows, values, keyRows); err != nil {
				return err
			}
		}
		elementType := target.Type().Elem()
		isPointer := elementType.Kind() == reflect.Ptr
		target.Set(reflect.MakeSlice(target.Type(), 0, len(values)))
		for _, v := range values {
			if isPointer {
				ptr := reflect.New(elementType.Elem())
				ptr.Elem().Set(v)
				target.Set(reflect.Append(target, ptr))
			} else {
				target.Set(reflect.Append(target, v))
			}
		}
		return nil
	}

	maps, err := RowsToMaps(rows)
	if err != nil {
		return err
	}
	if len(maps) == 0 {
		return sql.ErrNoRows
	}
	if err := r.MapRow(target, maps[0]); err != nil {
		return err
	}
	if hasResultSets {
		return r.joinResultSets(rows, []reflect.Value{target}, []map[string]any{maps[0]})
	}
	return nil
}
