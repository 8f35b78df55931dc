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

// Package driver describes the dialect-specific behavior a Statement needs
// to turn itself into executable SQL: its registered database/sql driver
// name, and a Translator that rewrites named placeholders into whatever
// positional syntax the dialect expects.
package driver

import (
	"fmt"
	"strconv"
	"sync"
)

// Translator rewrites one named placeholder occurrence at a time into the
// positional syntax a dialect expects. It is called once per placeholder in
// source order, so a Translator that counts occurrences (such as Postgres's
// $1, $2, ...) must keep that count on itself rather than on the Driver.
type Translator interface {
	// Translate returns the placeholder text to emit for the occurrence of
	// name. name is informational only; most dialects ignore it.
	Translate(name string) string
}

// Driver identifies a SQL dialect: the name it is registered under with
// database/sql, and the Translator used to build its placeholders.
type Driver interface {
	// Name returns the driver name as registered with database/sql, e.g.
	// "mysql" or "postgres". It is also exposed to dynamic SQL as the
	// _databaseId parameter, so statements can branch on dialect.
	Name() string

	// Translator returns a fresh Translator for a single statement build.
	// Implementations that carry placeholder state (such as Postgres's
	// incrementing counter) must not share a Translator across builds.
	Translator() Translator
}

// questionMarkTranslator emits the stateless "?" placeholder shared by
// MySQL and SQLite.
type questionMarkTranslator struct{}

func (questionMarkTranslator) Translate(_ string) string {
	return "?"
}

// MySQLDriver is the Driver for MySQL and MySQL-compatible servers,
// registered with database/sql under the name "mysql" by
// github.com/go-sql-driver/mysql.
type MySQLDriver struct{}

// Name implements Driver.
func (MySQLDriver) Name() string { return "mysql" }

// Translator implements Driver.
func (MySQLDriver) Translator() Translator { return questionMarkTranslator{} }

// SQLiteDriver is the Driver for SQLite, registered with database/sql under
// the name "sqlite3" by github.com/mattn/go-sqlite3.
type SQLiteDriver struct{}

// Name implements Driver.
func (*SQLiteDriver) Name() string { return "sqlite3" }

// Translator implements Driver.
func (*SQLiteDriver) Translator() Translator { return questionMarkTranslator{} }

// postgresTranslator emits Postgres's incrementing $1, $2, ... placeholders.
// It is stateful and must be created fresh for every statement build.
type postgresTranslator struct {
	mu    sync.Mutex
	count int
}

func (t *postgresTranslator) Translate(_ string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	return "$" + strconv.Itoa(t.count)
}

// PostgresDriver is the Driver for PostgreSQL, registered with database/sql
// under the name "postgres" by github.com/lib/pq.
type PostgresDriver struct{}

// Name implements Driver.
func (PostgresDriver) Name() string { return "postgres" }

// Translator implements Driver.
func (PostgresDriver) Translator() Translator { return &postgresTranslator{} }

var (
	mu       sync.RWMutex
	registry = make(map[string]Driver)
)

func init() {
	Register("mysql", MySQLDriver{})
	Register("sqlite3", &SQLiteDriver{})
	Register("postgres", PostgresDriver{})
}

// Register associates a Driver with the database/sql driver name it handles.
// Calling Register with a name already in use overwrites the previous entry,
// letting callers override a built-in (for example to add a custom
// Postgres-compatible dialect under its own name).
func Register(name string, drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = drv
}

// Get returns the Driver registered under name.
func Get(name string) (Driver, error) {
	mu.RLock()
	defer mu.RUnlock()
	drv, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("driver: unknown driver %q", name)
	}
	return drv, nil
}
