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

// Package options builds a *sql.DB from a driver name and DSN, applying
// connection pool settings through a small set of functional options so
// DBManager doesn't need to know the zero-value conventions of each knob.
package options

import (
	"database/sql"
	"time"
)

// connectOptions collects the pool settings a ConnectOption may set.
type connectOptions struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

// ConnectOption configures a connection pool setting for Connect.
type ConnectOption func(*connectOptions)

// ConnectWithMaxOpenConnNum sets the maximum number of open connections to
// the database. A non-positive value leaves database/sql's default (no
// limit) in place.
func ConnectWithMaxOpenConnNum(n int) ConnectOption {
	return func(o *connectOptions) { o.maxOpenConns = n }
}

// ConnectWithMaxIdleConnNum sets the maximum number of idle connections
// kept in the pool. A non-positive value leaves database/sql's default in
// place.
func ConnectWithMaxIdleConnNum(n int) ConnectOption {
	return func(o *connectOptions) { o.maxIdleConns = n }
}

// ConnectWithMaxConnLifetime sets the maximum amount of time a connection
// may be reused. A non-positive value leaves connections unbounded.
func ConnectWithMaxConnLifetime(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.connMaxLifetime = d }
}

// ConnectWithMaxIdleConnLifetime sets the maximum amount of time a
// connection may remain idle before being closed. A non-positive value
// leaves idle connections unbounded.
func ConnectWithMaxIdleConnLifetime(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.connMaxIdleTime = d }
}

// Connect opens a *sql.DB for driverName/dsn and applies opts to its
// connection pool. It pings the database once to surface DSN or network
// errors at connect time rather than on the first query.
func Connect(driverName, dsn string, opts ...ConnectOption) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	var cfg connectOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if cfg.maxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.maxIdleConns)
	}
	if cfg.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.connMaxLifetime)
	}
	if cfg.connMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
