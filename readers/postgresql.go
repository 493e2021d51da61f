//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/shopspring/decimal"

	"github.com/aaronlmathis/aerodw/core"
)

// Default extract queries for the AIMS and AMOS schemas. Rows are ordered on
// every selected column, so rows that still tie are identical records and
// slot conflicts are resolved the same way on every run.
const (
	FlightsQuery = `SELECT aircraftregistration, scheduleddeparture, scheduledarrival,
       actualdeparture, actualarrival, cancelled
FROM AIMS.flights
ORDER BY scheduleddeparture, aircraftregistration, actualdeparture, actualarrival,
       scheduledarrival, cancelled`

	MaintenanceQuery = `SELECT aircraftregistration, scheduleddeparture, scheduledarrival, programmed
FROM AIMS.maintenance
ORDER BY scheduleddeparture, aircraftregistration, scheduledarrival, programmed`

	ReportsQuery = `SELECT aircraftregistration, reportingdate, reporteurid, reporteurclass
FROM AMOS.postflightreports
ORDER BY reportingdate, aircraftregistration, reporteurid, reporteurclass`
)

// PostgresReaderError provides structured error information for Postgres reader operations
type PostgresReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "query", "scan", "read")
	Err error  // Underlying error
}

func (e *PostgresReaderError) Error() string {
	return fmt.Sprintf("postgres reader %s: %v", e.Op, e.Err)
}

func (e *PostgresReaderError) Unwrap() error {
	return e.Err
}

// PostgresReaderStats holds statistics about the Postgres reader's performance
type PostgresReaderStats struct {
	RecordsRead     int64
	QueryDuration   time.Duration
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// PostgresReaderOptions configures the Postgres reader
type PostgresReaderOptions struct {
	DSN             string        // Database connection string, ignored when DB is set
	DB              *sqlx.DB      // Shared connection pool
	Query           string        // SQL query to execute
	Params          []interface{} // Optional query parameters
	MaxOpenConns    int           // Maximum open connections
	MaxIdleConns    int           // Maximum idle connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query execution timeout, zero for none
}

// PostgresReaderOption represents a configuration function for PostgresReaderOptions
type PostgresReaderOption func(*PostgresReaderOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresDB makes the reader use an existing connection pool, which it
// will not close.
func WithPostgresDB(db *sqlx.DB) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DB = db
	}
}

// WithPostgresQuery sets the SQL query and optional parameters.
func WithPostgresQuery(query string, params ...interface{}) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.Query = query
		if len(params) > 0 {
			opts.Params = make([]interface{}, len(params))
			copy(opts.Params, params)
		}
	}
}

// WithPostgresConnectionPool configures the connection pool.
func WithPostgresConnectionPool(maxOpen, maxIdle int) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
	}
}

// WithPostgresQueryTimeout sets the query execution timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresReader implements core.DataSource for PostgreSQL queries. The query
// runs on the first Read and rows are streamed in result order.
type PostgresReader struct {
	mu     sync.Mutex
	db     *sqlx.DB
	ownsDB bool
	rows   *sqlx.Rows
	cancel context.CancelFunc
	done   bool
	stats  PostgresReaderStats
	opts   PostgresReaderOptions
}

// NewPostgresReader creates a new PostgreSQL reader with the given options.
func NewPostgresReader(options ...PostgresReaderOption) (*PostgresReader, error) {
	opts := PostgresReaderOptions{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Query == "" {
		return nil, &PostgresReaderError{Op: "validate_options", Err: errors.New("query is required")}
	}

	r := &PostgresReader{
		db:    opts.DB,
		opts:  opts,
		stats: PostgresReaderStats{NullValueCounts: make(map[string]int64)},
	}
	if r.db == nil {
		if opts.DSN == "" {
			return nil, &PostgresReaderError{Op: "validate_options", Err: errors.New("dsn or db is required")}
		}
		db, err := OpenPostgres(opts.DSN)
		if err != nil {
			return nil, &PostgresReaderError{Op: "connect", Err: err}
		}
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		r.db = db
		r.ownsDB = true
	}
	return r, nil
}

// OpenPostgres opens a connection pool for dsn without connecting.
func OpenPostgres(dsn string) (*sqlx.DB, error) {
	return sqlx.Open("postgres", dsn)
}

// Read implements the core.DataSource interface.
func (p *PostgresReader) Read(ctx context.Context) (core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(start)
	}()

	if p.done {
		return nil, io.EOF
	}

	select {
	case <-ctx.Done():
		return nil, &PostgresReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if p.rows == nil {
		if err := p.executeQuery(ctx); err != nil {
			return nil, err
		}
	}

	if !p.rows.Next() {
		p.done = true
		if err := p.rows.Err(); err != nil {
			return nil, &PostgresReaderError{Op: "iterate", Err: err}
		}
		return nil, io.EOF
	}

	row := make(map[string]interface{})
	if err := p.rows.MapScan(row); err != nil {
		return nil, &PostgresReaderError{Op: "scan", Err: err}
	}

	record := make(core.Record, len(row))
	for column, value := range row {
		record[column] = convertSQLValue(value)
		if value == nil {
			p.stats.NullValueCounts[column]++
		}
	}

	p.stats.RecordsRead++
	p.stats.LastReadTime = time.Now()
	return record, nil
}

// Close implements the core.DataSource interface.
func (p *PostgresReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.rows != nil {
		errs = append(errs, p.rows.Close())
		p.rows = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.ownsDB && p.db != nil {
		errs = append(errs, p.db.Close())
		p.db = nil
	}
	if err := errors.Join(errs...); err != nil {
		return &PostgresReaderError{Op: "close", Err: err}
	}
	return nil
}

// Stats returns a copy of current reader statistics.
func (p *PostgresReader) Stats() PostgresReaderStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.stats
	stats.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

func (p *PostgresReader) executeQuery(ctx context.Context) error {
	start := time.Now()

	queryCtx := context.Background()
	if p.opts.QueryTimeout > 0 {
		queryCtx, p.cancel = context.WithTimeout(queryCtx, p.opts.QueryTimeout)
	} else {
		queryCtx, p.cancel = context.WithCancel(queryCtx)
	}
	// The rows outlive this call, so the query is bound to its own context
	// and only cancelled on Close. ctx is honoured while the query starts.
	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()

	rows, err := p.db.QueryxContext(queryCtx, p.opts.Query, p.opts.Params...)
	if err != nil {
		return &PostgresReaderError{Op: "query", Err: err}
	}
	p.rows = rows
	p.stats.QueryDuration = time.Since(start)
	return nil
}

// convertSQLValue turns driver values into the types records carry. NUMERIC
// columns arrive from lib/pq as []byte.
func convertSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		s := string(v)
		if d, err := decimal.NewFromString(s); err == nil && looksNumeric(s) {
			f, _ := d.Float64()
			return f
		}
		return s
	default:
		return v
	}
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9', c == '.':
		case (c == '-' || c == '+') && i == 0:
		default:
			return false
		}
	}
	return true
}
