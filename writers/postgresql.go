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

package writers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// Package writers provides implementations of core.DataSink for the warehouse
// load stage.
//
// This file implements the PostgreSQL warehouse writer. Each writer owns one
// warehouse table: it creates the table from its spec, optionally truncates it,
// and upserts rows on the table keys in batched transactions. DECIMAL measures
// are rounded to their column scale before they reach the driver.

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op    string // The operation being performed (e.g., "create", "flush")
	Table string // The warehouse table being written
	Err   error  // The underlying error
}

// Error returns the error string for PostgresWriterError.
func (e *PostgresWriterError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("postgres writer %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for PostgresWriterError.
func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL write statistics.
type PostgresWriterStats struct {
	RecordsWritten   int64            // Total records written
	BatchesWritten   int64            // Number of batches written
	TransactionCount int64            // Number of transactions committed
	LastWriteTime    time.Time        // Time of last batch
	WriteDuration    time.Duration    // Total time spent writing
	NullValueCounts  map[string]int64 // Count of null values per column
}

// ConflictResolution defines how to handle key conflicts on insert.
type ConflictResolution int

const (
	// ConflictUpdate overwrites the measures of an existing row (ON CONFLICT DO UPDATE).
	ConflictUpdate ConflictResolution = iota
	// ConflictIgnore keeps the existing row (ON CONFLICT DO NOTHING).
	ConflictIgnore
	// ConflictError lets the primary key violation fail the batch.
	ConflictError
)

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN                string              // PostgreSQL connection string
	DB                 *sqlx.DB            // Shared connection; the writer does not close it
	Table              warehouse.TableSpec // Target warehouse table
	BatchSize          int                 // Number of records per transaction
	CreateTable        bool                // Create the table if it does not exist
	TruncateTable      bool                // Truncate the table before the first batch
	ConflictResolution ConflictResolution  // Key conflict handling
	MaxOpenConns       int                 // Max open connections
	MaxIdleConns       int                 // Max idle connections
	ConnMaxLifetime    time.Duration       // Max connection lifetime
	QueryTimeout       time.Duration       // Timeout for each statement batch
}

// PostgresWriterOption represents a configuration function for PostgresWriterOptions.
type PostgresWriterOption func(*PostgresWriterOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresDB shares an open connection pool across writers.
func WithPostgresDB(db *sqlx.DB) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DB = db
	}
}

// WithTable sets the warehouse table the writer loads.
func WithTable(spec warehouse.TableSpec) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.Table = spec
	}
}

// WithPostgresBatchSize sets the number of rows per transaction.
func WithPostgresBatchSize(size int) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCreateTable enables or disables table creation.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithTruncateTable enables or disables table truncation before writing.
func WithTruncateTable(truncate bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TruncateTable = truncate
	}
}

// WithConflictResolution sets the key conflict strategy.
func WithConflictResolution(resolution ConflictResolution) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.ConflictResolution = resolution
	}
}

// WithPostgresConnectionPool configures the connection pool of an owned connection.
func WithPostgresConnectionPool(maxOpen, maxIdle int, maxLifetime time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
		opts.ConnMaxLifetime = maxLifetime
	}
}

// WithPostgresQueryTimeout sets the per-batch timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresWriter implements core.DataSink for one warehouse table.
type PostgresWriter struct {
	db          *sqlx.DB
	ownsDB      bool
	options     PostgresWriterOptions
	upsert      string
	recordBuf   []core.Record
	stats       PostgresWriterStats
	initialized bool
	errorState  bool
	mu          sync.Mutex
}

// NewPostgresWriter creates a writer for the configured table. The connection is
// opened eagerly and pinged; the table is prepared on the first flush.
func NewPostgresWriter(opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := &PostgresWriterOptions{CreateTable: true}
	for _, opt := range opts {
		opt(options)
	}
	options.withDefaults()

	if err := validateWriterOptions(options); err != nil {
		return nil, &PostgresWriterError{Op: "validate", Table: options.Table.Name, Err: err}
	}

	w := &PostgresWriter{
		options:   *options,
		upsert:    UpsertSQL(options.Table, options.ConflictResolution),
		recordBuf: make([]core.Record, 0, options.BatchSize),
		stats:     PostgresWriterStats{NullValueCounts: make(map[string]int64)},
	}

	if options.DB != nil {
		w.db = options.DB
		return w, nil
	}

	db, err := sqlx.Open("postgres", options.DSN)
	if err != nil {
		return nil, &PostgresWriterError{Op: "connect", Table: options.Table.Name, Err: err}
	}
	db.SetMaxOpenConns(options.MaxOpenConns)
	db.SetMaxIdleConns(options.MaxIdleConns)
	db.SetConnMaxLifetime(options.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &PostgresWriterError{Op: "connect", Table: options.Table.Name, Err: err}
	}

	w.db = db
	w.ownsDB = true
	return w, nil
}

// Stats returns a copy of the current write statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	statsCopy := w.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(w.stats.NullValueCounts))
	for k, v := range w.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Write implements core.DataSink. Records are buffered and written in batches.
func (w *PostgresWriter) Write(ctx context.Context, record core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write", Table: w.options.Table.Name, Err: errors.New("writer is in error state")}
	}

	row, err := w.bindRecord(record)
	if err != nil {
		return &PostgresWriterError{Op: "write", Table: w.options.Table.Name, Err: err}
	}

	w.recordBuf = append(w.recordBuf, row)
	if len(w.recordBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "flush_batch", Table: w.options.Table.Name, Err: err}
		}
	}
	return nil
}

// Flush implements core.DataSink. It writes any buffered rows.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushBufferUnsafe(context.Background()); err != nil {
		w.errorState = true
		return &PostgresWriterError{Op: "flush", Table: w.options.Table.Name, Err: err}
	}
	return nil
}

// Close implements core.DataSink. It flushes and closes an owned connection.
func (w *PostgresWriter) Close() error {
	flushErr := w.Flush()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ownsDB && w.db != nil {
		return errors.Join(flushErr, w.db.Close())
	}
	return flushErr
}

func (opts *PostgresWriterOptions) withDefaults() {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 2
	}
}

func validateWriterOptions(opts *PostgresWriterOptions) error {
	if opts.DSN == "" && opts.DB == nil {
		return errors.New("dsn or db is required")
	}
	if opts.Table.Name == "" {
		return errors.New("table is required")
	}
	if len(opts.Table.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", opts.Table.Name)
	}
	if opts.ConflictResolution != ConflictError && len(opts.Table.Keys) == 0 {
		return fmt.Errorf("table %s has no keys to resolve conflicts on", opts.Table.Name)
	}
	return nil
}

// UpsertSQL renders the named INSERT statement for a table.
func UpsertSQL(spec warehouse.TableSpec, resolution ConflictResolution) string {
	columns := spec.ColumnNames()
	params := make([]string, len(columns))
	for i, c := range columns {
		params[i] = ":" + c
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Name, strings.Join(columns, ", "), strings.Join(params, ", "))

	switch resolution {
	case ConflictError:
		return insert
	case ConflictIgnore:
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, strings.Join(spec.Keys, ", "))
	}

	measures := spec.Measures()
	if len(measures) == 0 {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, strings.Join(spec.Keys, ", "))
	}
	sets := make([]string, len(measures))
	for i, m := range measures {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", m, m)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		insert, strings.Join(spec.Keys, ", "), strings.Join(sets, ", "))
}

// bindRecord projects a record onto the table columns and converts its values
// to driver values. Must hold mutex.
func (w *PostgresWriter) bindRecord(record core.Record) (core.Record, error) {
	row := make(core.Record, len(w.options.Table.Columns))
	for _, col := range w.options.Table.Columns {
		value, err := ConvertColumnValue(col, record[col.Name])
		if err != nil {
			return nil, err
		}
		if value == nil {
			w.stats.NullValueCounts[col.Name]++
		}
		row[col.Name] = value
	}
	return row, nil
}

// ConvertColumnValue converts a warehouse value into the driver value stored in
// col. DECIMAL columns are rounded to the column scale.
func ConvertColumnValue(col warehouse.Column, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	}

	if col.Decimal {
		switch v := value.(type) {
		case float64:
			return decimal.NewFromFloat(v).Round(col.Scale), nil
		case float32:
			return decimal.NewFromFloat32(v).Round(col.Scale), nil
		case int:
			return decimal.NewFromInt(int64(v)).Round(col.Scale), nil
		case int64:
			return decimal.NewFromInt(v).Round(col.Scale), nil
		case decimal.Decimal:
			return v.Round(col.Scale), nil
		default:
			return nil, &core.FieldError{Field: col.Name, Err: fmt.Errorf("%w: %T for decimal column", core.ErrInvalidType, value)}
		}
	}

	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64, string, bool, float64, time.Time:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// prepareUnsafe creates and truncates the table once. Must hold mutex.
func (w *PostgresWriter) prepareUnsafe(ctx context.Context) error {
	if w.options.CreateTable {
		if _, err := w.db.ExecContext(ctx, w.options.Table.CreateSQL()); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	if w.options.TruncateTable {
		if _, err := w.db.ExecContext(ctx, "TRUNCATE TABLE "+w.options.Table.Name); err != nil {
			return fmt.Errorf("truncate table: %w", err)
		}
	}
	w.initialized = true
	return nil
}

// flushBufferUnsafe writes buffered rows in one transaction. Must hold mutex.
func (w *PostgresWriter) flushBufferUnsafe(ctx context.Context) (err error) {
	if len(w.recordBuf) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.options.QueryTimeout)
	defer cancel()

	if !w.initialized {
		if err := w.prepareUnsafe(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, w.upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range w.recordBuf {
		if _, err = stmt.ExecContext(ctx, map[string]interface{}(row)); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w.stats.RecordsWritten += int64(len(w.recordBuf))
	w.stats.BatchesWritten++
	w.stats.TransactionCount++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.recordBuf = w.recordBuf[:0]
	return nil
}
