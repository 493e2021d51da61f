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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"
	"github.com/shopspring/decimal"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// This file implements the Parquet export of a warehouse table. The Arrow
// schema comes from the table spec rather than from the first record, so an
// empty table still produces a file with the full schema.

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "open_file", "append_value", "write_batch")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// WriterStats holds statistics about a file writer.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before writing
	Compression  compress.Compression // Compression codec
	RowGroupSize int64                // Max rows per row group
	Metadata     map[string]string    // Extra key/value schema metadata
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the compression codec.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithRowGroupSize sets the maximum number of rows per row group.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata adds key/value pairs to the schema metadata.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

func defaultParquetOptions() *ParquetWriterOptions {
	return &ParquetWriterOptions{
		BatchSize:    1000,
		Compression:  compress.Codecs.Snappy,
		RowGroupSize: 10000,
	}
}

// ParquetWriter implements core.DataSink for one warehouse table in Parquet format.
type ParquetWriter struct {
	table        warehouse.TableSpec
	schema       *arrow.Schema
	writer       *pqarrow.FileWriter
	builder      *array.RecordBuilder
	recordBuffer []core.Record
	opts         *ParquetWriterOptions
	stats        WriterStats
	closed       bool
	errorState   bool
}

// NewParquetWriter creates the file (and its parent directories) and a writer for table.
func NewParquetWriter(filename string, table warehouse.TableSpec, options ...WriterOption) (*ParquetWriter, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: fmt.Errorf("failed to create directory %s: %w", dir, err)}
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: fmt.Errorf("failed to create parquet file %s: %w", filename, err)}
	}
	w, err := NewParquetStreamWriter(f, table, options...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewParquetStreamWriter writes table to out. Close closes out when it is an io.Closer.
func NewParquetStreamWriter(out io.Writer, table warehouse.TableSpec, options ...WriterOption) (*ParquetWriter, error) {
	opts := defaultParquetOptions()
	for _, option := range options {
		option(opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	schema, err := ArrowSchema(table, opts.Metadata)
	if err != nil {
		return nil, &ParquetWriterError{Op: "schema", Err: err}
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithMaxRowGroupLength(opts.RowGroupSize),
	)
	fw, err := pqarrow.NewFileWriter(schema, out, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, &ParquetWriterError{Op: "create_writer", Err: fmt.Errorf("failed to create parquet file writer: %w", err)}
	}

	return &ParquetWriter{
		table:        table,
		schema:       schema,
		writer:       fw,
		builder:      array.NewRecordBuilder(memory.NewGoAllocator(), schema),
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
		opts:         opts,
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// ArrowSchema maps a table spec onto an Arrow schema: VARCHAR to utf8,
// INTEGER to int64 and DECIMAL measures to float64. The table keys are stored
// in the schema metadata.
func ArrowSchema(table warehouse.TableSpec, extra map[string]string) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(table.Columns))
	for i, col := range table.Columns {
		var dt arrow.DataType
		switch {
		case col.Decimal:
			dt = arrow.PrimitiveTypes.Float64
		case col.SQLType == "INTEGER":
			dt = arrow.PrimitiveTypes.Int64
		case col.SQLType == "VARCHAR":
			dt = arrow.BinaryTypes.String
		default:
			return nil, fmt.Errorf("column %s: unsupported sql type %s", col.Name, col.SQLType)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: true}
	}

	keys := []string{"aerodw.table"}
	values := []string{table.Name}
	for k, v := range extra {
		keys = append(keys, k)
		values = append(values, v)
	}
	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(fields, &md), nil
}

// Schema returns the Arrow schema of the file.
func (p *ParquetWriter) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	return p.stats
}

// Write implements core.DataSink. Records are buffered and written in batches.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: errors.New("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: errors.New("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &ParquetWriterError{Op: "write", Err: err}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return err
		}
	}
	return nil
}

// Flush implements core.DataSink. It writes buffered records as a batch.
func (p *ParquetWriter) Flush() error {
	if err := p.flushBatch(); err != nil {
		p.errorState = true
		return err
	}
	return nil
}

// Close implements core.DataSink. It flushes, writes the footer and releases builders.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var flushErr error
	if !p.errorState {
		flushErr = p.flushBatch()
	}
	p.builder.Release()

	if err := p.writer.Close(); err != nil {
		return errors.Join(flushErr, &ParquetWriterError{Op: "close_writer", Err: fmt.Errorf("failed to close parquet writer: %w", err)})
	}
	return flushErr
}

func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 {
		return nil
	}
	start := time.Now()

	// Convert the whole batch first so a bad value never leaves the builders
	// with columns of different lengths.
	rows := make([][]interface{}, len(p.recordBuffer))
	for r, record := range p.recordBuffer {
		values, err := p.rowValues(record)
		if err != nil {
			return &ParquetWriterError{Op: "append_value", Err: err}
		}
		rows[r] = values
	}

	for _, values := range rows {
		for i, value := range values {
			builder := p.builder.Field(i)
			switch v := value.(type) {
			case nil:
				builder.AppendNull()
			case float64:
				builder.(*array.Float64Builder).Append(v)
			case int64:
				builder.(*array.Int64Builder).Append(v)
			case string:
				builder.(*array.StringBuilder).Append(v)
			}
		}
	}

	rec := p.builder.NewRecord()
	defer rec.Release()
	if err := p.writer.Write(rec); err != nil {
		return &ParquetWriterError{Op: "write_batch", Err: fmt.Errorf("failed to write record batch: %w", err)}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// rowValues converts a record into one value per schema field, typed to match
// the field builder.
func (p *ParquetWriter) rowValues(record core.Record) ([]interface{}, error) {
	values := make([]interface{}, len(p.table.Columns))
	for i, col := range p.table.Columns {
		value, err := ConvertColumnValue(col, record[col.Name])
		if err != nil {
			return nil, err
		}
		if value == nil {
			p.stats.NullValueCounts[col.Name]++
			continue
		}

		switch p.schema.Field(i).Type.ID() {
		case arrow.FLOAT64:
			d, ok := value.(decimal.Decimal)
			if !ok {
				return nil, fmt.Errorf("field %s: unexpected %T for float64 column", col.Name, value)
			}
			values[i] = d.InexactFloat64()
		case arrow.INT64:
			switch v := value.(type) {
			case int64:
				values[i] = v
			case float64:
				values[i] = int64(v)
			default:
				return nil, fmt.Errorf("field %s: unexpected %T for int64 column", col.Name, value)
			}
		default:
			if v, ok := value.(string); ok {
				values[i] = v
			} else {
				values[i] = fmt.Sprintf("%v", value)
			}
		}
	}
	return values, nil
}

// ParquetSummary describes an exported Parquet file.
type ParquetSummary struct {
	Table     string
	Rows      int64
	RowGroups int
	Fields    []arrow.Field
}

// InspectParquet reads the footer and Arrow schema of a Parquet file.
func InspectParquet(r parquet.ReaderAtSeeker) (*ParquetSummary, error) {
	reader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, &ParquetWriterError{Op: "inspect", Err: fmt.Errorf("failed to open parquet file: %w", err)}
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, &ParquetWriterError{Op: "inspect", Err: fmt.Errorf("failed to create arrow reader: %w", err)}
	}
	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, &ParquetWriterError{Op: "inspect", Err: fmt.Errorf("failed to get arrow schema: %w", err)}
	}

	summary := &ParquetSummary{
		Rows:      reader.NumRows(),
		RowGroups: reader.NumRowGroups(),
		Fields:    schema.Fields(),
	}
	md := schema.Metadata()
	if i := md.FindKey("aerodw.table"); i >= 0 {
		summary.Table = md.Values()[i]
	}
	return summary, nil
}
