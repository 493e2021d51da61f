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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// JSONWriterError wraps JSON-lines write errors with context about the operation.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriter implements core.DataSink for line-delimited JSON. Rows are projected
// onto the table columns with DECIMAL measures rounded to their scale.
type JSONWriter struct {
	table  warehouse.TableSpec
	buf    *bufio.Writer
	closer io.Closer
	stats  WriterStats
	closed bool
	mu     sync.Mutex
}

// NewJSONWriter creates a JSON-lines writer for table. Close closes w when it is an io.Closer.
func NewJSONWriter(w io.Writer, table warehouse.TableSpec) *JSONWriter {
	closer, _ := w.(io.Closer)
	return &JSONWriter{
		table:  table,
		buf:    bufio.NewWriter(w),
		closer: closer,
		stats:  WriterStats{NullValueCounts: make(map[string]int64)},
	}
}

// Stats returns the current write statistics.
func (j *JSONWriter) Stats() WriterStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// Write implements core.DataSink.
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	if err := ctx.Err(); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return &JSONWriterError{Op: "write", Err: errors.New("json writer is closed")}
	}

	row := make(map[string]interface{}, len(j.table.Columns))
	for _, col := range j.table.Columns {
		value, err := ConvertColumnValue(col, record[col.Name])
		if err != nil {
			return &JSONWriterError{Op: "convert", Err: err}
		}
		if d, ok := value.(decimal.Decimal); ok {
			value = d.InexactFloat64()
		}
		if value == nil {
			j.stats.NullValueCounts[col.Name]++
		}
		row[col.Name] = value
	}

	data, err := json.Marshal(row)
	if err != nil {
		return &JSONWriterError{Op: "marshal", Err: err}
	}
	if _, err := j.buf.Write(append(data, '\n')); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	j.stats.RecordsWritten++
	return nil
}

// Flush implements core.DataSink.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.buf.Flush(); err != nil {
		return &JSONWriterError{Op: "flush", Err: err}
	}
	j.stats.BatchesWritten++
	return nil
}

// Close implements core.DataSink. It flushes and closes the underlying writer.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	flushErr := j.buf.Flush()
	if flushErr != nil {
		flushErr = &JSONWriterError{Op: "flush", Err: flushErr}
	}
	if j.closer != nil {
		if err := j.closer.Close(); err != nil {
			return errors.Join(flushErr, &JSONWriterError{Op: "close", Err: err})
		}
	}
	return flushErr
}
