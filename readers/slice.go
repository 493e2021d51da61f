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
	"io"

	"github.com/aaronlmathis/aerodw/core"
)

// SliceReader implements core.DataSource over records held in memory.
type SliceReader struct {
	records []core.Record
	pos     int
	closed  bool
}

// NewSliceReader creates a reader returning records in order.
func NewSliceReader(records ...core.Record) *SliceReader {
	return &SliceReader{records: records}
}

// Read implements the core.DataSource interface. Each record is returned as
// a copy.
func (s *SliceReader) Read(ctx context.Context) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	record := s.records[s.pos].Clone()
	s.pos++
	return record, nil
}

// Close implements the core.DataSource interface.
func (s *SliceReader) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceReader) Closed() bool {
	return s.closed
}
