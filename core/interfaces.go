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

package core

import (
	"context"
)

// Package core defines the interfaces shared by every AeroDW stage.
//
// Extraction yields Records from the airline feeds, the transform stage folds
// them into warehouse rows, and the load stage writes those rows back out as
// Records. This file contains the interfaces for sources, sinks, record
// normalization and record filtering.

// DataSource defines the interface for data extraction.
// Implementations stream records from a feed (e.g., CSV, PostgreSQL, S3, MongoDB).
type DataSource interface {
	// Read returns the next record or io.EOF when no more records are available.
	Read(ctx context.Context) (Record, error)
	// Close releases any resources held by the data source.
	Close() error
}

// DataSink defines the interface for data loading.
// Implementations write warehouse rows to a destination (e.g., PostgreSQL, Parquet).
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// Transformer defines the interface for record normalization.
// Transformers bring raw feed values to the types the aggregators expect.
type Transformer interface {
	// Transform applies the transformation to a record and returns the result.
	Transform(ctx context.Context, record Record) (Record, error)
}

// Filter defines the interface for record filtering.
type Filter interface {
	// ShouldInclude returns true if the record should be kept.
	ShouldInclude(ctx context.Context, record Record) (bool, error)
}
