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

// Package aggregate folds the operational streams into the accumulators of
// the warehouse tables.
//
// Every aggregator shares one State. The streams must be fed in the order
// aircraft, reporteurs, flights, maintenance, reports: the slot registry is
// shared by flights and maintenance, and reports look aircraft up in the
// reference table.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/metrics"
)

// Stream names, used in errors, logs and metric labels.
const (
	StreamAircraft    = "aircraft"
	StreamReporteurs  = "reporteurs"
	StreamFlights     = "flights"
	StreamMaintenance = "maintenance"
	StreamReports     = "reports"
)

// Aggregator defines the interface for folding the records of one stream
// into the shared State.
type Aggregator interface {
	// Add processes a record for aggregation. Records discarded by a business
	// rule are not errors.
	Add(ctx context.Context, record core.Record) error
}

// RecordError reports a record that could not be decoded.
type RecordError struct {
	Stream string
	Index  int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %d: %v", e.Stream, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Option configures an aggregator.
type Option func(*options)

type options struct {
	businessRules bool
	logger        *slog.Logger
	metrics       *metrics.Collector
}

func newOptions(opts []Option) options {
	o := options{businessRules: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithBusinessRules turns the slot-conflict and chronology rules on or off.
// They are on by default.
func WithBusinessRules(enabled bool) Option {
	return func(o *options) {
		o.businessRules = enabled
	}
}

// WithLogger sets the logger business-rule outcomes are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the collector business-rule outcomes are counted in.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// DrainOption configures Drain.
type DrainOption func(*drainOptions)

type drainOptions struct {
	normalize core.Transformer
	onRead    func(index int)
	onError   func(ctx context.Context, record core.Record, err *RecordError) error
}

// WithNormalizer applies t to every record before it is added.
func WithNormalizer(t core.Transformer) DrainOption {
	return func(o *drainOptions) {
		o.normalize = t
	}
}

// WithReadHook calls fn with the index of every record read.
func WithReadHook(fn func(index int)) DrainOption {
	return func(o *drainOptions) {
		o.onRead = fn
	}
}

// WithErrorHook passes records that fail to normalize or decode to fn. A nil
// return skips the record, an error stops the drain.
func WithErrorHook(fn func(ctx context.Context, record core.Record, err *RecordError) error) DrainOption {
	return func(o *drainOptions) {
		o.onError = fn
	}
}

// Drain reads src until io.EOF and adds every record to agg. It returns the
// number of records read. A nil src is an empty stream. Without an error hook
// it stops at the first record that cannot be decoded, returned as
// *RecordError.
func Drain(ctx context.Context, stream string, src core.DataSource, agg Aggregator, opts ...DrainOption) (int, error) {
	var o drainOptions
	for _, opt := range opts {
		opt(&o)
	}
	if src == nil {
		return 0, nil
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		record, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read %s: %w", stream, err)
		}

		index := n
		n++
		if o.onRead != nil {
			o.onRead(index)
		}

		normalized := record
		if o.normalize != nil {
			normalized, err = o.normalize.Transform(ctx, record)
		}
		if err == nil {
			err = agg.Add(ctx, normalized)
		}
		if err == nil {
			continue
		}

		recErr := &RecordError{Stream: stream, Index: index, Err: err}
		if o.onError == nil {
			return n, recErr
		}
		if err := o.onError(ctx, record, recErr); err != nil {
			return n, err
		}
	}
}
