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

package transform

import (
	"context"
	"log/slog"
	"time"

	"github.com/aaronlmathis/aerodw/aggregate"
	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// Totals holds the expected record count of each operational stream, used
// only for progress reporting.
type Totals struct {
	Flights     int
	Maintenance int
	Reports     int
}

// DefaultTotals are the sizes of the production AIMS and AMOS extracts.
var DefaultTotals = Totals{Flights: 69095, Maintenance: 148524, Reports: 180418}

// Sources holds one data source per input stream. A nil source is read as an
// empty stream.
type Sources struct {
	Aircraft    core.DataSource
	Reporteurs  core.DataSource
	Flights     core.DataSource
	Maintenance core.DataSource
	Reports     core.DataSource
}

// Stats summarizes a run.
type Stats struct {
	// Records is the number of records read per stream.
	Records map[string]int

	Cancelled           int
	RejectedFlights     int
	Swapped             int
	RejectedMaintenance int
	ForeignReports      int
	Skipped             int

	Duration time.Duration
}

// Result is the output of a run.
type Result struct {
	Tables warehouse.Tables
	Stats  Stats
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithBusinessRules turns the slot-conflict and chronology rules on or off.
func WithBusinessRules(enabled bool) Option {
	return func(t *Transformer) {
		t.businessRules = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(t *Transformer) {
		t.metrics = c
	}
}

// WithProgress sets the progress reporter. It defaults to a LogProgress on
// the transformer's logger.
func WithProgress(p Progress) Option {
	return func(t *Transformer) {
		t.progress = p
	}
}

// WithExpectedTotals sets the expected stream sizes reported to Progress.
func WithExpectedTotals(totals Totals) Option {
	return func(t *Transformer) {
		t.totals = totals
	}
}

// WithErrorStrategy sets how records that cannot be decoded are handled.
func WithErrorStrategy(strategy core.ErrorStrategy) Option {
	return func(t *Transformer) {
		t.strategy = strategy
	}
}

// WithErrorHandler sets the handler skipped records are passed to.
func WithErrorHandler(handler core.ErrorHandler) Option {
	return func(t *Transformer) {
		t.errorHandler = handler
	}
}

// WithNormalizers replaces the normalizers applied to the records of stream
// before they are aggregated.
func WithNormalizers(stream string, transformers ...core.Transformer) Option {
	return func(t *Transformer) {
		t.normalizers[stream] = transformers
	}
}

// DefaultNormalizers returns the normalizers every stream gets unless
// replaced with WithNormalizers.
func DefaultNormalizers() map[string][]core.Transformer {
	return map[string][]core.Transformer{
		aggregate.StreamAircraft: {
			TrimSpace(aggregate.FieldRegistration, aggregate.FieldModel, aggregate.FieldManufacturer),
		},
		aggregate.StreamReporteurs: {
			ToString(aggregate.FieldReporteurID),
			TrimSpace(aggregate.FieldAirport),
		},
		aggregate.StreamFlights: {
			ParseTime(aggregate.FieldScheduledDeparture),
			ParseTime(aggregate.FieldScheduledArrival),
			ParseTime(aggregate.FieldActualDeparture),
			ParseTime(aggregate.FieldActualArrival),
			ParseBool(aggregate.FieldCancelled),
		},
		aggregate.StreamMaintenance: {
			ParseTime(aggregate.FieldScheduledDeparture),
			ParseTime(aggregate.FieldScheduledArrival),
			ParseBool(aggregate.FieldProgrammed),
		},
		aggregate.StreamReports: {
			ParseTime(aggregate.FieldReportingDate),
			ToString(aggregate.FieldReporteurID),
			TrimSpace(aggregate.FieldReporteurClass),
		},
	}
}

// Transformer runs the transform stage: it drains every input stream once,
// in a fixed order, and materializes the warehouse tables.
type Transformer struct {
	businessRules bool
	logger        *slog.Logger
	metrics       *metrics.Collector
	progress      Progress
	totals        Totals
	strategy      core.ErrorStrategy
	errorHandler  core.ErrorHandler
	normalizers   map[string][]core.Transformer
}

// New creates a Transformer. Business rules are on and decode errors fail
// the run unless configured otherwise.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		businessRules: true,
		totals:        DefaultTotals,
		strategy:      core.FailFast,
		normalizers:   DefaultNormalizers(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if t.progress == nil {
		t.progress = NewLogProgress(t.logger)
	}
	return t
}

// BusinessRules reports whether the business rules are applied.
func (t *Transformer) BusinessRules() bool {
	return t.businessRules
}

type step struct {
	stream string
	src    core.DataSource
	agg    aggregate.Aggregator
	total  int
}

// Run drains the sources in the order aircraft, reporteurs, flights,
// maintenance, reports and returns the materialized tables. Sources are not
// closed. Two runs over identical inputs give identical tables.
func (t *Transformer) Run(ctx context.Context, src Sources) (*Result, error) {
	start := time.Now()
	if r, ok := t.progress.(interface{ Reset() }); ok {
		r.Reset()
	}

	state := aggregate.NewState()
	opts := []aggregate.Option{
		aggregate.WithBusinessRules(t.businessRules),
		aggregate.WithLogger(t.logger),
		aggregate.WithMetrics(t.metrics),
	}
	stats := Stats{Records: make(map[string]int, 5)}

	stageStart := time.Now()
	aircraft, err := aggregate.LoadAircraft(ctx, src.Aircraft, state, opts,
		t.drainOptions(aggregate.StreamAircraft, src.Aircraft, 0, &stats)...)
	if err != nil {
		return nil, err
	}
	t.metrics.ObserveStage(aggregate.StreamAircraft, stageStart)

	stageStart = time.Now()
	reporteurs, err := aggregate.LoadReporteurs(ctx, src.Reporteurs, state, opts,
		t.drainOptions(aggregate.StreamReporteurs, src.Reporteurs, 0, &stats)...)
	if err != nil {
		return nil, err
	}
	t.metrics.ObserveStage(aggregate.StreamReporteurs, stageStart)

	flights := aggregate.NewFlightAggregator(state, opts...)
	maintenance := aggregate.NewMaintenanceAggregator(state, opts...)
	reports := aggregate.NewReportAggregator(state, opts...)

	steps := []step{
		{aggregate.StreamFlights, src.Flights, flights, t.totals.Flights},
		{aggregate.StreamMaintenance, src.Maintenance, maintenance, t.totals.Maintenance},
		{aggregate.StreamReports, src.Reports, reports, t.totals.Reports},
	}
	for _, s := range steps {
		stageStart := time.Now()
		if _, err := aggregate.Drain(ctx, s.stream, s.src, s.agg, t.drainOptions(s.stream, s.src, s.total, &stats)...); err != nil {
			return nil, err
		}
		t.metrics.ObserveStage(s.stream, stageStart)
	}

	fs, ms, rs := flights.Stats(), maintenance.Stats(), reports.Stats()
	stats.Cancelled = fs.Cancelled
	stats.RejectedFlights = fs.Rejected
	stats.Swapped = fs.Swapped
	stats.RejectedMaintenance = ms.Rejected
	stats.ForeignReports = rs.Foreign

	t.logger.Info("reference tables loaded",
		"aircraft", aircraft.Loaded,
		"reporteurs", reporteurs.Loaded,
		"skipped", aircraft.Skipped+reporteurs.Skipped)
	t.logger.Info("flights aggregated",
		"records", stats.Records[aggregate.StreamFlights],
		"cancelled", fs.Cancelled,
		"rejected", fs.Rejected)
	if t.businessRules {
		t.logger.Info("flights with departure and arrival swapped",
			"swapped", fs.Swapped,
			"total", stats.Records[aggregate.StreamFlights])
	}
	t.logger.Info("maintenance aggregated",
		"records", stats.Records[aggregate.StreamMaintenance],
		"rejected", ms.Rejected)
	if t.businessRules {
		t.logger.Info("reports on aircraft outside the fleet",
			"foreign", rs.Foreign,
			"total", stats.Records[aggregate.StreamReports])
	}

	tables := state.Tables()
	t.metrics.SetMaterialized(tables.Counts())
	stats.Duration = time.Since(start)

	return &Result{Tables: tables, Stats: stats}, nil
}

// drainOptions wires the normalizers, counters, progress and error strategy
// of the transformer into the drain of one stream.
func (t *Transformer) drainOptions(stream string, src core.DataSource, total int, stats *Stats) []aggregate.DrainOption {
	if src == nil {
		t.logger.Debug("no source configured, stream is empty", "stream", stream)
	}
	return []aggregate.DrainOption{
		aggregate.WithNormalizer(Chain(t.normalizers[stream]...)),
		aggregate.WithReadHook(func(index int) {
			stats.Records[stream]++
			t.metrics.RecordProcessed(stream)
			t.progress.Advance(stream, index+1, total)
		}),
		aggregate.WithErrorHook(func(ctx context.Context, record core.Record, err *aggregate.RecordError) error {
			t.metrics.RecordError(stream)
			if err := t.handleError(ctx, record, err); err != nil {
				return err
			}
			stats.Skipped++
			t.logger.Warn("record skipped", "stream", stream, "index", err.Index, "error", err)
			return nil
		}),
	}
}

// handleError returns an error if processing should stop, or nil to skip
// the record.
func (t *Transformer) handleError(ctx context.Context, record core.Record, err error) error {
	switch t.strategy {
	case core.SkipErrors:
		if t.errorHandler != nil {
			return t.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	default:
		return err
	}
}
