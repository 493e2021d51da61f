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

package aerodw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/load"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/transform"
	"github.com/aaronlmathis/aerodw/validators"
)

// Package aerodw builds the AeroDW airline data warehouse from operational
// records.
//
// A Run extracts five streams (aircraft and maintenance personnel reference
// feeds, AIMS flights and maintenance slots, AMOS post-flight reports),
// folds them into the star-schema tables, checks the tables and optionally
// loads them to a Location.
//
// Example usage:
//
//   run, err := aerodw.NewRun().
//       Aircraft(aircraftCSV).
//       Reporteurs(personnelCSV).
//       Flights(flightsSQL).
//       Maintenance(maintenanceSQL).
//       Reports(reportsSQL).
//       To(load.DirLocation{Dir: "warehouse", Format: load.FormatParquet}).
//       Build()
//   if err != nil { log.Fatal(err) }
//   result, err := run.Execute(context.Background())

// RunBuilder provides a fluent API for constructing a warehouse run.
// Use NewRun() to create a new builder, then chain the source, location and configuration methods.
type RunBuilder struct {
	run *Run
}

// NewRun creates a new RunBuilder.
func NewRun() *RunBuilder {
	return &RunBuilder{run: &Run{}}
}

// Aircraft sets the aircraft reference feed.
func (rb *RunBuilder) Aircraft(source core.DataSource) *RunBuilder {
	rb.run.sources.Aircraft = source
	return rb
}

// Reporteurs sets the maintenance personnel reference feed.
func (rb *RunBuilder) Reporteurs(source core.DataSource) *RunBuilder {
	rb.run.sources.Reporteurs = source
	return rb
}

// Flights sets the AIMS flight stream.
func (rb *RunBuilder) Flights(source core.DataSource) *RunBuilder {
	rb.run.sources.Flights = source
	return rb
}

// Maintenance sets the AIMS maintenance slot stream.
func (rb *RunBuilder) Maintenance(source core.DataSource) *RunBuilder {
	rb.run.sources.Maintenance = source
	return rb
}

// Reports sets the AMOS post-flight report stream.
func (rb *RunBuilder) Reports(source core.DataSource) *RunBuilder {
	rb.run.sources.Reports = source
	return rb
}

// To sets the Location the tables are loaded to. Without it the run only
// returns the tables.
func (rb *RunBuilder) To(location load.Location) *RunBuilder {
	rb.run.location = location
	return rb
}

// WithTransformer replaces the default transformer.
func (rb *RunBuilder) WithTransformer(t *transform.Transformer) *RunBuilder {
	rb.run.transformer = t
	return rb
}

// WithValidator replaces the default validator.
func (rb *RunBuilder) WithValidator(v *validators.WarehouseValidator) *RunBuilder {
	rb.run.validator = v
	return rb
}

// WithLogger sets the logger used by the default transformer, the validator and the load stage.
func (rb *RunBuilder) WithLogger(logger *slog.Logger) *RunBuilder {
	rb.run.logger = logger
	return rb
}

// WithMetrics sets the metrics collector.
func (rb *RunBuilder) WithMetrics(m *metrics.Collector) *RunBuilder {
	rb.run.metrics = m
	return rb
}

// Build validates and constructs the Run from the builder.
func (rb *RunBuilder) Build() (*Run, error) {
	r := rb.run
	s := r.sources
	if s.Aircraft == nil && s.Reporteurs == nil && s.Flights == nil && s.Maintenance == nil && s.Reports == nil {
		return nil, fmt.Errorf("run requires at least one data source")
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.transformer == nil {
		r.transformer = transform.New(transform.WithLogger(r.logger), transform.WithMetrics(r.metrics))
	}
	if r.validator == nil {
		r.validator = &validators.WarehouseValidator{NonNegativeHours: r.transformer.BusinessRules(), MaxLogged: 20}
	}
	return r, nil
}

// Run is a configured extract, transform, validate and load pass.
type Run struct {
	sources     transform.Sources
	location    load.Location
	transformer *transform.Transformer
	validator   *validators.WarehouseValidator
	logger      *slog.Logger
	metrics     *metrics.Collector
	loaded      map[string]int
}

// Execute runs the transform, validates the tables and loads them when a
// Location is set. Sources are closed when Execute returns. The result is
// returned alongside validation and load errors so callers can still inspect
// the tables.
func (r *Run) Execute(ctx context.Context) (result *transform.Result, err error) {
	defer func() {
		if cerr := r.closeSources(); cerr != nil {
			r.logger.Warn("closing sources", "error", cerr)
		}
	}()

	result, err = r.transformer.Run(ctx, r.sources)
	if err != nil {
		return nil, err
	}

	if err := r.validator.Check(&result.Tables, r.logger); err != nil {
		return result, err
	}

	if r.location == nil {
		return result, nil
	}
	r.loaded, err = load.Load(ctx, &result.Tables, r.location, r.logger, r.metrics)
	return result, err
}

// Loaded returns the rows written per table by the last Execute.
func (r *Run) Loaded() map[string]int {
	return r.loaded
}

func (r *Run) closeSources() error {
	var errs []error
	for _, src := range []core.DataSource{r.sources.Aircraft, r.sources.Reporteurs, r.sources.Flights, r.sources.Maintenance, r.sources.Reports} {
		if src != nil {
			if err := src.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
