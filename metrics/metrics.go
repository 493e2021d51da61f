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

// Package metrics exposes Prometheus counters for the extract, transform and
// load stages of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business rule labels.
const (
	RuleNoDoubleBooking  = "BR-21"
	RuleChronologyRepair = "BR-23"
	RuleForeignAircraft  = "foreign_aircraft"
)

// Outcome labels.
const (
	OutcomeRejected  = "rejected"
	OutcomeCorrected = "corrected"
	OutcomeDiscarded = "discarded"
)

// Collector provides run metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	RecordsProcessed   *prometheus.CounterVec
	RecordErrors       *prometheus.CounterVec
	BusinessRuleEvents *prometheus.CounterVec
	RowsMaterialized   *prometheus.GaugeVec
	RowsLoaded         *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Source records consumed, by stream",
			},
			[]string{"stream"},
		),

		RecordErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_errors_total",
				Help:      "Malformed source records, by stream",
			},
			[]string{"stream"},
		),

		BusinessRuleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "business_rule_events_total",
				Help:      "Records rejected, corrected or discarded by a business rule",
			},
			[]string{"rule", "outcome"},
		),

		RowsMaterialized: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_materialized",
				Help:      "Rows produced by the last transform, by table",
			},
			[]string{"table"},
		),

		RowsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_loaded_total",
				Help:      "Rows written to the sink, by table",
			},
			[]string{"table"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of run stages in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordProcessed increments the processed counter of a stream.
func (c *Collector) RecordProcessed(stream string) {
	if c == nil {
		return
	}
	c.RecordsProcessed.WithLabelValues(stream).Inc()
}

// RecordError increments the malformed-record counter of a stream.
func (c *Collector) RecordError(stream string) {
	if c == nil {
		return
	}
	c.RecordErrors.WithLabelValues(stream).Inc()
}

// RecordRule increments the counter of a business rule outcome.
func (c *Collector) RecordRule(rule, outcome string) {
	if c == nil {
		return
	}
	c.BusinessRuleEvents.WithLabelValues(rule, outcome).Inc()
}

// SetMaterialized records the row counts of a transform result.
func (c *Collector) SetMaterialized(counts map[string]int) {
	if c == nil {
		return
	}
	for table, n := range counts {
		c.RowsMaterialized.WithLabelValues(table).Set(float64(n))
	}
}

// AddLoaded adds n rows to the loaded counter of a table.
func (c *Collector) AddLoaded(table string, n int) {
	if c == nil {
		return
	}
	c.RowsLoaded.WithLabelValues(table).Add(float64(n))
}

// ObserveStage records how long a stage took, measured from start.
func (c *Collector) ObserveStage(stage string, start time.Time) time.Duration {
	elapsed := time.Since(start)
	if c != nil {
		c.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
	return elapsed
}
