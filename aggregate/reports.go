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

package aggregate

import (
	"context"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/filter"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// ReportStats counts report outcomes.
type ReportStats struct {
	Processed int
	Foreign   int
}

// ReportAggregator folds post-flight reports into reportage usage and
// completes the reporteur table. Reports on aircraft missing from the
// aircraft table are discarded.
type ReportAggregator struct {
	state *State
	opts  options
	known core.Filter
	stats ReportStats
}

// NewReportAggregator creates a report aggregator writing into state. The
// aircraft table of state must already be loaded.
func NewReportAggregator(state *State, opts ...Option) *ReportAggregator {
	return &ReportAggregator{
		state: state,
		opts:  newOptions(opts),
		known: filter.KnownAircraft(FieldAircraft, state.Aircrafts.Has),
	}
}

// Add processes one report.
func (a *ReportAggregator) Add(ctx context.Context, record core.Record) error {
	aircraft, err := record.String(FieldAircraft)
	if err != nil {
		return err
	}

	known, err := a.known.ShouldInclude(ctx, record)
	if err != nil {
		return err
	}
	if !known {
		a.stats.Processed++
		a.stats.Foreign++
		a.opts.metrics.RecordRule(metrics.RuleForeignAircraft, metrics.OutcomeDiscarded)
		a.opts.logger.Info("report on aircraft outside the fleet discarded", "aircraft", aircraft)
		return nil
	}

	r, err := DecodeReport(record)
	if err != nil {
		return err
	}
	a.stats.Processed++

	month := a.state.addMonth(r.ReportingDate)
	a.mergeReporteur(r.ReporteurID, r.Class)

	u := a.state.reportage(warehouse.ReportageKey{
		Registration: r.Aircraft,
		MonthID:      month.MonthID,
		ReporteurUID: r.ReporteurID,
	})
	u.Reps++
	switch r.Class {
	case ClassMAREP:
		u.MAReps++
	case ClassPIREP:
		u.PIReps++
	}
	return nil
}

// mergeReporteur sets the role of a known reporteur, or adds the reporteur
// with an unknown airport. The last report wins, a blank class clears the role.
func (a *ReportAggregator) mergeReporteur(uid, class string) {
	var role *string
	if class != "" {
		role = warehouse.StringPtr(class)
	}
	if row, ok := a.state.Reporteurs.Ref(uid); ok {
		row.Role = role
		return
	}
	a.state.Reporteurs.Put(uid, warehouse.Reporteur{ReporteurUID: uid, Role: role})
}

// Stats returns the counts so far.
func (a *ReportAggregator) Stats() ReportStats {
	return a.stats
}
