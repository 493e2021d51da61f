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
	"github.com/aaronlmathis/aerodw/warehouse"
)

// ReferenceStats counts the rows of a reference feed.
type ReferenceStats struct {
	Loaded  int
	Skipped int
}

// AircraftLoader fills the aircraft table from the manufacturer reference
// feed. A registration seen twice keeps the last row.
type AircraftLoader struct {
	state *State
	opts  options
	keyed core.Filter
	stats ReferenceStats
}

// NewAircraftLoader creates a loader writing into state.
func NewAircraftLoader(state *State, opts ...Option) *AircraftLoader {
	return &AircraftLoader{
		state: state,
		opts:  newOptions(opts),
		keyed: filter.NotBlank(FieldRegistration),
	}
}

// Add stores one aircraft row.
func (l *AircraftLoader) Add(ctx context.Context, record core.Record) error {
	ok, err := l.keyed.ShouldInclude(ctx, record)
	if err != nil {
		return err
	}
	if !ok {
		l.stats.Skipped++
		l.opts.logger.Warn("aircraft row without registration skipped", "row", record)
		return nil
	}

	registration, _ := record.String(FieldRegistration)
	model, err := optionalString(record, FieldModel)
	if err != nil {
		return err
	}
	manufacturer, err := optionalString(record, FieldManufacturer)
	if err != nil {
		return err
	}

	l.state.Aircrafts.Put(registration, warehouse.Aircraft{
		Registration: registration,
		Model:        model,
		Manufacturer: manufacturer,
	})
	l.stats.Loaded++
	return nil
}

// Stats returns the counts so far.
func (l *AircraftLoader) Stats() ReferenceStats {
	return l.stats
}

// ReporteurLoader fills the reporteur table from the maintenance personnel
// feed. Roles stay unset until a report names them.
type ReporteurLoader struct {
	state *State
	opts  options
	keyed core.Filter
	stats ReferenceStats
}

// NewReporteurLoader creates a loader writing into state.
func NewReporteurLoader(state *State, opts ...Option) *ReporteurLoader {
	return &ReporteurLoader{
		state: state,
		opts:  newOptions(opts),
		keyed: filter.NotBlank(FieldReporteurID),
	}
}

// Add stores one reporteur row. A blank airport is stored as unknown.
func (l *ReporteurLoader) Add(ctx context.Context, record core.Record) error {
	ok, err := l.keyed.ShouldInclude(ctx, record)
	if err != nil {
		return err
	}
	if !ok {
		l.stats.Skipped++
		l.opts.logger.Warn("reporteur row without id skipped", "row", record)
		return nil
	}

	uid, _ := record.String(FieldReporteurID)
	airport, err := optionalString(record, FieldAirport)
	if err != nil {
		return err
	}

	row := warehouse.Reporteur{ReporteurUID: uid}
	if airport != "" {
		row.Airport = warehouse.StringPtr(airport)
	}
	l.state.Reporteurs.Put(uid, row)
	l.stats.Loaded++
	return nil
}

// Stats returns the counts so far.
func (l *ReporteurLoader) Stats() ReferenceStats {
	return l.stats
}

// LoadAircraft drains src into the aircraft table of state.
func LoadAircraft(ctx context.Context, src core.DataSource, state *State, opts []Option, drain ...DrainOption) (ReferenceStats, error) {
	l := NewAircraftLoader(state, opts...)
	_, err := Drain(ctx, StreamAircraft, src, l, drain...)
	return l.stats, err
}

// LoadReporteurs drains src into the reporteur table of state.
func LoadReporteurs(ctx context.Context, src core.DataSource, state *State, opts []Option, drain ...DrainOption) (ReferenceStats, error) {
	l := NewReporteurLoader(state, opts...)
	_, err := Drain(ctx, StreamReporteurs, src, l, drain...)
	return l.stats, err
}
