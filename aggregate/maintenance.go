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

	"github.com/aaronlmathis/aerodw/calendar"
	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/slots"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// MaintenanceStats counts maintenance outcomes.
type MaintenanceStats struct {
	Processed int
	Rejected  int
}

// MaintenanceAggregator folds maintenance slots into monthly out-of-service
// time. It checks slots against the same registry as flights.
type MaintenanceAggregator struct {
	state *State
	opts  options
	stats MaintenanceStats
}

// NewMaintenanceAggregator creates a maintenance aggregator writing into state.
func NewMaintenanceAggregator(state *State, opts ...Option) *MaintenanceAggregator {
	return &MaintenanceAggregator{state: state, opts: newOptions(opts)}
}

// Add processes one maintenance slot.
func (a *MaintenanceAggregator) Add(ctx context.Context, record core.Record) error {
	m, err := DecodeMaintenance(record)
	if err != nil {
		return err
	}
	a.stats.Processed++

	month := a.state.addMonth(m.ScheduledDeparture)

	if a.opts.businessRules {
		key := slots.Key{Entity: m.Aircraft, Day: calendar.DayCode(m.ScheduledDeparture)}
		slot := slots.Between(m.ScheduledDeparture, m.ScheduledArrival)
		if conflict, ok := a.state.Slots.Offer(key, slot); !ok {
			a.stats.Rejected++
			a.opts.metrics.RecordRule(metrics.RuleNoDoubleBooking, metrics.OutcomeRejected)
			a.opts.logger.Warn("maintenance overlaps a committed slot",
				"rule", metrics.RuleNoDoubleBooking,
				"aircraft", m.Aircraft,
				"day", key.Day,
				"slot", slot.String(),
				"conflicts_with", conflict.Slot.String(),
				"conflict_seq", conflict.Seq,
				"committed", a.state.Slots.Committed(key))
			return nil
		}
	}

	d := calendar.Days(m.ScheduledDeparture, m.ScheduledArrival)
	u := a.state.monthly(warehouse.MonthlyKey{Registration: m.Aircraft, MonthID: month.MonthID})
	u.ADOS += d
	if m.Programmed {
		u.ADOSS += d
	} else {
		u.ADOSU += d
	}
	u.ADIS -= d
	return nil
}

// Stats returns the counts so far.
func (a *MaintenanceAggregator) Stats() MaintenanceStats {
	return a.stats
}
