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

// DelayThreshold is the departure delay, in hours, above which a flight
// counts as delayed.
const DelayThreshold = 15.0 / 60

// FlightStats counts flight outcomes.
type FlightStats struct {
	Processed int
	Cancelled int
	Rejected  int
	Swapped   int
}

// FlightAggregator folds flights into daily and monthly usage.
type FlightAggregator struct {
	state *State
	opts  options
	stats FlightStats
}

// NewFlightAggregator creates a flight aggregator writing into state.
func NewFlightAggregator(state *State, opts ...Option) *FlightAggregator {
	return &FlightAggregator{state: state, opts: newOptions(opts)}
}

// Add processes one flight.
func (a *FlightAggregator) Add(ctx context.Context, record core.Record) error {
	f, err := DecodeFlight(record)
	if err != nil {
		return err
	}
	a.stats.Processed++

	day := a.state.addDay(f.ScheduledDeparture)
	month := a.state.addMonth(f.ScheduledDeparture)
	daily := a.state.daily(warehouse.DailyKey{Registration: f.Aircraft, DayID: day.DayID})
	monthly := a.state.monthly(warehouse.MonthlyKey{Registration: f.Aircraft, MonthID: month.MonthID})

	if f.Cancelled() {
		a.stats.Cancelled++
		monthly.CN++
		daily.STO++
		return nil
	}

	departure, arrival := *f.ActualDeparture, *f.ActualArrival

	if a.opts.businessRules {
		key := slots.Key{Entity: f.Aircraft, Day: day.DayID}
		slot := slots.Between(departure, arrival)
		if conflict, ok := a.state.Slots.Offer(key, slot); !ok {
			a.stats.Rejected++
			a.opts.metrics.RecordRule(metrics.RuleNoDoubleBooking, metrics.OutcomeRejected)
			a.opts.logger.Warn("flight overlaps a committed slot",
				"rule", metrics.RuleNoDoubleBooking,
				"aircraft", f.Aircraft,
				"day", day.DayID,
				"slot", slot.String(),
				"conflicts_with", conflict.Slot.String(),
				"conflict_seq", conflict.Seq,
				"committed", a.state.Slots.Committed(key))
			return nil
		}
	}

	fh := calendar.Hours(departure, arrival)
	if a.opts.businessRules && fh < 0 {
		departure, arrival = arrival, departure
		fh = calendar.Hours(departure, arrival)
		a.stats.Swapped++
		a.opts.metrics.RecordRule(metrics.RuleChronologyRepair, metrics.OutcomeCorrected)
		a.opts.logger.Warn("flight departure and arrival swapped",
			"rule", metrics.RuleChronologyRepair,
			"aircraft", f.Aircraft,
			"day", day.DayID)
	}

	// The delay is measured from the departure after any swap.
	dh := calendar.Hours(f.ScheduledDeparture, departure)
	delayed := dh > DelayThreshold
	if !delayed {
		dh = 0
	}

	daily.FH += fh
	daily.TOs++
	daily.STO++
	monthly.DH += dh
	if delayed {
		monthly.DY++
	}
	return nil
}

// Stats returns the counts so far.
func (a *FlightAggregator) Stats() FlightStats {
	return a.stats
}
