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
	"time"

	"github.com/aaronlmathis/aerodw/calendar"
	"github.com/aaronlmathis/aerodw/slots"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// State holds the accumulators of every warehouse table for one run, keyed by
// the table grain and kept in first-seen order.
type State struct {
	Days       *warehouse.OrderedMap[string, warehouse.Day]
	Months     *warehouse.OrderedMap[string, warehouse.Month]
	Aircrafts  *warehouse.OrderedMap[string, warehouse.Aircraft]
	Reporteurs *warehouse.OrderedMap[string, warehouse.Reporteur]
	Daily      *warehouse.OrderedMap[warehouse.DailyKey, warehouse.DailyUsage]
	Monthly    *warehouse.OrderedMap[warehouse.MonthlyKey, warehouse.MonthlyUsage]
	Reportage  *warehouse.OrderedMap[warehouse.ReportageKey, warehouse.ReportageUsage]

	// Slots is shared by flights and maintenance.
	Slots *slots.Registry
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		Days:       warehouse.NewOrderedMap[string, warehouse.Day](),
		Months:     warehouse.NewOrderedMap[string, warehouse.Month](),
		Aircrafts:  warehouse.NewOrderedMap[string, warehouse.Aircraft](),
		Reporteurs: warehouse.NewOrderedMap[string, warehouse.Reporteur](),
		Daily:      warehouse.NewOrderedMap[warehouse.DailyKey, warehouse.DailyUsage](),
		Monthly:    warehouse.NewOrderedMap[warehouse.MonthlyKey, warehouse.MonthlyUsage](),
		Reportage:  warehouse.NewOrderedMap[warehouse.ReportageKey, warehouse.ReportageUsage](),
		Slots:      slots.NewRegistry(),
	}
}

func (s *State) addDay(t time.Time) warehouse.Day {
	day := calendar.DayOf(t)
	s.Days.PutIfAbsent(day.DayID, day)
	return day
}

func (s *State) addMonth(t time.Time) warehouse.Month {
	month := calendar.MonthOf(t)
	s.Months.PutIfAbsent(month.MonthID, month)
	return month
}

// daily returns the accumulator for key, creating it empty.
func (s *State) daily(key warehouse.DailyKey) *warehouse.DailyUsage {
	s.Daily.PutIfAbsent(key, warehouse.DailyUsage{Registration: key.Registration, DayID: key.DayID})
	u, _ := s.Daily.Ref(key)
	return u
}

// monthly returns the accumulator for key, creating it with the nominal
// in-service days.
func (s *State) monthly(key warehouse.MonthlyKey) *warehouse.MonthlyUsage {
	s.Monthly.PutIfAbsent(key, warehouse.MonthlyUsage{
		Registration: key.Registration,
		MonthID:      key.MonthID,
		ADIS:         calendar.NominalMonthDays,
	})
	u, _ := s.Monthly.Ref(key)
	return u
}

func (s *State) reportage(key warehouse.ReportageKey) *warehouse.ReportageUsage {
	s.Reportage.PutIfAbsent(key, warehouse.ReportageUsage{
		Registration: key.Registration,
		MonthID:      key.MonthID,
		ReporteurUID: key.ReporteurUID,
	})
	u, _ := s.Reportage.Ref(key)
	return u
}

// Tables materializes the accumulators. Rows keep the order in which their
// keys were first seen, so identical inputs give identical tables.
func (s *State) Tables() warehouse.Tables {
	return warehouse.Tables{
		Days:           s.Days.Values(),
		Months:         s.Months.Values(),
		Aircrafts:      s.Aircrafts.Values(),
		Reporteurs:     s.Reporteurs.Values(),
		DailyUsage:     s.Daily.Values(),
		MonthlyUsage:   s.Monthly.Values(),
		ReportageUsage: s.Reportage.Values(),
	}
}
