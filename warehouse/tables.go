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

package warehouse

import "github.com/aaronlmathis/aerodw/core"

// Tables holds the materialized rows of every warehouse table, each slice in
// first-seen order.
type Tables struct {
	Days           []Day
	Months         []Month
	Aircrafts      []Aircraft
	Reporteurs     []Reporteur
	DailyUsage     []DailyUsage
	MonthlyUsage   []MonthlyUsage
	ReportageUsage []ReportageUsage
}

// Rows returns the rows of one table as records.
func (t *Tables) Rows(table string) []core.Record {
	switch table {
	case TableDays:
		return toRecords(t.Days)
	case TableMonths:
		return toRecords(t.Months)
	case TableAircrafts:
		return toRecords(t.Aircrafts)
	case TableReporteurs:
		return toRecords(t.Reporteurs)
	case TableDailyUsage:
		return toRecords(t.DailyUsage)
	case TableMonthlyUsage:
		return toRecords(t.MonthlyUsage)
	case TableReportageUsage:
		return toRecords(t.ReportageUsage)
	default:
		return nil
	}
}

// Records returns the table-name-to-rows mapping handed to the sink.
func (t *Tables) Records() map[string][]core.Record {
	out := make(map[string][]core.Record, len(LoadOrder))
	for _, name := range LoadOrder {
		out[name] = t.Rows(name)
	}
	return out
}

// Counts returns the number of rows per table.
func (t *Tables) Counts() map[string]int {
	return map[string]int{
		TableDays:           len(t.Days),
		TableMonths:         len(t.Months),
		TableAircrafts:      len(t.Aircrafts),
		TableReporteurs:     len(t.Reporteurs),
		TableDailyUsage:     len(t.DailyUsage),
		TableMonthlyUsage:   len(t.MonthlyUsage),
		TableReportageUsage: len(t.ReportageUsage),
	}
}

type recordable interface {
	Record() core.Record
}

func toRecords[T recordable](rows []T) []core.Record {
	out := make([]core.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out
}
