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

// Package validators checks the referential integrity and basic quality of
// materialized warehouse tables before they are loaded.
package validators

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aaronlmathis/aerodw/warehouse"
)

// ErrValidation is returned by Check in strict mode when any violation is found.
var ErrValidation = errors.New("warehouse validation failed")

// Check names.
const (
	CheckMonthReference     = "month_reference"
	CheckDayReference       = "day_reference"
	CheckAircraftReference  = "aircraft_reference"
	CheckReporteurReference = "reporteur_reference"
	CheckNegativeHours      = "negative_flight_hours"
)

// Violation describes a row that failed a check.
type Violation struct {
	Table   string
	Check   string
	Key     string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%s] %s: %s", v.Table, v.Key, v.Check, v.Message)
}

// WarehouseValidator checks materialized tables.
type WarehouseValidator struct {
	// Strict makes Check fail when any violation is found.
	Strict bool
	// NonNegativeHours requires fh >= 0 on every daily usage row. It only
	// holds when the chronology repair was applied.
	NonNegativeHours bool
	// MaxLogged caps the violations logged individually; zero logs all.
	MaxLogged int
	// CustomValidators run after the built-in checks.
	CustomValidators []func(*warehouse.Tables) []Violation
}

// Validate returns every violation found in tables.
func (v *WarehouseValidator) Validate(tables *warehouse.Tables) []Violation {
	months := make(map[string]bool, len(tables.Months))
	for _, m := range tables.Months {
		months[m.MonthID] = true
	}
	days := make(map[string]bool, len(tables.Days))
	for _, d := range tables.Days {
		days[d.DayID] = true
	}
	aircrafts := make(map[string]bool, len(tables.Aircrafts))
	for _, a := range tables.Aircrafts {
		aircrafts[a.Registration] = true
	}
	reporteurs := make(map[string]bool, len(tables.Reporteurs))
	for _, r := range tables.Reporteurs {
		reporteurs[r.ReporteurUID] = true
	}

	var out []Violation
	add := func(table, check, key, format string, args ...interface{}) {
		out = append(out, Violation{Table: table, Check: check, Key: key, Message: fmt.Sprintf(format, args...)})
	}

	for _, d := range tables.Days {
		if !months[d.MonthID] {
			add(warehouse.TableDays, CheckMonthReference, d.DayID, "month %s missing", d.MonthID)
		}
	}

	for _, u := range tables.DailyUsage {
		key := u.Registration + "/" + u.DayID
		if !days[u.DayID] {
			add(warehouse.TableDailyUsage, CheckDayReference, key, "day %s missing", u.DayID)
		}
		if !aircrafts[u.Registration] {
			add(warehouse.TableDailyUsage, CheckAircraftReference, key, "aircraft %s missing", u.Registration)
		}
		if v.NonNegativeHours && u.FH < 0 {
			add(warehouse.TableDailyUsage, CheckNegativeHours, key, "fh is %g", u.FH)
		}
	}

	for _, u := range tables.MonthlyUsage {
		key := u.Registration + "/" + u.MonthID
		if !months[u.MonthID] {
			add(warehouse.TableMonthlyUsage, CheckMonthReference, key, "month %s missing", u.MonthID)
		}
		if !aircrafts[u.Registration] {
			add(warehouse.TableMonthlyUsage, CheckAircraftReference, key, "aircraft %s missing", u.Registration)
		}
	}

	for _, u := range tables.ReportageUsage {
		key := u.Registration + "/" + u.MonthID + "/" + u.ReporteurUID
		if !months[u.MonthID] {
			add(warehouse.TableReportageUsage, CheckMonthReference, key, "month %s missing", u.MonthID)
		}
		if !reporteurs[u.ReporteurUID] {
			add(warehouse.TableReportageUsage, CheckReporteurReference, key, "reporteur %s missing", u.ReporteurUID)
		}
	}

	for _, custom := range v.CustomValidators {
		out = append(out, custom(tables)...)
	}
	return out
}

// Check validates tables and logs each violation as a warning. In strict
// mode it returns an error wrapping ErrValidation if anything was found.
func (v *WarehouseValidator) Check(tables *warehouse.Tables, logger *slog.Logger) error {
	violations := v.Validate(tables)
	if len(violations) == 0 {
		return nil
	}

	for i, violation := range violations {
		if v.MaxLogged > 0 && i >= v.MaxLogged {
			logger.Warn("further warehouse violations not logged", "remaining", len(violations)-i)
			break
		}
		logger.Warn("warehouse violation",
			"table", violation.Table,
			"check", violation.Check,
			"key", violation.Key,
			"detail", violation.Message)
	}

	if v.Strict {
		return fmt.Errorf("%w: %d violations, first: %s", ErrValidation, len(violations), violations[0])
	}
	return nil
}
