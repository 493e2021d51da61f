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

// Package calendar derives the day and month identifiers of the warehouse
// time dimensions from source timestamps.
package calendar

import (
	"fmt"
	"time"

	"github.com/aaronlmathis/aerodw/warehouse"
)

// NominalMonthDays is the in-service day count a month starts with.
const NominalMonthDays = 365.25 / 12

// DayCode returns the day identifier, e.g. "2023-1-5". Parts are not padded;
// the separators keep it unique per calendar day.
func DayCode(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// MonthCode returns the month identifier, e.g. "202301".
func MonthCode(t time.Time) string {
	return fmt.Sprintf("%d%02d", t.Year(), int(t.Month()))
}

// DayOf returns the days row for t.
func DayOf(t time.Time) warehouse.Day {
	return warehouse.Day{DayID: DayCode(t), Day: t.Day(), MonthID: MonthCode(t)}
}

// MonthOf returns the months row for t.
func MonthOf(t time.Time) warehouse.Month {
	return warehouse.Month{MonthID: MonthCode(t), Month: int(t.Month()), Year: t.Year()}
}

// Hours returns the signed length of the interval from start to end in hours.
func Hours(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// Days returns the signed length of the interval from start to end in days.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}
