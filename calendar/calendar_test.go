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

package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aaronlmathis/aerodw/warehouse"
)

func TestCodes(t *testing.T) {
	ts := time.Date(2023, time.January, 5, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "2023-1-5", DayCode(ts))
	assert.Equal(t, "202301", MonthCode(ts))
	assert.Equal(t, warehouse.Day{DayID: "2023-1-5", Day: 5, MonthID: "202301"}, DayOf(ts))
	assert.Equal(t, warehouse.Month{MonthID: "202301", Month: 1, Year: 2023}, MonthOf(ts))
}

func TestDayCode_UniquePerCalendarDay(t *testing.T) {
	// 2023-1-11 and 2023-11-1 would collide without separators.
	a := time.Date(2023, time.January, 11, 0, 0, 0, 0, time.UTC)
	b := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, DayCode(a), DayCode(b))

	morning := time.Date(2023, time.March, 3, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2023, time.March, 3, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, DayCode(morning), DayCode(evening))
}

func TestMonthCode_ZeroPadded(t *testing.T) {
	assert.Equal(t, "202409", MonthCode(time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "202412", MonthCode(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDurations(t *testing.T) {
	start := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	assert.InDelta(t, 2.5, Hours(start, start.Add(150*time.Minute)), 1e-9)
	assert.InDelta(t, -1.0, Hours(start, start.Add(-time.Hour)), 1e-9)
	assert.InDelta(t, 1.0, Days(start, start.Add(24*time.Hour)), 1e-9)
	assert.InDelta(t, NominalMonthDays, 30.4375, 1e-9)
}
