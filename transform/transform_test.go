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

package transform

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/aerodw/aggregate"
	"github.com/aaronlmathis/aerodw/calendar"
	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/readers"
	"github.com/aaronlmathis/aerodw/warehouse"
)

func transformOne(t *testing.T, tr core.Transformer, record core.Record) (core.Record, error) {
	t.Helper()
	return tr.Transform(context.Background(), record)
}

func TestParseTime(t *testing.T) {
	tr := ParseTime("ts")

	out, err := transformOne(t, tr, core.Record{"ts": "2023-01-05 08:30:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 5, 8, 30, 0, 0, time.UTC), out["ts"])

	out, err = transformOne(t, tr, core.Record{"ts": "2023-01-05T08:30:00Z"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 5, 8, 30, 0, 0, time.UTC), out["ts"])

	out, err = transformOne(t, tr, core.Record{"ts": "  "})
	require.NoError(t, err)
	assert.Nil(t, out["ts"])

	already := time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
	out, err = transformOne(t, tr, core.Record{"ts": already})
	require.NoError(t, err)
	assert.Equal(t, already, out["ts"])

	_, err = transformOne(t, tr, core.Record{"ts": "yesterday"})
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestParseTime_DoesNotMutateInput(t *testing.T) {
	in := core.Record{"ts": "2023-01-05"}
	_, err := transformOne(t, ParseTime("ts", "2006-01-02"), in)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-05", in["ts"])
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"true", true},
		{"f", false},
		{"1", true},
		{"", nil},
		{true, true},
		{nil, nil},
	}
	for _, tt := range tests {
		out, err := transformOne(t, ParseBool("b"), core.Record{"b": tt.in})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out["b"], "input %v", tt.in)
	}

	_, err := transformOne(t, ParseBool("b"), core.Record{"b": "maybe"})
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestRenameTrimToStringChain(t *testing.T) {
	tr := Chain(
		Rename(map[string]string{"AircraftReg": aggregate.FieldAircraft}),
		TrimSpace(aggregate.FieldAircraft),
		ToString(aggregate.FieldReporteurID),
	)

	out, err := transformOne(t, tr, core.Record{"AircraftReg": " A1 ", aggregate.FieldReporteurID: int64(42), "x": nil})
	require.NoError(t, err)
	assert.Equal(t, core.Record{aggregate.FieldAircraft: "A1", aggregate.FieldReporteurID: "42", "x": nil}, out)

	out, err = transformOne(t, Chain(), core.Record{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, core.Record{"a": 1}, out)
}

// fixture mirrors what the CSV and SQL sources deliver: strings for the
// reference feeds and for timestamps read from files.
func fixture() Sources {
	return Sources{
		Aircraft: readers.NewSliceReader(
			core.Record{"registration": "A1", "model": "A320", "manufacturer": "Airbus"},
			core.Record{"registration": "A2", "model": "B737", "manufacturer": "Boeing"},
		),
		Reporteurs: readers.NewSliceReader(
			core.Record{"reporteurid": "7", "airport": "BCN"},
		),
		Flights: readers.NewSliceReader(
			flightRow("A1", "2023-01-05 08:00:00", "2023-01-05 08:00:00", "2023-01-05 10:00:00", "false"),
			flightRow("A1", "2023-01-05 09:00:00", "2023-01-05 09:00:00", "2023-01-05 11:00:00", "false"),
			flightRow("A2", "2023-01-05 10:00:00", "2023-01-05 11:00:00", "2023-01-05 10:00:00", "false"),
			flightRow("A2", "2023-01-06 10:00:00", "", "", "true"),
			flightRow("A2", "2023-02-01 06:00:00", "2023-02-01 07:00:00", "2023-02-01 08:00:00", "false"),
		),
		Maintenance: readers.NewSliceReader(
			core.Record{
				"aircraftregistration": "A1",
				"scheduleddeparture":   "2023-01-05 09:00:00",
				"scheduledarrival":     "2023-01-05 12:00:00",
				"programmed":           "true",
			},
			core.Record{
				"aircraftregistration": "A1",
				"scheduleddeparture":   "2023-01-10 00:00:00",
				"scheduledarrival":     "2023-01-11 00:00:00",
				"programmed":           "false",
			},
		),
		Reports: readers.NewSliceReader(
			reportRow("A1", "7", "PIREP"),
			reportRow("A1", "8", "MAREP"),
			reportRow("A9", "7", "PIREP"),
		),
	}
}

func flightRow(aircraft, schedDep, actDep, actArr, cancelled string) core.Record {
	return core.Record{
		"aircraftregistration": aircraft,
		"scheduleddeparture":   schedDep,
		"scheduledarrival":     schedDep,
		"actualdeparture":      actDep,
		"actualarrival":        actArr,
		"cancelled":            cancelled,
	}
}

func reportRow(aircraft, reporteur, class string) core.Record {
	return core.Record{
		"aircraftregistration": aircraft,
		"reportingdate":        "2023-01-20 12:00:00",
		"reporteurid":          reporteur,
		"reporteurclass":       class,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := New().Run(context.Background(), fixture())
	require.NoError(t, err)

	stats := res.Stats
	assert.Equal(t, 5, stats.Records[aggregate.StreamFlights])
	assert.Equal(t, 2, stats.Records[aggregate.StreamMaintenance])
	assert.Equal(t, 3, stats.Records[aggregate.StreamReports])
	assert.Equal(t, 1, stats.RejectedFlights)
	assert.Equal(t, 1, stats.Swapped)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.RejectedMaintenance)
	assert.Equal(t, 1, stats.ForeignReports)
	assert.Zero(t, stats.Skipped)

	tables := res.Tables
	assert.Equal(t, []warehouse.DailyUsage{
		{Registration: "A1", DayID: "2023-1-5", FH: 2, TOs: 1, STO: 1},
		{Registration: "A2", DayID: "2023-1-5", FH: 1, TOs: 1, STO: 1},
		{Registration: "A2", DayID: "2023-1-6", STO: 1},
		{Registration: "A2", DayID: "2023-2-1", FH: 1, TOs: 1, STO: 1},
	}, tables.DailyUsage)

	require.Len(t, tables.MonthlyUsage, 3)
	a1 := tables.MonthlyUsage[0]
	assert.Equal(t, "A1", a1.Registration)
	assert.InDelta(t, 1.0, a1.ADOSU, 1e-9)
	assert.InDelta(t, calendar.NominalMonthDays-1, a1.ADIS, 1e-9)
	a2 := tables.MonthlyUsage[1]
	assert.Equal(t, 1, a2.CN)
	feb := tables.MonthlyUsage[2]
	assert.Equal(t, warehouse.MonthlyKey{Registration: "A2", MonthID: "202302"}, warehouse.MonthlyKey{Registration: feb.Registration, MonthID: feb.MonthID})
	assert.Equal(t, 1, feb.DY)
	assert.InDelta(t, 1.0, feb.DH, 1e-9)

	assert.Equal(t, []warehouse.Month{
		{MonthID: "202301", Month: 1, Year: 2023},
		{MonthID: "202302", Month: 2, Year: 2023},
	}, tables.Months)
	assert.Len(t, tables.Days, 3)
	assert.Len(t, tables.Aircrafts, 2)

	assert.Equal(t, []warehouse.Reporteur{
		{ReporteurUID: "7", Airport: warehouse.StringPtr("BCN"), Role: warehouse.StringPtr("PIREP")},
		{ReporteurUID: "8", Role: warehouse.StringPtr("MAREP")},
	}, tables.Reporteurs)
	assert.Equal(t, []warehouse.ReportageUsage{
		{Registration: "A1", MonthID: "202301", ReporteurUID: "7", Reps: 1, PIReps: 1},
		{Registration: "A1", MonthID: "202301", ReporteurUID: "8", Reps: 1, MAReps: 1},
	}, tables.ReportageUsage)

	for _, u := range tables.DailyUsage {
		assert.GreaterOrEqual(t, u.FH, 0.0)
	}
}

func TestRun_Idempotent(t *testing.T) {
	first, err := New().Run(context.Background(), fixture())
	require.NoError(t, err)
	second, err := New().Run(context.Background(), fixture())
	require.NoError(t, err)

	assert.Equal(t, first.Tables, second.Tables)
}

func TestRun_BusinessRulesOff(t *testing.T) {
	res, err := New(WithBusinessRules(false)).Run(context.Background(), fixture())
	require.NoError(t, err)

	assert.Zero(t, res.Stats.RejectedFlights)
	assert.Zero(t, res.Stats.Swapped)
	assert.Zero(t, res.Stats.RejectedMaintenance)
	// Reports on aircraft outside the fleet are dropped regardless.
	assert.Equal(t, 1, res.Stats.ForeignReports)

	a1 := res.Tables.DailyUsage[0]
	assert.Equal(t, 2, a1.TOs)
	assert.InDelta(t, 4.0, a1.FH, 1e-9)
	a2 := res.Tables.DailyUsage[1]
	assert.InDelta(t, -1.0, a2.FH, 1e-9)
}

func badTimestampSources() Sources {
	return Sources{
		Flights: readers.NewSliceReader(
			flightRow("A1", "not a date", "", "", "false"),
			flightRow("A1", "2023-01-05 08:00:00", "2023-01-05 08:00:00", "2023-01-05 09:00:00", "false"),
		),
	}
}

func TestRun_FailFastOnBadTimestamp(t *testing.T) {
	_, err := New().Run(context.Background(), badTimestampSources())

	var recErr *aggregate.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, aggregate.StreamFlights, recErr.Stream)
	assert.Equal(t, 0, recErr.Index)
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestRun_SkipErrors(t *testing.T) {
	var handled []error
	handler := core.ErrorHandlerFunc(func(ctx context.Context, record core.Record, err error) error {
		handled = append(handled, err)
		return nil
	})

	res, err := New(WithErrorStrategy(core.SkipErrors), WithErrorHandler(handler)).Run(context.Background(), badTimestampSources())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 2, res.Stats.Records[aggregate.StreamFlights])
	require.Len(t, handled, 1)
	assert.ErrorIs(t, handled[0], core.ErrInvalidType)
	assert.Len(t, res.Tables.DailyUsage, 1)
}

func TestRun_ErrorHandlerCanStop(t *testing.T) {
	stop := errors.New("stop")
	handler := core.ErrorHandlerFunc(func(ctx context.Context, record core.Record, err error) error {
		return stop
	})

	_, err := New(WithErrorStrategy(core.SkipErrors), WithErrorHandler(handler)).Run(context.Background(), badTimestampSources())
	assert.ErrorIs(t, err, stop)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, fixture())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CustomNormalizers(t *testing.T) {
	src := Sources{
		Flights: readers.NewSliceReader(core.Record{
			"reg":                "A1",
			"scheduleddeparture": "05/01/2023 08:00",
			"actualdeparture":    "05/01/2023 08:00",
			"actualarrival":      "05/01/2023 09:30",
		}),
	}
	layout := "02/01/2006 15:04"
	tr := New(WithNormalizers(aggregate.StreamFlights,
		Rename(map[string]string{"reg": aggregate.FieldAircraft}),
		ParseTime(aggregate.FieldScheduledDeparture, layout),
		ParseTime(aggregate.FieldActualDeparture, layout),
		ParseTime(aggregate.FieldActualArrival, layout),
	))

	res, err := tr.Run(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Tables.DailyUsage, 1)
	assert.InDelta(t, 1.5, res.Tables.DailyUsage[0].FH, 1e-9)
}

func TestRun_ReportsProgress(t *testing.T) {
	var calls []int
	progress := ProgressFunc(func(stream string, done, total int) {
		if stream == aggregate.StreamFlights {
			calls = append(calls, done)
			assert.Equal(t, 10, total)
		}
	})

	_, err := New(WithProgress(progress), WithExpectedTotals(Totals{Flights: 10})).Run(context.Background(), fixture())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestLogProgress_EveryTenthOnce(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogProgress(slog.New(slog.NewTextHandler(&buf, nil)))

	for i := 1; i <= 100; i++ {
		p.Advance(aggregate.StreamReports, i, 100)
	}
	p.Advance(aggregate.StreamFlights, 1, 0)

	assert.Equal(t, 10, strings.Count(buf.String(), "msg=progress"))
	assert.Contains(t, buf.String(), "percent=100")
	assert.NotContains(t, buf.String(), "stream=flights")
}

func TestRun_LogsProgressOnEveryRun(t *testing.T) {
	var buf bytes.Buffer
	tr := New(
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithExpectedTotals(Totals{Flights: 5}),
	)

	for i := 0; i < 2; i++ {
		_, err := tr.Run(context.Background(), fixture())
		require.NoError(t, err)
	}

	assert.Equal(t, 10, strings.Count(buf.String(), "msg=progress stream=flights"))
}

func TestRun_LogsBusinessRuleOutcomes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	_, err := New(WithLogger(logger), WithProgress(ProgressFunc(func(string, int, int) {}))).Run(context.Background(), fixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"rule":"BR-21"`)
	assert.Contains(t, out, `"rule":"BR-23"`)
	assert.Contains(t, out, `"aircraft":"A9"`)
	assert.Contains(t, out, `"committed"`)
	assert.Contains(t, out, `"conflict_seq":1`)
}
