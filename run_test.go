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

package aerodw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/load"
	"github.com/aaronlmathis/aerodw/readers"
	"github.com/aaronlmathis/aerodw/transform"
	"github.com/aaronlmathis/aerodw/validators"
	"github.com/aaronlmathis/aerodw/warehouse"
)

type streams struct {
	aircraft, reporteurs, flights, maintenance, reports *readers.SliceReader
}

func newStreams() streams {
	flight := func(aircraft, dep, arr string) core.Record {
		return core.Record{
			"aircraftregistration": aircraft,
			"scheduleddeparture":   dep,
			"scheduledarrival":     arr,
			"actualdeparture":      dep,
			"actualarrival":        arr,
			"cancelled":            "false",
		}
	}
	return streams{
		aircraft: readers.NewSliceReader(
			core.Record{"registration": "A1", "model": "A320", "manufacturer": "Airbus"},
		),
		reporteurs: readers.NewSliceReader(
			core.Record{"reporteurid": "7", "airport": "BCN"},
		),
		flights: readers.NewSliceReader(
			flight("A1", "2023-01-05 08:00:00", "2023-01-05 10:00:00"),
			flight("A1", "2023-01-05 09:00:00", "2023-01-05 11:00:00"),
		),
		maintenance: readers.NewSliceReader(),
		reports: readers.NewSliceReader(
			core.Record{
				"aircraftregistration": "A1",
				"reportingdate":        "2023-01-20 12:00:00",
				"reporteurid":          "7",
				"reporteurclass":       "PIREP",
			},
		),
	}
}

func (s streams) builder() *RunBuilder {
	return NewRun().
		Aircraft(s.aircraft).
		Reporteurs(s.reporteurs).
		Flights(s.flights).
		Maintenance(s.maintenance).
		Reports(s.reports)
}

func (s streams) allClosed() bool {
	return s.aircraft.Closed() && s.reporteurs.Closed() && s.flights.Closed() && s.maintenance.Closed() && s.reports.Closed()
}

func TestRun_TransformOnly(t *testing.T) {
	s := newStreams()
	run, err := s.builder().Build()
	require.NoError(t, err)

	res, err := run.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Tables.DailyUsage, 1)
	assert.Equal(t, warehouse.DailyUsage{Registration: "A1", DayID: "2023-1-5", FH: 2, TOs: 1, STO: 1}, res.Tables.DailyUsage[0])
	assert.Equal(t, 1, res.Stats.RejectedFlights)
	assert.Nil(t, run.Loaded())
	assert.True(t, s.allClosed())
}

func TestRun_LoadsToDirectory(t *testing.T) {
	s := newStreams()
	dir := t.TempDir()
	run, err := s.builder().To(load.DirLocation{Dir: dir, Format: load.FormatJSON}).Build()
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Loaded()[warehouse.TableDailyUsage])
	assert.Equal(t, 1, run.Loaded()[warehouse.TableReportageUsage])

	data, err := os.ReadFile(filepath.Join(dir, "daily_usage.jsonl"))
	require.NoError(t, err)
	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &row))
	assert.Equal(t, 2.0, row["fh"])
	assert.Equal(t, "2023-1-5", row["day_id"])
	assert.True(t, s.allClosed())
}

func TestRun_StrictValidationFails(t *testing.T) {
	s := newStreams()
	strict := &validators.WarehouseValidator{
		Strict: true,
		CustomValidators: []func(*warehouse.Tables) []validators.Violation{
			func(tables *warehouse.Tables) []validators.Violation {
				return []validators.Violation{{Table: warehouse.TableAircrafts, Check: "fleet_size", Key: "A1", Message: "fleet too small"}}
			},
		},
	}
	dir := t.TempDir()
	run, err := s.builder().WithValidator(strict).To(load.DirLocation{Dir: dir}).Build()
	require.NoError(t, err)

	res, err := run.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, validators.ErrValidation))
	require.NotNil(t, res, "tables are returned for inspection")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is loaded after a failed validation")
}

func TestRun_TransformErrorClosesSources(t *testing.T) {
	s := newStreams()
	s.flights = readers.NewSliceReader(core.Record{
		"aircraftregistration": "A1",
		"scheduleddeparture":   "yesterday",
		"scheduledarrival":     "2023-01-05 10:00:00",
	})
	run, err := s.builder().Build()
	require.NoError(t, err)

	res, err := run.Execute(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, core.ErrInvalidType))
	assert.True(t, s.allClosed())
}

func TestRun_UsesProvidedTransformerAndLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := newStreams()
	run, err := s.builder().
		WithLogger(logger).
		WithTransformer(transform.New(transform.WithBusinessRules(false), transform.WithLogger(logger))).
		Build()
	require.NoError(t, err)

	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Tables.DailyUsage[0].FH)
	assert.Equal(t, 2, res.Tables.DailyUsage[0].TOs)
	assert.True(t, strings.Contains(logs.String(), "flights aggregated"))
}

func TestRunBuilder_RequiresSource(t *testing.T) {
	_, err := NewRun().To(load.DirLocation{Dir: t.TempDir()}).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one data source")
}
