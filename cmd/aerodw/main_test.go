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

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/aerodw/config"
	"github.com/aaronlmathis/aerodw/load"
	"github.com/aaronlmathis/aerodw/transform"
	"github.com/aaronlmathis/aerodw/warehouse"
	"github.com/aaronlmathis/aerodw/writers"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aerodw dev"))
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily_usage.parquet")
	w, err := writers.NewParquetWriter(path, warehouse.Schema[warehouse.TableDailyUsage])
	require.NoError(t, err)
	row := warehouse.DailyUsage{Registration: "A1", DayID: "5-1-2023", FH: 2, TOs: 1, STO: 1}.Record()
	require.NoError(t, w.Write(context.Background(), row))
	require.NoError(t, w.Close())

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rows:       1")
	assert.Contains(t, out, "fh (float64)")
	assert.Contains(t, out, "registration (utf8)")

	_, err = execute(t, "inspect")
	assert.Error(t, err)

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "missing.parquet"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("flight overlaps a committed slot", "rule", "BR-21")
	require.NoError(t, closeFn())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"rule":"BR-21"`)

	path := filepath.Join(t.TempDir(), "logs", "aerodw.log")
	logger, closeFn, err = newLogger(config.LogConfig{Level: "info", Format: "text", File: path}, &buf)
	require.NoError(t, err)
	logger.Info("run started")
	require.NoError(t, closeFn())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"run started\"")

	_, _, err = newLogger(config.LogConfig{Level: "chatty", Format: "text"}, &buf)
	assert.Error(t, err)
}

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name string
		sink config.SinkConfig
		want load.Location
	}{
		{"none", config.SinkConfig{Kind: config.SinkNone}, nil},
		{"parquet dir", config.SinkConfig{Kind: config.SinkParquet, Dir: "out"}, load.DirLocation{Dir: "out", Format: load.FormatParquet}},
		{"json dir", config.SinkConfig{Kind: config.SinkJSON, Dir: "out"}, load.DirLocation{Dir: "out", Format: load.FormatJSON}},
		{"postgres", config.SinkConfig{Kind: config.SinkPostgres, DSN: "postgres://dw", Truncate: true, BatchSize: 50},
			load.PostgresLocation{DSN: "postgres://dw", Truncate: true, BatchSize: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newLocation(&config.Config{Sink: tt.sink})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := newLocation(&config.Config{Sink: config.SinkConfig{
		Kind: config.SinkParquet,
		S3:   config.S3SinkConfig{Bucket: "dw", Prefix: "exports", Region: "eu-west-1"},
	}})
	require.NoError(t, err)
	s3loc, ok := got.(*load.S3Location)
	require.True(t, ok)
	assert.Equal(t, "exports/days.parquet", s3loc.Key(warehouse.TableDays))
	assert.Equal(t, "eu-west-1", s3loc.ClientOptions.Region)
}

func TestRunFlagsApply(t *testing.T) {
	cfg := &config.Config{
		Sources: config.SourcesConfig{
			Aircraft:  config.FeedConfig{Path: "aircraft.csv"},
			Personnel: config.FeedConfig{Path: "personnel.csv"},
			Postgres:  config.PostgresSourceConfig{DSN: "postgres://aims"},
		},
		Transform: config.TransformConfig{ApplyBusinessRules: true, ErrorStrategy: "fail_fast"},
		Sink:      config.SinkConfig{Kind: config.SinkParquet, S3: config.S3SinkConfig{Bucket: "dw"}},
		Log:       config.LogConfig{Level: "info", Format: "text"},
	}

	require.NoError(t, runFlags{noBusinessRules: true, sink: "json", out: "/tmp/dw"}.apply(cfg))
	assert.False(t, cfg.Transform.ApplyBusinessRules)
	assert.Equal(t, config.SinkJSON, cfg.Sink.Kind)
	assert.Equal(t, "/tmp/dw", cfg.Sink.Dir)
	assert.Empty(t, cfg.Sink.S3.Bucket)

	err := runFlags{sink: "csv"}.apply(cfg)
	assert.True(t, errors.Is(err, config.ErrInvalidSinkKind))

	cfg.Sink.Kind = config.SinkNone
	cfg.Sources.Postgres.DSN = ""
	assert.True(t, errors.Is(runFlags{}.apply(cfg), config.ErrSourceDSNRequired))
}

func TestPrintSummary(t *testing.T) {
	res := &transform.Result{
		Tables: warehouse.Tables{Days: []warehouse.Day{{DayID: "5-1-2023", Day: 5, MonthID: "202301"}}},
		Stats:  transform.Stats{RejectedFlights: 1, Swapped: 2},
	}
	var buf bytes.Buffer
	printSummary(&buf, res, map[string]int{warehouse.TableDays: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(warehouse.LoadOrder)+2)
	assert.Equal(t, []string{"days", "1", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"months", "0", "-"}, strings.Fields(lines[2]))
	assert.Contains(t, lines[len(lines)-1], "rejected_flights=1 swapped=2")
}
