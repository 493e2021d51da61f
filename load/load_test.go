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

package load

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/warehouse"
	"github.com/aaronlmathis/aerodw/writers"
)

func sampleTables() *warehouse.Tables {
	return &warehouse.Tables{
		Days:      []warehouse.Day{{DayID: "5-1-2023", Day: 5, MonthID: "202301"}},
		Months:    []warehouse.Month{{MonthID: "202301", Month: 1, Year: 2023}},
		Aircrafts: []warehouse.Aircraft{{Registration: "A1", Model: "A320", Manufacturer: "Airbus"}},
		Reporteurs: []warehouse.Reporteur{
			{ReporteurUID: "7", Airport: warehouse.StringPtr("BCN"), Role: warehouse.StringPtr("PIREP")},
		},
		DailyUsage: []warehouse.DailyUsage{{Registration: "A1", DayID: "5-1-2023", FH: 2, TOs: 1, STO: 1}},
		MonthlyUsage: []warehouse.MonthlyUsage{
			{Registration: "A1", MonthID: "202301", ADIS: 365.25 / 12},
		},
		ReportageUsage: []warehouse.ReportageUsage{
			{Registration: "A1", MonthID: "202301", ReporteurUID: "7", Reps: 1, PIReps: 1},
		},
	}
}

type recordingSink struct {
	table    string
	rows     []core.Record
	flushed  bool
	closed   bool
	writeErr error
	closeErr error
}

func (s *recordingSink) Write(ctx context.Context, r core.Record) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows = append(s.rows, r)
	return nil
}

func (s *recordingSink) Flush() error { s.flushed = true; return nil }

func (s *recordingSink) Close() error { s.closed = true; return s.closeErr }

type recordingLocation struct {
	order  []string
	sinks  map[string]*recordingSink
	failOn string
	err    error
}

func (l *recordingLocation) NewSink(table warehouse.TableSpec) (core.DataSink, error) {
	l.order = append(l.order, table.Name)
	sink := &recordingSink{table: table.Name}
	if table.Name == l.failOn {
		sink.writeErr = l.err
	}
	if l.sinks == nil {
		l.sinks = make(map[string]*recordingSink)
	}
	l.sinks[table.Name] = sink
	return sink, nil
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
		f.types = make(map[string]string)
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatParquet, false},
		{"Parquet", FormatParquet, false},
		{"jsonl", FormatJSON, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_WritesTablesInDependencyOrder(t *testing.T) {
	loc := &recordingLocation{}
	m := metrics.NewCollector("aerodw_test")

	counts, err := Load(context.Background(), sampleTables(), loc, nil, m)
	require.NoError(t, err)

	assert.Equal(t, warehouse.LoadOrder, loc.order)
	for _, name := range warehouse.LoadOrder {
		assert.Equal(t, 1, counts[name], name)
		assert.True(t, loc.sinks[name].flushed, name)
		assert.True(t, loc.sinks[name].closed, name)
	}
	assert.Equal(t, "A1", loc.sinks[warehouse.TableDailyUsage].rows[0]["registration"])
	n, err := testutil.GatherAndCount(m.Registry(), "aerodw_test_rows_loaded_total")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestLoad_AbortsWithTableName(t *testing.T) {
	boom := errors.New("boom")
	loc := &recordingLocation{failOn: warehouse.TableAircrafts, err: boom}

	counts, err := Load(context.Background(), sampleTables(), loc, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, warehouse.TableAircrafts, loadErr.Table)
	assert.Equal(t, "write", loadErr.Op)
	assert.Contains(t, err.Error(), "aircrafts")

	assert.Equal(t, []string{warehouse.TableDays, warehouse.TableMonths, warehouse.TableAircrafts}, loc.order)
	assert.True(t, loc.sinks[warehouse.TableAircrafts].closed)
	assert.NotContains(t, counts, warehouse.TableAircrafts)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, sampleTables(), &recordingLocation{}, nil, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDirLocation(t *testing.T) {
	for _, format := range []Format{FormatParquet, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "warehouse")
			_, err := Load(context.Background(), sampleTables(), DirLocation{Dir: dir, Format: format}, nil, nil)
			require.NoError(t, err)

			for _, name := range warehouse.LoadOrder {
				info, err := os.Stat(filepath.Join(dir, name+format.Ext()))
				require.NoError(t, err, name)
				assert.Greater(t, info.Size(), int64(0))
			}

			if format == FormatJSON {
				data, err := os.ReadFile(filepath.Join(dir, "monthly_usage.jsonl"))
				require.NoError(t, err)
				assert.Contains(t, string(data), `"adis":30.44`)
			}
		})
	}
}

func TestS3Location_UploadsOnClose(t *testing.T) {
	client := &fakeS3{}
	loc := &S3Location{Bucket: "dw", Prefix: "exports/2023", Format: FormatParquet, Client: client}

	_, err := Load(context.Background(), sampleTables(), loc, nil, nil)
	require.NoError(t, err)

	require.Len(t, client.objects, len(warehouse.LoadOrder))
	data := client.objects["dw/exports/2023/daily_usage.parquet"]
	require.NotEmpty(t, data)
	assert.Equal(t, "application/vnd.apache.parquet", client.types["exports/2023/daily_usage.parquet"])

	summary, err := writers.InspectParquet(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Rows)
}

func TestS3Location_Errors(t *testing.T) {
	_, err := (&S3Location{Client: &fakeS3{}}).NewSink(warehouse.Schema[warehouse.TableDays])
	assert.Error(t, err)

	client := &fakeS3{err: errors.New("access denied")}
	loc := &S3Location{Bucket: "dw", Format: FormatJSON, Client: client}
	_, err = Load(context.Background(), sampleTables(), loc, nil, nil)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "close", loadErr.Op)
	assert.Equal(t, warehouse.TableDays, loadErr.Table)
	assert.True(t, strings.Contains(err.Error(), "s3://dw/days.jsonl"))
}

func TestPostgresLocation_RequiresConnection(t *testing.T) {
	_, err := PostgresLocation{}.NewSink(warehouse.Schema[warehouse.TableDays])
	var pgErr *writers.PostgresWriterError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "validate", pgErr.Op)
}
