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

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/readers"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aerodw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Transform.ApplyBusinessRules)
	assert.Equal(t, ExpectedConfig{Flights: 69095, Maintenance: 148524, Reports: 180418}, cfg.Transform.Expected)
	assert.Equal(t, SinkParquet, cfg.Sink.Kind)
	assert.Equal(t, "warehouse", cfg.Sink.Dir)
	assert.Equal(t, readers.FlightsQuery, cfg.Sources.Postgres.FlightsQuery)
	assert.Equal(t, "text", cfg.Log.Format)

	strategy, err := cfg.Transform.Strategy()
	require.NoError(t, err)
	assert.Equal(t, core.FailFast, strategy)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
sources:
  aircraft:
    path: data/aircraft-manufaturerinfo-lookup.csv
  personnel:
    s3:
      bucket: reference
      key: maintenance-personnel.csv
      region: eu-west-1
  postgres:
    dsn: postgres://dw@localhost/aims
transform:
  apply_business_rules: false
  error_strategy: skip
sink:
  kind: postgres
  dsn: postgres://dw@localhost/warehouse
  truncate: true
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateSources())

	assert.False(t, cfg.Transform.ApplyBusinessRules)
	assert.Equal(t, "reference", cfg.Sources.Personnel.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Sources.Personnel.S3.Region)
	assert.Equal(t, SinkPostgres, cfg.Sink.Kind)
	assert.True(t, cfg.Sink.Truncate)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	strategy, err := cfg.Transform.Strategy()
	require.NoError(t, err)
	assert.Equal(t, core.SkipErrors, strategy)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("AERODW_SINK_KIND", "json")
	t.Setenv("AERODW_SINK_DIR", "/tmp/dw")
	t.Setenv("AERODW_SOURCES_POSTGRES_DSN", "postgres://env@localhost/aims")
	t.Setenv("AERODW_TRANSFORM_EXPECTED_FLIGHTS", "10")

	cfg, err := LoadConfig(writeConfig(t, "sink:\n  kind: parquet\n"))
	require.NoError(t, err)

	assert.Equal(t, SinkJSON, cfg.Sink.Kind)
	assert.Equal(t, "/tmp/dw", cfg.Sink.Dir)
	assert.Equal(t, "postgres://env@localhost/aims", cfg.Sources.Postgres.DSN)
	assert.Equal(t, 10, cfg.Transform.Expected.Flights)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sink: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	_, err = LoadConfig(writeConfig(t, "sink:\n  kind: mysql\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSinkKind))
}

func validConfig() Config {
	return Config{
		Transform: TransformConfig{ErrorStrategy: "fail_fast"},
		Sink:      SinkConfig{Kind: SinkParquet, Dir: "out"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"no sink", func(c *Config) { c.Sink = SinkConfig{Kind: SinkNone} }, nil},
		{"postgres without dsn", func(c *Config) { c.Sink.Kind = SinkPostgres }, ErrSinkDSNRequired},
		{"file sink without target", func(c *Config) { c.Sink.Dir = "" }, ErrSinkTargetRequired},
		{"s3 file sink", func(c *Config) { c.Sink.Dir = ""; c.Sink.S3.Bucket = "dw" }, nil},
		{"negative expected", func(c *Config) { c.Transform.Expected.Reports = -1 }, ErrInvalidExpectedTotal},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"ambiguous feed", func(c *Config) {
			c.Sources.Aircraft = FeedConfig{Path: "a.csv", S3: S3ObjectConfig{Bucket: "b"}}
		}, ErrFeedAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	cfg := validConfig()
	cfg.Transform.ErrorStrategy = "retry"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidateSources(t *testing.T) {
	cfg := validConfig()
	assert.True(t, errors.Is(cfg.ValidateSources(), ErrFeedRequired))

	cfg.Sources.Aircraft.Path = "aircraft.csv"
	cfg.Sources.Personnel.S3 = S3ObjectConfig{Bucket: "ref"}
	assert.True(t, errors.Is(cfg.ValidateSources(), ErrFeedRequired), "s3 feed needs a key")

	cfg.Sources.Personnel.S3.Key = "personnel.csv"
	assert.True(t, errors.Is(cfg.ValidateSources(), ErrSourceDSNRequired))

	cfg.Sources.Postgres.DSN = "postgres://localhost/aims"
	assert.NoError(t, cfg.ValidateSources())
}
