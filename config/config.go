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

// Package config holds the AeroDW run configuration, loaded with viper from a
// YAML file, AERODW_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aaronlmathis/aerodw/core"
)

// Sink kinds.
const (
	SinkNone     = "none"
	SinkPostgres = "postgres"
	SinkParquet  = "parquet"
	SinkJSON     = "json"
)

// Validation errors.
var (
	ErrInvalidSinkKind      = errors.New("sink.kind must be one of none, postgres, parquet, json")
	ErrSinkDSNRequired      = errors.New("sink.dsn is required for the postgres sink")
	ErrSinkTargetRequired   = errors.New("sink.dir or sink.s3.bucket is required for file sinks")
	ErrInvalidExpectedTotal = errors.New("transform.expected totals must not be negative")
	ErrInvalidLogFormat     = errors.New("log.format must be json or text")
	ErrFeedAmbiguous        = errors.New("a feed takes either a path or an s3 object, not both")
	ErrFeedRequired         = errors.New("feed path or s3 bucket/key is required")
	ErrSourceDSNRequired    = errors.New("sources.postgres.dsn is required")
)

// Config is the top-level configuration struct for aerodw.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Sources   SourcesConfig   `mapstructure:"sources"`
	Transform TransformConfig `mapstructure:"transform"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SourcesConfig locates the five input streams.
type SourcesConfig struct {
	Aircraft  FeedConfig           `mapstructure:"aircraft"`
	Personnel FeedConfig           `mapstructure:"personnel"`
	Postgres  PostgresSourceConfig `mapstructure:"postgres"`
	Mongo     MongoSourceConfig    `mapstructure:"mongo"`
}

// FeedConfig locates a reference CSV feed on disk or in S3.
type FeedConfig struct {
	Path string         `mapstructure:"path"`
	S3   S3ObjectConfig `mapstructure:"s3"`
}

// S3ObjectConfig names one object in an S3-compatible store.
type S3ObjectConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// PostgresSourceConfig holds the AIMS/AMOS database and its queries.
type PostgresSourceConfig struct {
	DSN              string `mapstructure:"dsn"`
	FlightsQuery     string `mapstructure:"flights_query"`
	MaintenanceQuery string `mapstructure:"maintenance_query"`
	ReportsQuery     string `mapstructure:"reports_query"`
}

// MongoSourceConfig is an alternate source for post-flight reports.
type MongoSourceConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// TransformConfig holds the transform switches.
type TransformConfig struct {
	ApplyBusinessRules bool           `mapstructure:"apply_business_rules"`
	Strict             bool           `mapstructure:"strict"`
	ErrorStrategy      string         `mapstructure:"error_strategy"`
	Expected           ExpectedConfig `mapstructure:"expected"`
}

// ExpectedConfig holds the expected stream sizes used for progress reporting.
type ExpectedConfig struct {
	Flights     int `mapstructure:"flights"`
	Maintenance int `mapstructure:"maintenance"`
	Reports     int `mapstructure:"reports"`
}

// SinkConfig selects where the warehouse is loaded.
type SinkConfig struct {
	Kind      string       `mapstructure:"kind"`
	DSN       string       `mapstructure:"dsn"`
	Dir       string       `mapstructure:"dir"`
	S3        S3SinkConfig `mapstructure:"s3"`
	Truncate  bool         `mapstructure:"truncate"`
	BatchSize int          `mapstructure:"batch_size"`
}

// S3SinkConfig places exported tables under a bucket prefix.
type S3SinkConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// LogConfig holds logger settings. An empty file logs to stderr.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Strategy parses the configured error strategy.
func (t TransformConfig) Strategy() (core.ErrorStrategy, error) {
	return core.ParseErrorStrategy(t.ErrorStrategy)
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if err := c.validateTransform(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if c.Sources.Aircraft.Path != "" && c.Sources.Aircraft.S3.Bucket != "" {
		return fmt.Errorf("sources.aircraft: %w", ErrFeedAmbiguous)
	}
	if c.Sources.Personnel.Path != "" && c.Sources.Personnel.S3.Bucket != "" {
		return fmt.Errorf("sources.personnel: %w", ErrFeedAmbiguous)
	}
	return nil
}

// ValidateSources checks that every input stream is located. A run needs it;
// commands that do not extract, such as inspect, do not.
func (c *Config) ValidateSources() error {
	if err := c.Sources.Aircraft.validate(); err != nil {
		return fmt.Errorf("sources.aircraft: %w", err)
	}
	if err := c.Sources.Personnel.validate(); err != nil {
		return fmt.Errorf("sources.personnel: %w", err)
	}
	if c.Sources.Postgres.DSN == "" {
		return ErrSourceDSNRequired
	}
	return nil
}

func (f FeedConfig) validate() error {
	switch {
	case f.Path != "" && f.S3.Bucket != "":
		return ErrFeedAmbiguous
	case f.Path != "":
		return nil
	case f.S3.Bucket != "" && f.S3.Key != "":
		return nil
	default:
		return ErrFeedRequired
	}
}

func (c *Config) validateTransform() error {
	if _, err := c.Transform.Strategy(); err != nil {
		return fmt.Errorf("transform.error_strategy: %w", err)
	}
	e := c.Transform.Expected
	if e.Flights < 0 || e.Maintenance < 0 || e.Reports < 0 {
		return ErrInvalidExpectedTotal
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Kind {
	case SinkNone:
		return nil
	case SinkPostgres:
		if c.Sink.DSN == "" {
			return ErrSinkDSNRequired
		}
		return nil
	case SinkParquet, SinkJSON:
		if c.Sink.Dir == "" && c.Sink.S3.Bucket == "" {
			return ErrSinkTargetRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSinkKind, c.Sink.Kind)
	}
}

func (c *Config) validateLog() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return ErrInvalidLogFormat
	}
	_, err := c.Log.SlogLevel()
	return err
}
