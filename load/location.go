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

// Package load writes materialized warehouse tables to an output location.
//
// A Location hands out one core.DataSink per table; Load drives the sinks in
// dependency order so dimensions land before the facts that reference them.
package load

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"

	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/readers"
	"github.com/aaronlmathis/aerodw/warehouse"
	"github.com/aaronlmathis/aerodw/writers"
)

// Format is a file format for directory and object-store locations.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// ParseFormat maps a configuration name to a Format. The empty name selects Parquet.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "parquet":
		return FormatParquet, nil
	case "json", "jsonl":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// Ext returns the file extension written for the format.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".jsonl"
	}
	return ".parquet"
}

// Location creates a DataSink for one warehouse table.
type Location interface {
	NewSink(table warehouse.TableSpec) (core.DataSink, error)
}

// DirLocation writes one file per table into a local directory.
type DirLocation struct {
	Dir     string
	Format  Format
	Parquet []writers.WriterOption
}

// NewSink instantiates a file writer for the table.
func (d DirLocation) NewSink(table warehouse.TableSpec) (core.DataSink, error) {
	filename := filepath.Join(d.Dir, table.Name+d.Format.Ext())
	switch d.Format {
	case FormatParquet, "":
		return writers.NewParquetWriter(filename, table, d.Parquet...)
	case FormatJSON:
		if err := os.MkdirAll(d.Dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.Create(filename)
		if err != nil {
			return nil, err
		}
		return writers.NewJSONWriter(f, table), nil
	default:
		return nil, fmt.Errorf("unsupported format %q for DirLocation", d.Format)
	}
}

// S3PutAPI is the subset of the S3 client used for uploads.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Location uploads one object per table under Prefix. Each table is
// buffered in memory and uploaded when its sink is closed.
type S3Location struct {
	Bucket  string
	Prefix  string
	Format  Format
	Client  S3PutAPI
	Timeout time.Duration
	// ClientOptions configures the client created when Client is nil.
	ClientOptions readers.S3ClientOptions
}

// Key returns the object key for a table.
func (s *S3Location) Key(table string) string {
	return path.Join(s.Prefix, table+s.Format.Ext())
}

// NewSink instantiates a buffered writer that uploads on Close.
func (s *S3Location) NewSink(table warehouse.TableSpec) (core.DataSink, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("s3 location: bucket is required")
	}
	if s.Client == nil {
		client, err := readers.NewS3Client(context.Background(), s.ClientOptions)
		if err != nil {
			return nil, fmt.Errorf("s3 location: %w", err)
		}
		s.Client = client
	}

	upload := &s3Upload{client: s.Client, bucket: s.Bucket, key: s.Key(table.Name), timeout: s.Timeout}
	switch s.Format {
	case FormatParquet, "":
		pw, err := writers.NewParquetStreamWriter(&upload.buf, table)
		if err != nil {
			return nil, err
		}
		upload.DataSink, upload.contentType = pw, "application/vnd.apache.parquet"
	case FormatJSON:
		upload.DataSink, upload.contentType = writers.NewJSONWriter(&upload.buf, table), "application/x-ndjson"
	default:
		return nil, fmt.Errorf("unsupported format %q for S3Location", s.Format)
	}
	return upload, nil
}

type s3Upload struct {
	core.DataSink
	buf         bytes.Buffer
	client      S3PutAPI
	bucket      string
	key         string
	contentType string
	timeout     time.Duration
}

func (u *s3Upload) Close() error {
	if err := u.DataSink.Close(); err != nil {
		return err
	}

	ctx := context.Background()
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.key),
		Body:        bytes.NewReader(u.buf.Bytes()),
		ContentType: aws.String(u.contentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", u.bucket, u.key, err)
	}
	return nil
}

// PostgresLocation upserts every table into a PostgreSQL database. When DB is
// set the writers share it; otherwise each table opens its own connection.
type PostgresLocation struct {
	DSN       string
	DB        *sqlx.DB
	Truncate  bool
	BatchSize int
}

// NewSink instantiates a PostgreSQL writer for the table.
func (p PostgresLocation) NewSink(table warehouse.TableSpec) (core.DataSink, error) {
	opts := []writers.PostgresWriterOption{
		writers.WithTable(table),
		writers.WithCreateTable(true),
		writers.WithTruncateTable(p.Truncate),
		writers.WithPostgresBatchSize(p.BatchSize),
	}
	if p.DB != nil {
		opts = append(opts, writers.WithPostgresDB(p.DB))
	} else {
		opts = append(opts, writers.WithPostgresDSN(p.DSN))
	}
	return writers.NewPostgresWriter(opts...)
}
