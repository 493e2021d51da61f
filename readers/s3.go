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

package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/aerodw/core"
)

// S3ReaderError provides structured error information for S3 reader operations
type S3ReaderError struct {
	Op  string // Operation that failed (e.g., "list_objects", "get_object", "read")
	Key string // Object being read, if any
	Err error  // Underlying error
}

func (e *S3ReaderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 reader %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3 reader %s: %v", e.Op, e.Err)
}

func (e *S3ReaderError) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client the reader uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ClientOptions configures an S3 client.
type S3ClientOptions struct {
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
}

// NewS3Client creates an S3 client from the default AWS configuration chain,
// overridden by opts.
func NewS3Client(ctx context.Context, opts S3ClientOptions) (*s3.Client, error) {
	configOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	}), nil
}

// S3ReaderStats holds statistics about the S3 reader's performance
type S3ReaderStats struct {
	ObjectsListed  int64
	ObjectsRead    int64
	RecordsRead    int64
	ReadDuration   time.Duration
	CurrentObject  string
	ProcessedFiles []string
}

// S3ReaderOptions configures the S3 reader behavior
type S3ReaderOptions struct {
	Bucket string
	Prefix string // Key prefix filter
	Suffix string // Key suffix filter (e.g., ".csv", ".json")
	Client S3API
	S3ClientOptions
	CSV []ReaderOptionCSV
}

// ReaderOptionS3 represents a configuration function for S3Reader
type ReaderOptionS3 func(*S3ReaderOptions)

func WithS3Bucket(bucket string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Bucket = bucket
	}
}

// WithS3Prefix restricts the reader to keys under prefix. A full key reads a
// single object.
func WithS3Prefix(prefix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Prefix = prefix
	}
}

func WithS3Suffix(suffix string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Suffix = suffix
	}
}

func WithS3Region(region string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Region = region
	}
}

func WithS3Credentials(creds aws.Credentials) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.ForcePathStyle = pathStyle
	}
}

// WithS3Client sets the client, bypassing AWS configuration loading.
func WithS3Client(client S3API) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Client = client
	}
}

// WithS3CSVOptions sets the options used for CSV objects.
func WithS3CSVOptions(options ...ReaderOptionCSV) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.CSV = options
	}
}

// S3Object represents an S3 object with metadata
type S3Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// S3Reader implements core.DataSource over the CSV and JSON-lines objects
// under a prefix. Objects are read in key order.
type S3Reader struct {
	client        S3API
	objects       []S3Object
	listed        bool
	currentIndex  int
	currentReader core.DataSource
	stats         S3ReaderStats
	opts          S3ReaderOptions
	mu            sync.Mutex
}

// NewS3Reader creates a new S3 reader with the specified options
func NewS3Reader(ctx context.Context, options ...ReaderOptionS3) (*S3Reader, error) {
	var opts S3ReaderOptions
	for _, option := range options {
		option(&opts)
	}

	if opts.Bucket == "" {
		return nil, &S3ReaderError{Op: "validate_options", Err: errors.New("bucket is required")}
	}

	client := opts.Client
	if client == nil {
		c, err := NewS3Client(ctx, opts.S3ClientOptions)
		if err != nil {
			return nil, &S3ReaderError{Op: "create_aws_config", Err: err}
		}
		client = c
	}

	return &S3Reader{client: client, opts: opts}, nil
}

// Read implements the core.DataSource interface
func (s *S3Reader) Read(ctx context.Context) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.stats.ReadDuration += time.Since(start)
	}()

	if !s.listed {
		if err := s.listObjects(ctx); err != nil {
			return nil, &S3ReaderError{Op: "list_objects", Err: err}
		}
		s.listed = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil, &S3ReaderError{Op: "read", Err: ctx.Err()}
		default:
		}

		if s.currentReader == nil {
			if s.currentIndex >= len(s.objects) {
				return nil, io.EOF
			}
			if err := s.openNextObject(ctx); err != nil {
				return nil, err
			}
		}

		record, err := s.currentReader.Read(ctx)
		if errors.Is(err, io.EOF) {
			if err := s.closeCurrentReader(); err != nil {
				return nil, &S3ReaderError{Op: "close_object", Err: err}
			}
			continue
		}
		if err != nil {
			return nil, &S3ReaderError{Op: "read_record", Key: s.stats.CurrentObject, Err: err}
		}

		s.stats.RecordsRead++
		return record, nil
	}
}

// Close implements the core.DataSource interface
func (s *S3Reader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCurrentReader()
}

// Stats returns S3 reader performance statistics
func (s *S3Reader) Stats() S3ReaderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// listObjects retrieves and filters objects from S3
func (s *S3Reader) listObjects(ctx context.Context) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
	}
	if s.opts.Prefix != "" {
		input.Prefix = aws.String(s.opts.Prefix)
	}

	var objects []S3Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.opts.Suffix != "" && !strings.HasSuffix(key, s.opts.Suffix) {
				continue
			}
			if strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, S3Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	s.objects = objects
	s.stats.ObjectsListed = int64(len(objects))
	return nil
}

// openNextObject opens the next S3 object for reading
func (s *S3Reader) openNextObject(ctx context.Context) error {
	obj := s.objects[s.currentIndex]
	s.stats.CurrentObject = obj.Key

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return &S3ReaderError{Op: "get_object", Key: obj.Key, Err: err}
	}

	reader, err := s.createReaderForObject(result.Body, obj.Key)
	if err != nil {
		result.Body.Close()
		return &S3ReaderError{Op: "open_object", Key: obj.Key, Err: err}
	}

	s.currentReader = reader
	s.stats.ObjectsRead++
	s.stats.ProcessedFiles = append(s.stats.ProcessedFiles, obj.Key)
	return nil
}

// createReaderForObject creates the appropriate reader based on file extension
func (s *S3Reader) createReaderForObject(body io.ReadCloser, key string) (core.DataSource, error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv":
		return NewCSVReader(body, s.opts.CSV...)
	case ".json", ".jsonl", ".ndjson":
		return NewJSONReader(body), nil
	default:
		return nil, fmt.Errorf("unsupported object format %q", path.Ext(key))
	}
}

// closeCurrentReader closes the current object and moves to the next one
func (s *S3Reader) closeCurrentReader() error {
	if s.currentReader != nil {
		err := s.currentReader.Close()
		s.currentReader = nil
		s.currentIndex++
		return err
	}
	return nil
}
