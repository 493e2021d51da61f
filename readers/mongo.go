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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aaronlmathis/aerodw/core"
)

// MongoReaderError provides structured error information for MongoDB reader operations
type MongoReaderError struct {
	Op         string // Operation that failed (e.g., "connect", "find", "decode")
	Collection string // Collection being accessed when error occurred
	Err        error  // Underlying error
}

func (e *MongoReaderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo reader %s (collection: %s): %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo reader %s: %v", e.Op, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReaderStats holds statistics about the MongoDB reader's performance
type MongoReaderStats struct {
	RecordsRead     int64
	ReadDuration    time.Duration
	NullValueCounts map[string]int64
}

// MongoReaderOptions configures the MongoDB reader
type MongoReaderOptions struct {
	URI        string        // MongoDB connection URI
	Database   string        // Database name
	Collection string        // Collection name
	Filter     bson.M        // Query filter
	Projection bson.M        // Field projection
	Sort       bson.D        // Sort specification; ordered so results are stable
	BatchSize  int32         // Batch size for cursor
	Timeout    time.Duration // Connect timeout
}

// ReaderOptionMongo is a functional option for MongoReaderOptions
type ReaderOptionMongo func(*MongoReaderOptions)

func WithMongoURI(uri string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.URI = uri
	}
}

func WithMongoDB(database string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Collection = collection
	}
}

func WithMongoFilter(filter bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Filter = filter
	}
}

func WithMongoProjection(projection bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Projection = projection
	}
}

func WithMongoSort(sort bson.D) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Sort = sort
	}
}

func WithMongoBatchSize(batchSize int32) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.BatchSize = batchSize
	}
}

func WithMongoTimeout(timeout time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Timeout = timeout
	}
}

// MongoReader implements core.DataSource for a MongoDB find query. It
// connects on the first Read.
type MongoReader struct {
	client     *mongo.Client
	collection *mongo.Collection
	cursor     *mongo.Cursor
	opts       MongoReaderOptions
	stats      MongoReaderStats
}

// NewMongoReader creates a reader for post-flight report documents. Unless
// overridden, documents are returned sorted by reporting date, then _id.
func NewMongoReader(options ...ReaderOptionMongo) (*MongoReader, error) {
	opts := MongoReaderOptions{
		URI:       "mongodb://localhost:27017",
		BatchSize: 1000,
		Timeout:   30 * time.Second,
		Sort:      bson.D{{Key: "reportingdate", Value: 1}, {Key: "_id", Value: 1}},
		Projection: bson.M{
			"_id":                  0,
			"aircraftregistration": 1,
			"reportingdate":        1,
			"reporteurid":          1,
			"reporteurclass":       1,
		},
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Database == "" {
		return nil, &MongoReaderError{Op: "validate", Err: errors.New("database name is required")}
	}
	if opts.Collection == "" {
		return nil, &MongoReaderError{Op: "validate", Err: errors.New("collection name is required")}
	}

	return &MongoReader{
		opts:  opts,
		stats: MongoReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Read implements the core.DataSource interface
func (mr *MongoReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() {
		mr.stats.ReadDuration += time.Since(start)
	}()

	select {
	case <-ctx.Done():
		return nil, &MongoReaderError{Op: "read", Collection: mr.opts.Collection, Err: ctx.Err()}
	default:
	}

	if mr.cursor == nil {
		if err := mr.open(ctx); err != nil {
			return nil, err
		}
	}

	if !mr.cursor.Next(ctx) {
		if err := mr.cursor.Err(); err != nil {
			return nil, &MongoReaderError{Op: "cursor_next", Collection: mr.opts.Collection, Err: err}
		}
		return nil, io.EOF
	}

	var doc bson.M
	if err := mr.cursor.Decode(&doc); err != nil {
		return nil, &MongoReaderError{Op: "decode", Collection: mr.opts.Collection, Err: err}
	}

	record := make(core.Record, len(doc))
	for key, value := range doc {
		record[key] = convertBSONValue(value)
		if record[key] == nil {
			mr.stats.NullValueCounts[key]++
		}
	}

	mr.stats.RecordsRead++
	return record, nil
}

// Close implements the core.DataSource interface
func (mr *MongoReader) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if mr.cursor != nil {
		errs = append(errs, mr.cursor.Close(ctx))
		mr.cursor = nil
	}
	if mr.client != nil {
		errs = append(errs, mr.client.Disconnect(ctx))
		mr.client = nil
	}
	if err := errors.Join(errs...); err != nil {
		return &MongoReaderError{Op: "close", Collection: mr.opts.Collection, Err: err}
	}
	return nil
}

// Stats returns MongoDB reader performance statistics
func (mr *MongoReader) Stats() MongoReaderStats {
	return mr.stats
}

func (mr *MongoReader) open(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(mr.opts.URI).
		SetReadPreference(readpref.Primary())
	if mr.opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(mr.opts.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return &MongoReaderError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return &MongoReaderError{Op: "ping", Err: err}
	}
	mr.client = client
	mr.collection = client.Database(mr.opts.Database).Collection(mr.opts.Collection)

	findOpts := options.Find()
	if mr.opts.BatchSize > 0 {
		findOpts.SetBatchSize(mr.opts.BatchSize)
	}
	if mr.opts.Projection != nil {
		findOpts.SetProjection(mr.opts.Projection)
	}
	if mr.opts.Sort != nil {
		findOpts.SetSort(mr.opts.Sort)
	}

	filter := mr.opts.Filter
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := mr.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return &MongoReaderError{Op: "find", Collection: mr.opts.Collection, Err: err}
	}
	mr.cursor = cursor
	return nil
}

// convertBSONValue converts BSON values to the types records carry.
func convertBSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case int32:
		return int(v)
	case bson.M:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			result[k] = convertBSONValue(val)
		}
		return result
	case bson.A:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertBSONValue(val)
		}
		return result
	default:
		return v
	}
}
