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
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aaronlmathis/aerodw/core"
)

// Record normalizers bring the raw values delivered by each source (strings
// from CSV and object storage, driver types from SQL and MongoDB) to the
// types the aggregators decode: time.Time, bool and string.

// DefaultTimeLayouts are tried in order by ParseTime when no layouts are given.
var DefaultTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Chain creates a transformer that applies transformers in order.
func Chain(transformers ...core.Transformer) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		current := record
		for _, transformer := range transformers {
			transformed, err := transformer.Transform(ctx, current)
			if err != nil {
				return nil, err
			}
			current = transformed
		}
		return current, nil
	})
}

// Rename creates a transformer that renames fields according to the provided mapping.
// Keys are original field names, values are new field names.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for key, value := range record {
			if newKey, exists := mapping[key]; exists {
				result[newKey] = value
			} else {
				result[key] = value
			}
		}
		return result, nil
	})
}

// ToString creates a transformer that converts a field to a trimmed string.
// Null and absent fields are left alone.
func ToString(field string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		if v, ok := record[field]; !ok || v == nil {
			return record, nil
		}
		s, err := record.String(field)
		if err != nil {
			return nil, err
		}
		result := record.Clone()
		result[field] = s
		return result, nil
	})
}

// TrimSpace creates a transformer that trims whitespace from the specified string fields.
func TrimSpace(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := record.Clone()
		for _, field := range fields {
			if str, ok := result[field].(string); ok {
				result[field] = strings.TrimSpace(str)
			}
		}
		return result, nil
	})
}

// ParseTime creates a transformer that parses a string field into a time.Time,
// trying each layout in turn. Values that already are times pass through. A
// blank string becomes nil; any other unparseable value is an error.
func ParseTime(field string, layouts ...string) core.Transformer {
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		str, ok := record[field].(string)
		if !ok {
			return record, nil
		}
		result := record.Clone()
		str = strings.TrimSpace(str)
		if str == "" {
			result[field] = nil
			return result, nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, str); err == nil {
				result[field] = t
				return result, nil
			}
		}
		return nil, &core.FieldError{Field: field, Err: fmt.Errorf("%w: unparseable time %q", core.ErrInvalidType, str)}
	})
}

// ParseBool creates a transformer that parses a string field into a bool. A
// blank string becomes nil.
func ParseBool(field string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		str, ok := record[field].(string)
		if !ok {
			return record, nil
		}
		result := record.Clone()
		str = strings.TrimSpace(str)
		if str == "" {
			result[field] = nil
			return result, nil
		}
		b, err := strconv.ParseBool(str)
		if err != nil {
			return nil, &core.FieldError{Field: field, Err: fmt.Errorf("%w: %v", core.ErrInvalidType, err)}
		}
		result[field] = b
		return result, nil
	})
}
