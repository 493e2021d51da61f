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

package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Package core defines the core types for AeroDW.
//
// This file contains the Record type, its typed field accessors and the
// function adapters for Transformer and Filter.

// Record represents a single data record flowing through a run.
// Each record is a map from field names to values, supporting heterogeneous feeds.
type Record map[string]interface{}

// String returns the field as a string. Numeric identifiers (reporteur ids read
// from CSV, for instance) are formatted in base 10. Surrounding space is trimmed.
func (r Record) String(field string) (string, error) {
	value, ok := r[field]
	if !ok || value == nil {
		return "", &FieldError{Field: field, Err: ErrMissingField}
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []byte:
		return strings.TrimSpace(string(v)), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), nil
	default:
		return "", &FieldError{Field: field, Err: fmt.Errorf("%w: %T", ErrInvalidType, value)}
	}
}

// Time returns the field as a time.Time. A missing or null value is reported
// as ErrMissingField; strings must be parsed beforehand by a normalizer.
func (r Record) Time(field string) (time.Time, error) {
	t, ok, err := r.OptionalTime(field)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, &FieldError{Field: field, Err: ErrMissingField}
	}
	return t, nil
}

// OptionalTime returns the field as a time.Time, with ok set to false when the
// value is absent or null.
func (r Record) OptionalTime(field string) (time.Time, bool, error) {
	value, ok := r[field]
	if !ok || value == nil {
		return time.Time{}, false, nil
	}

	switch v := value.(type) {
	case time.Time:
		return v, true, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, false, nil
		}
		return *v, true, nil
	default:
		return time.Time{}, false, &FieldError{Field: field, Err: fmt.Errorf("%w: %T", ErrInvalidType, value)}
	}
}

// Bool returns the field as a bool. A null value reads as false, matching how
// the source systems leave flags unset; an absent field is an error.
func (r Record) Bool(field string) (bool, error) {
	value, ok := r[field]
	if !ok {
		return false, &FieldError{Field: field, Err: ErrMissingField}
	}

	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, &FieldError{Field: field, Err: fmt.Errorf("%w: %v", ErrInvalidType, err)}
		}
		return b, nil
	default:
		return false, &FieldError{Field: field, Err: fmt.Errorf("%w: %T", ErrInvalidType, value)}
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TransformFunc is a function adapter for the Transformer interface.
// Allows ordinary functions to be used as Transformers.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}
