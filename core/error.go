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
	"errors"
	"fmt"
)

// Package core defines the error handling types for AeroDW.
//
// This file contains error handling interfaces, strategies, sentinel errors for
// record field access, and function adapters.

var (
	// ErrMissingField is returned when a record has no value for a required field.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidType is returned when a field holds a value of an unusable type.
	ErrInvalidType = errors.New("invalid field type")
)

// FieldError reports which field of a record could not be read.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ErrorHandler defines how errors are handled during processing.
// Custom error handlers can be used to log, collect, or transform errors.
type ErrorHandler interface {
	// HandleError processes an error that occurred while handling a record.
	// Returning a non-nil error will stop the run; returning nil will continue.
	HandleError(ctx context.Context, record Record, err error) error
}

// ErrorStrategy defines how to handle malformed records.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed records.
	SkipErrors
)

// String returns the configuration name of the strategy.
func (s ErrorStrategy) String() string {
	switch s {
	case FailFast:
		return "fail_fast"
	case SkipErrors:
		return "skip"
	default:
		return fmt.Sprintf("ErrorStrategy(%d)", int(s))
	}
}

// ParseErrorStrategy maps a configuration name to an ErrorStrategy.
func ParseErrorStrategy(name string) (ErrorStrategy, error) {
	switch name {
	case "", "fail_fast", "failfast":
		return FailFast, nil
	case "skip", "skip_errors":
		return SkipErrors, nil
	default:
		return FailFast, fmt.Errorf("unknown error strategy %q", name)
	}
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
// Allows ordinary functions to be used as error handlers.
type ErrorHandlerFunc func(ctx context.Context, record Record, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, record Record, err error) error {
	return f(ctx, record, err)
}
