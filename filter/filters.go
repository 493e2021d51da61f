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

// Package filter provides the record filters AeroDW applies before aggregation.
//
// Filters here only decide membership; whoever applies them is responsible
// for counting and logging what was left out.
package filter

import (
	"context"
	"errors"

	"github.com/aaronlmathis/aerodw/core"
)

// NotBlank creates a filter that excludes records where the field is absent,
// null, or blank once trimmed.
func NotBlank(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, err := record.String(field)
		if err != nil {
			if errors.Is(err, core.ErrMissingField) {
				return false, nil
			}
			return false, err
		}
		return value != "", nil
	})
}

// KnownAircraft creates a filter that keeps records whose aircraft registration
// is present in a reference table, as reported by known.
func KnownAircraft(field string, known func(registration string) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		registration, err := record.String(field)
		if err != nil {
			if errors.Is(err, core.ErrMissingField) {
				return false, nil
			}
			return false, err
		}
		return known(registration), nil
	})
}
