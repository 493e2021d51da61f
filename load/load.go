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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/warehouse"
)

// LoadError attaches the table being written to a load failure.
type LoadError struct {
	Op    string
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load writes every table to loc in warehouse.LoadOrder and returns the number
// of rows written per table. Each sink is flushed and closed before the next
// table starts; the first failure aborts the load.
func Load(ctx context.Context, tables *warehouse.Tables, loc Location, logger *slog.Logger, m *metrics.Collector) (map[string]int, error) {
	if tables == nil {
		return nil, errors.New("load: no tables")
	}
	if loc == nil {
		return nil, errors.New("load: no location")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	loaded := make(map[string]int, len(warehouse.LoadOrder))
	for _, name := range warehouse.LoadOrder {
		n, err := loadTable(ctx, tables, name, loc)
		if err != nil {
			logger.Error("table load failed", "table", name, "rows", n, "error", err)
			return loaded, err
		}
		loaded[name] = n
		m.AddLoaded(name, n)
		logger.Info("table loaded", "table", name, "rows", n)
	}
	m.ObserveStage("load", start)
	return loaded, nil
}

func loadTable(ctx context.Context, tables *warehouse.Tables, name string, loc Location) (n int, err error) {
	spec, err := warehouse.Spec(name)
	if err != nil {
		return 0, &LoadError{Op: "spec", Table: name, Err: err}
	}
	sink, err := loc.NewSink(spec)
	if err != nil {
		return 0, &LoadError{Op: "open", Table: name, Err: err}
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = &LoadError{Op: "close", Table: name, Err: cerr}
		}
	}()

	for _, row := range tables.Rows(name) {
		if err := ctx.Err(); err != nil {
			return n, &LoadError{Op: "write", Table: name, Err: err}
		}
		if err := sink.Write(ctx, row); err != nil {
			return n, &LoadError{Op: "write", Table: name, Err: err}
		}
		n++
	}
	if err := sink.Flush(); err != nil {
		return n, &LoadError{Op: "flush", Table: name, Err: err}
	}
	return n, nil
}
