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
	"log/slog"
	"sync"
)

// Progress is notified after every record read from a stream. total is the
// expected record count and may be zero when unknown.
type Progress interface {
	Advance(stream string, done, total int)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(stream string, done, total int)

func (f ProgressFunc) Advance(stream string, done, total int) {
	f(stream, done, total)
}

// LogProgress logs a line each time a stream crosses another tenth of its
// expected total.
type LogProgress struct {
	logger *slog.Logger

	mu    sync.Mutex
	steps map[string]int
}

// NewLogProgress creates a LogProgress writing to logger.
func NewLogProgress(logger *slog.Logger) *LogProgress {
	return &LogProgress{logger: logger, steps: make(map[string]int)}
}

func (p *LogProgress) Advance(stream string, done, total int) {
	if total <= 0 {
		return
	}
	step := done * 10 / total
	p.mu.Lock()
	defer p.mu.Unlock()
	if step <= p.steps[stream] {
		return
	}
	p.steps[stream] = step
	p.logger.Info("progress", "stream", stream, "done", done, "total", total, "percent", step*10)
}

// Reset forgets the tenths logged so far. Run calls it before draining.
func (p *LogProgress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = make(map[string]int)
}
