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

// Package slots tracks the time slots already committed for an aircraft on a
// given day, so that double-booked flights and maintenance windows can be
// rejected (BR-21).
package slots

import (
	"fmt"
	"time"
)

// Slot is a half-open interval [Start, End) of hours of the day.
type Slot struct {
	Start float64
	End   float64
}

// Between returns the slot spanned by the whole hours of start and end.
func Between(start, end time.Time) Slot {
	return Slot{Start: float64(start.Hour()), End: float64(end.Hour())}
}

func (s Slot) String() string {
	return fmt.Sprintf("(%g, %g)", s.Start, s.End)
}

// Overlaps reports whether a and b share any instant. Slots that only touch do
// not overlap, and neither does a zero-length slot sitting on a boundary.
func Overlaps(a, b Slot) bool {
	return a.Start < b.End && b.Start < a.End
}

// Key identifies an entity on a day.
type Key struct {
	Entity string
	Day    string
}

// Commit is a slot accepted by the registry. Seq is the global acceptance
// order across all keys.
type Commit struct {
	Slot Slot
	Seq  int
}

// Registry holds the committed slots per key. Acceptance is first-seen wins,
// so the outcome depends on the order in which slots are offered.
type Registry struct {
	slots map[Key][]Commit
	seq   int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[Key][]Commit)}
}

// Offer commits s under key unless it overlaps a slot already committed for
// key. It returns the new commit and true, or the first conflicting commit and
// false, leaving the registry unchanged.
func (r *Registry) Offer(key Key, s Slot) (Commit, bool) {
	for _, c := range r.slots[key] {
		if Overlaps(s, c.Slot) {
			return c, false
		}
	}
	r.seq++
	c := Commit{Slot: s, Seq: r.seq}
	r.slots[key] = append(r.slots[key], c)
	return c, true
}

// CheckAndCommit commits s under key and returns true if it overlaps none of
// the slots already committed for key. Otherwise the registry is unchanged.
func (r *Registry) CheckAndCommit(key Key, s Slot) bool {
	_, ok := r.Offer(key, s)
	return ok
}

// Committed returns the slots committed for key in acceptance order.
func (r *Registry) Committed(key Key) []Slot {
	commits := r.slots[key]
	out := make([]Slot, len(commits))
	for i, c := range commits {
		out[i] = c.Slot
	}
	return out
}

// Len returns the number of keys with at least one committed slot.
func (r *Registry) Len() int {
	return len(r.slots)
}
