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

package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Slot
		want bool
	}{
		{"partial overlap", Slot{9, 11}, Slot{10, 12}, true},
		{"touching boundary", Slot{9, 10}, Slot{10, 12}, false},
		{"contained", Slot{8, 18}, Slot{10, 12}, true},
		{"identical", Slot{10, 12}, Slot{10, 12}, true},
		{"disjoint", Slot{1, 2}, Slot{5, 6}, false},
		{"zero length at start boundary", Slot{10, 10}, Slot{10, 12}, false},
		{"zero length strictly inside", Slot{10, 10}, Slot{9, 11}, true},
		{"both zero length", Slot{10, 10}, Slot{10, 10}, false},
		{"inverted slot", Slot{12, 9}, Slot{10, 11}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestRegistry_FirstSeenWins(t *testing.T) {
	r := NewRegistry()
	key := Key{Entity: "A1", Day: "2023-1-1"}

	first, ok := r.Offer(key, Slot{8, 10})
	require.True(t, ok)
	conflict, ok := r.Offer(key, Slot{9, 11})
	require.False(t, ok)
	assert.Equal(t, first, conflict)
	third, ok := r.Offer(key, Slot{10, 12})
	require.True(t, ok)
	assert.Less(t, first.Seq, third.Seq)

	assert.Equal(t, []Slot{{8, 10}, {10, 12}}, r.Committed(key))
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.CheckAndCommit(Key{"A1", "2023-1-1"}, Slot{8, 10}))
	assert.True(t, r.CheckAndCommit(Key{"A2", "2023-1-1"}, Slot{8, 10}))
	assert.True(t, r.CheckAndCommit(Key{"A1", "2023-1-2"}, Slot{8, 10}))
	assert.Equal(t, 3, r.Len())
	assert.Empty(t, r.Committed(Key{"A3", "2023-1-1"}))
}

func TestRegistry_CommittedSlotsNeverOverlap(t *testing.T) {
	r := NewRegistry()
	key := Key{"A1", "2023-1-1"}
	offers := []Slot{{8, 10}, {9, 11}, {10, 12}, {0, 24}, {12, 12}, {11, 13}, {6, 8}, {7, 9}, {20, 23}}
	for _, s := range offers {
		r.CheckAndCommit(key, s)
	}

	committed := r.Committed(key)
	for i := range committed {
		for j := i + 1; j < len(committed); j++ {
			assert.False(t, Overlaps(committed[i], committed[j]), "%v and %v", committed[i], committed[j])
		}
	}
}

func TestBetween(t *testing.T) {
	dep := time.Date(2023, 1, 1, 8, 45, 0, 0, time.UTC)
	arr := time.Date(2023, 1, 1, 10, 5, 0, 0, time.UTC)
	assert.Equal(t, Slot{8, 10}, Between(dep, arr))
	assert.Equal(t, "(8, 10)", Slot{8, 10}.String())
}
